// Package enforcer implements the ban-evasion enforcement loop: every tick it
// lists players on all registered servers and escalates players connecting
// from an ip-banned address under an identity that is not banned yet.
package enforcer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/banwarden/internal/model"
	"github.com/udisondev/banwarden/internal/status"
)

// BanStore is the ban store as seen by the loop.
type BanStore interface {
	ListActiveIPBans(ctx context.Context) ([]model.Ban, error)
	ListBannedIdentities(ctx context.Context) ([]string, error)
	InsertBan(ctx context.Context, b *model.Ban) (int64, error)
	ExpireBans(ctx context.Context, now time.Time) (int64, error)
}

// ServerRegistry lists the game servers to enforce on.
type ServerRegistry interface {
	ListServers(ctx context.Context) ([]model.Server, error)
}

// Executor runs one RCON command on a server. Implementations open and close
// their own connection per call.
type Executor interface {
	Exec(ctx context.Context, addr, password, command string) (string, error)
}

// Config holds loop settings.
type Config struct {
	Interval time.Duration

	// MaxBackoff caps the delay after consecutive failed ticks
	// (store unavailable). Zero disables backoff.
	MaxBackoff time.Duration

	KickReason string
	BanReason  string
	AdminName  string

	// ExpireBans marks elapsed bans expired at the start of each tick.
	ExpireBans bool
}

// DefaultConfig returns the reference settings: 60s interval.
func DefaultConfig() Config {
	return Config{
		Interval:   60 * time.Second,
		MaxBackoff: 10 * time.Minute,
		KickReason: "Banned IP Detected",
		BanReason:  "同IP关联封禁 (Detected online with Banned IP)",
		AdminName:  "System (BG Monitor)",
		ExpireBans: true,
	}
}

// Report summarises one tick.
type Report struct {
	TickID          string
	Skipped         bool // no active ip bans
	Servers         int
	FailedServers   int
	Players         int
	Kicks           int
	Catches         int
	InsertFailures  int
	CommandFailures int
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("servers", r.Servers),
		slog.Int("failed_servers", r.FailedServers),
		slog.Int("players", r.Players),
		slog.Int("kicks", r.Kicks),
		slog.Int("catches", r.Catches),
		slog.Int("insert_failures", r.InsertFailures),
		slog.Int("command_failures", r.CommandFailures),
	)
}

// Enforcer runs enforcement ticks. A single Enforcer must not run ticks
// concurrently; Run guarantees that.
type Enforcer struct {
	store   BanStore
	servers ServerRegistry
	exec    Executor
	cfg     Config
	now     func() time.Time
}

// New creates an Enforcer.
func New(store BanStore, servers ServerRegistry, exec Executor, cfg Config) *Enforcer {
	return &Enforcer{
		store:   store,
		servers: servers,
		exec:    exec,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run executes a tick immediately and then once per interval until ctx is
// cancelled. A tick always completes before the next one starts. Tick errors
// are logged; the loop keeps going, with backoff after repeated failures.
func (e *Enforcer) Run(ctx context.Context) error {
	slog.Info("enforcement loop started", "interval", e.cfg.Interval)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		report, err := e.Tick(ctx)
		switch {
		case ctx.Err() != nil:
			slog.Info("enforcement loop stopped")
			return nil
		case err != nil:
			failures++
			delay := e.backoff(failures)
			slog.Error("enforcement tick failed", "tick", report.TickID, "failures", failures, "next_in", delay, "err", err)
			ticker.Reset(delay)
		default:
			if failures > 0 {
				ticker.Reset(e.cfg.Interval)
			}
			failures = 0
		}

		select {
		case <-ctx.Done():
			slog.Info("enforcement loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (e *Enforcer) backoff(failures int) time.Duration {
	delay := e.cfg.Interval
	if e.cfg.MaxBackoff <= 0 {
		return delay
	}
	for i := 1; i < failures && delay < e.cfg.MaxBackoff; i++ {
		delay *= 2
	}
	return min(delay, e.cfg.MaxBackoff)
}

// Tick performs one enforcement pass over all registered servers.
// Only failures to load the snapshot or the server list are returned;
// per-server and per-player failures are logged and counted in the report.
func (e *Enforcer) Tick(ctx context.Context) (Report, error) {
	report := Report{TickID: uuid.NewString()}
	log := slog.With("tick", report.TickID)

	if e.cfg.ExpireBans {
		n, err := e.store.ExpireBans(ctx, e.now())
		if err != nil {
			log.Warn("expiring bans failed", "err", err)
		} else if n > 0 {
			log.Info("expired bans", "count", n)
		}
	}

	snap, err := LoadSnapshot(ctx, e.store)
	if err != nil {
		return report, fmt.Errorf("loading ban snapshot: %w", err)
	}
	if snap.Empty() {
		report.Skipped = true
		log.Debug("no active ip bans, tick skipped")
		return report, nil
	}

	servers, err := e.servers.ListServers(ctx)
	if err != nil {
		return report, fmt.Errorf("listing servers: %w", err)
	}

	for _, srv := range servers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Servers++
		if err := e.enforceServer(ctx, log, snap, srv, &report); err != nil {
			report.FailedServers++
			log.Warn("server check failed", "server", srv.ID, "err", err)
		}
	}

	log.Info("enforcement tick done", "ip_bans", snap.IPBanCount(), "report", report)
	return report, nil
}

func (e *Enforcer) enforceServer(ctx context.Context, log *slog.Logger, snap *Snapshot, srv model.Server, report *Report) error {
	out, err := e.exec.Exec(ctx, srv.Addr(), srv.RconPassword, status.Command)
	if err != nil {
		return &ServerError{ServerID: srv.ID, Addr: srv.Addr(), Err: err}
	}

	players := status.Parse(out)
	report.Players += len(players)

	for _, p := range players {
		action, ban := snap.Decide(p)
		switch action {
		case ActionKick:
			report.Kicks++
			e.command(ctx, log, srv, report, KickCommand(p.Slot, e.cfg.KickReason))
		case ActionCatch:
			e.catch(ctx, log, snap, srv, p, ban, report)
		}
	}
	return nil
}

// catch records a new evasion: an account ban inheriting the matched ip
// ban's duration and expiry, then ban and kick on the server.
func (e *Enforcer) catch(ctx context.Context, log *slog.Logger, snap *Snapshot, srv model.Server, p model.Player, ipBan model.Ban, report *Report) {
	report.Catches++
	log.Info("caught player bypassing ip ban",
		"server", srv.ID, "ip", p.IP, "identity", p.Identity, "name", p.Name, "ip_ban", ipBan.ID)

	serverID := srv.ID
	rec := &model.Ban{
		Name:         p.Name,
		Identity:     p.Identity,
		IP:           p.IP,
		Kind:         model.BanKindAccount,
		Reason:       e.cfg.BanReason,
		Duration:     ipBan.Duration,
		AdminName:    e.cfg.AdminName,
		ExpiresAt:    ipBan.ExpiresAt,
		OriginServer: &serverID,
	}
	if _, err := e.store.InsertBan(ctx, rec); err != nil {
		// Игрок всё равно должен быть выкинут: запись в БД вторична.
		report.InsertFailures++
		log.Error("recording evasion ban failed", "identity", p.Identity, "err", fmt.Errorf("%w: %w", ErrStoreWrite, err))
	} else {
		snap.MarkBanned(p.Identity)
	}

	// sm_ban адресует игрока по userid, поэтому бан идёт до кика.
	e.command(ctx, log, srv, report, BanCommand(p.Slot, ipBan.Duration, e.cfg.BanReason))
	e.command(ctx, log, srv, report, KickCommand(p.Slot, e.cfg.KickReason))
}

// command sends a fire-and-forget command; failures are logged, never retried.
func (e *Enforcer) command(ctx context.Context, log *slog.Logger, srv model.Server, report *Report, cmd string) {
	if _, err := e.exec.Exec(ctx, srv.Addr(), srv.RconPassword, cmd); err != nil {
		report.CommandFailures++
		log.Warn("enforcement command failed", "server", srv.ID, "err", err)
	}
}
