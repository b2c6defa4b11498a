// Package admin implements on-demand server operations for operators:
// connectivity check, player listing, kick, ban and raw commands.
// Each call opens its own RCON connection, independent of the enforcement loop.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/udisondev/banwarden/internal/enforcer"
	"github.com/udisondev/banwarden/internal/model"
	"github.com/udisondev/banwarden/internal/status"
)

var ErrServerNotFound = errors.New("server not found")

const (
	DefaultKickReason = "Kicked by admin"
	DefaultBanReason  = "Banned by admin"

	unknownPlayer = "Unknown"
	unknownIP     = "0.0.0.0"
)

// ServerLookup resolves registry ids to servers. Returns nil, nil when missing.
type ServerLookup interface {
	GetServer(ctx context.Context, id int64) (*model.Server, error)
}

// BanWriter records bans.
type BanWriter interface {
	InsertBan(ctx context.Context, b *model.Ban) (int64, error)
}

// Executor runs one RCON command.
type Executor interface {
	Exec(ctx context.Context, addr, password, command string) (string, error)
	Check(ctx context.Context, addr, password string) error
}

// Service performs operator actions against registered servers.
type Service struct {
	servers ServerLookup
	bans    BanWriter
	exec    Executor
	now     func() time.Time
}

// NewService creates a Service.
func NewService(servers ServerLookup, bans BanWriter, exec Executor) *Service {
	return &Service{servers: servers, bans: bans, exec: exec, now: time.Now}
}

func (s *Service) server(ctx context.Context, id int64) (*model.Server, error) {
	srv, err := s.servers.GetServer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading server %d: %w", id, err)
	}
	if srv == nil {
		return nil, fmt.Errorf("%w: %d", ErrServerNotFound, id)
	}
	return srv, nil
}

// CheckServer verifies that the server accepts its stored RCON password.
func (s *Service) CheckServer(ctx context.Context, id int64) error {
	srv, err := s.server(ctx, id)
	if err != nil {
		return err
	}
	return s.exec.Check(ctx, srv.Addr(), srv.RconPassword)
}

// Players returns the players currently connected to the server.
func (s *Service) Players(ctx context.Context, id int64) ([]model.Player, error) {
	srv, err := s.server(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.exec.Exec(ctx, srv.Addr(), srv.RconPassword, status.Command)
	if err != nil {
		return nil, err
	}
	return status.Parse(out), nil
}

// Kick removes the player in slot from the server.
func (s *Service) Kick(ctx context.Context, id int64, slot, reason string) error {
	srv, err := s.server(ctx, id)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = DefaultKickReason
	}
	if _, err := s.exec.Exec(ctx, srv.Addr(), srv.RconPassword, enforcer.KickCommand(slot, reason)); err != nil {
		return fmt.Errorf("kicking %s: %w", slot, err)
	}
	slog.Info("player kicked", "server", srv.ID, "slot", slot, "reason", reason)
	return nil
}

// Ban records an ip ban for the player in slot and bans them on the server.
// minutes == 0 is permanent. The player's identity and address are taken
// from the current status output; a player that cannot be found is recorded
// as unknown. A failed insert is logged and the in-game ban still runs.
func (s *Service) Ban(ctx context.Context, id int64, slot string, minutes int, reason, adminName string) (*model.Ban, error) {
	if minutes < 0 {
		return nil, fmt.Errorf("%w: negative minutes %d", model.ErrInvalidDuration, minutes)
	}
	duration := strconv.Itoa(minutes)
	if _, err := model.ParseDuration(duration); err != nil {
		return nil, err
	}
	srv, err := s.server(ctx, id)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = DefaultBanReason
	}

	p := model.Player{Slot: slot, Name: unknownPlayer, Identity: unknownPlayer, IP: unknownIP}
	if out, err := s.exec.Exec(ctx, srv.Addr(), srv.RconPassword, status.Command); err != nil {
		slog.Warn("status before ban failed", "server", srv.ID, "err", err)
	} else if found, ok := status.FindBySlot(status.Parse(out), slot); ok {
		p = found
	}

	serverID := srv.ID
	ban := &model.Ban{
		Name:         p.Name,
		Identity:     p.Identity,
		IP:           p.IP,
		Kind:         model.BanKindIP,
		Reason:       reason,
		Duration:     duration,
		AdminName:    adminName,
		ExpiresAt:    model.ExpiresAt(duration, s.now()),
		OriginServer: &serverID,
	}
	if _, err := s.bans.InsertBan(ctx, ban); err != nil {
		slog.Error("recording ban failed", "server", srv.ID, "identity", p.Identity, "err", err)
	} else {
		slog.Info("ban recorded", "id", ban.ID, "identity", p.Identity, "ip", p.IP, "admin", adminName)
	}

	if _, err := s.exec.Exec(ctx, srv.Addr(), srv.RconPassword, enforcer.BanCommand(slot, duration, reason)); err != nil {
		return ban, fmt.Errorf("banning %s: %w", slot, err)
	}
	return ban, nil
}

// Exec runs a raw console command and returns its output.
func (s *Service) Exec(ctx context.Context, id int64, command string) (string, error) {
	srv, err := s.server(ctx, id)
	if err != nil {
		return "", err
	}
	return s.exec.Exec(ctx, srv.Addr(), srv.RconPassword, command)
}
