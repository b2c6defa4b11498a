// rconctl runs operator commands against a game server over RCON.
//
// Usage:
//
//	go run ./cmd/rconctl -server 3 players
//	go run ./cmd/rconctl -addr 127.0.0.1:27015 -password secret exec "sv_cheats 0"
//	go run ./cmd/rconctl -server 3 ban 17 60 "wallhack"
//
// With -server the target is looked up in the registry and bans are recorded
// in the database; with -addr nothing touches the database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"golang.org/x/time/rate"

	"github.com/udisondev/banwarden/internal/admin"
	"github.com/udisondev/banwarden/internal/config"
	"github.com/udisondev/banwarden/internal/db"
	"github.com/udisondev/banwarden/internal/model"
	"github.com/udisondev/banwarden/internal/rcon"
)

var errUsage = errors.New("usage")

func main() {
	serverID := flag.Int64("server", 0, "registry server id")
	addr := flag.String("addr", "", "raw host:port, bypasses the registry")
	password := flag.String("password", "", "rcon password for -addr")
	adminName := flag.String("admin", "rconctl", "admin name recorded on bans")
	flag.Usage = printUsage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, *serverID, *addr, *password, *adminName, flag.Args())
	if errors.Is(err, errUsage) {
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: rconctl (-server <id> | -addr <host:port> -password <pw>) <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  check                         verify rcon password")
	fmt.Fprintln(os.Stderr, "  players                       list connected players")
	fmt.Fprintln(os.Stderr, "  kick <slot> [reason]          kick a player")
	fmt.Fprintln(os.Stderr, "  ban <slot> <minutes> [reason] ban a player (0 = permanent)")
	fmt.Fprintln(os.Stderr, "  exec <command>                run a raw console command")
	flag.PrintDefaults()
}

func run(ctx context.Context, serverID int64, addr, password, adminName string, args []string) error {
	if len(args) == 0 || (serverID == 0) == (addr == "") {
		return errUsage
	}

	cfg, err := config.LoadWarden(config.ResolvePath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	client := rcon.NewClient(rcon.Options{
		ConnectTimeout:   cfg.RCON.ConnectTimeout,
		AuthTimeout:      cfg.RCON.AuthTimeout,
		ReadTimeout:      cfg.RCON.ReadTimeout,
		ProbeTermination: cfg.RCON.ProbeTermination,
	}, rcon.NewRateLimiter(rate.Limit(cfg.RCON.CommandsPerSecond), cfg.RCON.Burst))

	var svc *admin.Service
	if addr != "" {
		target, err := rawTarget(addr, password)
		if err != nil {
			return err
		}
		svc = admin.NewService(target, discardBans{}, client)
		serverID = target.ID
	} else {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer database.Close()
		svc = admin.NewService(database.Servers(), database.Bans(), client)
	}

	return dispatch(ctx, svc, serverID, adminName, args, os.Stdout)
}

func dispatch(ctx context.Context, svc *admin.Service, id int64, adminName string, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "check":
		if err := svc.CheckServer(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "players":
		players, err := svc.Players(ctx, id)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SLOT\tNAME\tIDENTITY\tIP")
		for _, p := range players {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Slot, p.Name, p.Identity, p.IP)
		}
		return w.Flush()

	case "kick":
		if len(rest) < 1 {
			return errUsage
		}
		return svc.Kick(ctx, id, rest[0], optional(rest, 1))

	case "ban":
		if len(rest) < 2 {
			return errUsage
		}
		minutes, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("%w: minutes %q", errUsage, rest[1])
		}
		ban, err := svc.Ban(ctx, id, rest[0], minutes, optional(rest, 2), adminName)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "banned %s (%s) for %s min\n", ban.Identity, ban.IP, ban.Duration)
		return nil

	case "exec":
		if len(rest) < 1 {
			return errUsage
		}
		text, err := svc.Exec(ctx, id, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// staticTarget serves a single server given on the command line.
type staticTarget struct {
	model.Server
}

func rawTarget(addr, password string) (staticTarget, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return staticTarget{}, fmt.Errorf("parsing -addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return staticTarget{}, fmt.Errorf("parsing -addr port: %w", err)
	}
	return staticTarget{model.Server{ID: -1, Name: addr, Host: host, Port: port, RconPassword: password}}, nil
}

func (t staticTarget) GetServer(ctx context.Context, id int64) (*model.Server, error) {
	if id != t.ID {
		return nil, nil
	}
	s := t.Server
	return &s, nil
}

// discardBans is used without a database: bans are applied in game only.
type discardBans struct{}

func (discardBans) InsertBan(ctx context.Context, b *model.Ban) (int64, error) {
	slog.Info("ban not recorded, no database in -addr mode", "identity", b.Identity)
	return 0, nil
}
