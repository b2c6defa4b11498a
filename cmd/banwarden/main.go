package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/udisondev/banwarden/internal/config"
	"github.com/udisondev/banwarden/internal/db"
	"github.com/udisondev/banwarden/internal/enforcer"
	"github.com/udisondev/banwarden/internal/rcon"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := config.ResolvePath()
	cfg, err := config.LoadWarden(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("banwarden starting", "config", cfgPath, "interval", cfg.Enforcement.Interval)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	if _, err := database.EnsureSuperAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}

	if !cfg.Enforcement.Enabled {
		slog.Warn("enforcement disabled, nothing to do")
		return nil
	}

	client := rcon.NewClient(rcon.Options{
		ConnectTimeout:   cfg.RCON.ConnectTimeout,
		AuthTimeout:      cfg.RCON.AuthTimeout,
		ReadTimeout:      cfg.RCON.ReadTimeout,
		ProbeTermination: cfg.RCON.ProbeTermination,
	}, rcon.NewRateLimiter(rate.Limit(cfg.RCON.CommandsPerSecond), cfg.RCON.Burst))

	enf := enforcer.New(database.Bans(), database.Servers(), client, enforcer.Config{
		Interval:   cfg.Enforcement.Interval,
		MaxBackoff: cfg.Enforcement.MaxBackoff,
		KickReason: cfg.Enforcement.KickReason,
		BanReason:  cfg.Enforcement.BanReason,
		AdminName:  cfg.Enforcement.AdminName,
		ExpireBans: cfg.Enforcement.ExpireBans,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := enf.Run(gctx); err != nil {
			return fmt.Errorf("enforcement loop: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service error: %w", err)
	}

	slog.Info("banwarden stopped")
	return nil
}
