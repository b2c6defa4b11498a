package rcon

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Client executes commands with one short-lived connection per call:
// dial, authenticate, execute, close. Nothing is pooled or reused.
// Client is safe for concurrent use.
type Client struct {
	opts    Options
	limiter *RateLimiter
}

// NewClient creates a Client. limiter may be nil.
func NewClient(opts Options, limiter *RateLimiter) *Client {
	return &Client{opts: opts, limiter: limiter}
}

// Exec connects to addr, authenticates and runs command.
func (c *Client) Exec(ctx context.Context, addr, password, command string) (string, error) {
	if err := c.limiter.Wait(ctx, addr); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	start := time.Now()
	conn, err := Dial(ctx, addr, password, c.opts)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	out, err := conn.Execute(ctx, command)
	if err != nil {
		return out, fmt.Errorf("executing %q on %s: %w", commandName(command), addr, err)
	}

	slog.Debug("rcon command executed",
		"addr", addr,
		"command", commandName(command),
		"bytes", len(out),
		"took", time.Since(start))
	return out, nil
}

// Check verifies that addr accepts the password. No command is run.
func (c *Client) Check(ctx context.Context, addr, password string) error {
	conn, err := Dial(ctx, addr, password, c.opts)
	if err != nil {
		return err
	}
	return conn.Close()
}

// commandName returns the first word of a command for logs; arguments may
// carry player names and reasons.
func commandName(command string) string {
	for i := 0; i < len(command); i++ {
		if command[i] == ' ' {
			return command[:i]
		}
	}
	return command
}
