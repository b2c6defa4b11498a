package rcon

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/udisondev/banwarden/internal/protocol"
)

// State — состояние RCON соединения.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateReady  // authenticated, commands allowed
	StateFailed // terminal, see Conn.Err
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Options holds per-operation timeouts.
type Options struct {
	ConnectTimeout time.Duration
	AuthTimeout    time.Duration

	// ReadTimeout is the idle window for command responses: accumulation
	// stops when no frame arrives for this long.
	ReadTimeout time.Duration

	// ProbeTermination sends an empty RESPONSE_VALUE frame after each command
	// and stops reading once the server echoes it back. ReadTimeout still
	// applies for servers that never echo.
	ProbeTermination bool
}

// DefaultOptions returns the reference timeouts (5s connect, 5s auth, 3s read).
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:   5 * time.Second,
		AuthTimeout:      5 * time.Second,
		ReadTimeout:      3 * time.Second,
		ProbeTermination: true,
	}
}

// Conn is one authenticated RCON session over a TCP stream.
// A Conn is owned by a single operation and is not safe for concurrent use.
type Conn struct {
	conn   net.Conn
	reader *protocol.Reader
	opts   Options
	wbuf   []byte

	state  State
	err    error
	nextID int32
}

// Dial opens a TCP connection to addr and authenticates with password.
// The returned Conn is in StateReady; the caller must Close it.
func Dial(ctx context.Context, addr, password string, opts Options) (*Conn, error) {
	d := net.Dialer{Timeout: opts.ConnectTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDialErr(addr, err)
	}

	c := NewConn(nc, opts)
	if err := c.Authenticate(ctx, password); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return c, nil
}

// NewConn wraps an already connected stream. The session still has to be
// authenticated with Authenticate before Execute.
func NewConn(nc net.Conn, opts Options) *Conn {
	return &Conn{
		conn:   nc,
		reader: protocol.NewReader(nc),
		opts:   opts,
		state:  StateConnecting,
	}
}

// State returns the current session state.
func (c *Conn) State() State {
	return c.state
}

// Err returns the reason the session entered StateFailed.
func (c *Conn) Err() error {
	return c.err
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	if c.state != StateFailed {
		c.state = StateDisconnected
	}
	return c.conn.Close()
}

// Authenticate sends SERVERDATA_AUTH and waits for SERVERDATA_AUTH_RESPONSE.
//
// Success: the response id echoes the request id. Failure: the response id
// is -1, whatever the body says. RESPONSE_VALUE frames before the auth
// response are skipped (Source sends an empty one first).
func (c *Conn) Authenticate(ctx context.Context, password string) error {
	c.state = StateAuthenticating

	id := c.newID()
	if err := c.writePacket(id, protocol.TypeAuth, []byte(password)); err != nil {
		return c.fail(fmt.Errorf("sending auth packet: %w", err))
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.AuthTimeout)); err != nil {
		return c.fail(fmt.Errorf("setting auth deadline: %w", err))
	}
	defer c.conn.SetReadDeadline(time.Time{})

	// После дедлайна: отмена ctx не должна быть перезаписана им.
	stop := c.watch(ctx)
	defer stop()

	for {
		p, err := c.reader.Next()
		if err != nil {
			return c.fail(classifyReadErr(ctx, err))
		}
		if p.Type != protocol.TypeAuthResponse {
			continue
		}
		switch p.ID {
		case -1:
			return c.fail(ErrAuthFailed)
		case id:
			c.state = StateReady
			return nil
		}
	}
}

func (c *Conn) fail(err error) error {
	c.state = StateFailed
	c.err = err
	return err
}

// watch forces the read deadline when ctx is cancelled so a blocked Read returns.
func (c *Conn) watch(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
}

// newID returns a request id that is never -1 (reserved for auth failure)
// and never 0.
func (c *Conn) newID() int32 {
	c.nextID++
	if c.nextID <= 0 {
		c.nextID = 1
	}
	return c.nextID
}

func (c *Conn) writePacket(id int32, typ protocol.PacketType, body []byte) error {
	var err error
	c.wbuf, err = protocol.AppendPacket(c.wbuf[:0], id, typ, body)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(c.wbuf); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}
