package rcon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/udisondev/banwarden/internal/protocol"
)

// Execute runs one command and returns its full text response.
//
// The protocol has no end-of-response marker, so the response is considered
// complete when either
//   - the empty probe frame sent right after the command is echoed back
//     (Options.ProbeTermination), or
//   - no frame arrives within Options.ReadTimeout, or the server closes the stream.
//
// Text received before a timeout or close is returned without error.
// ErrResponseTimeout is returned only if nothing at all was received.
func (c *Conn) Execute(ctx context.Context, command string) (string, error) {
	if c.state != StateReady {
		return "", ErrNotReady
	}

	id := c.newID()
	if err := c.writePacket(id, protocol.TypeExecCommand, []byte(command)); err != nil {
		return "", fmt.Errorf("sending command: %w", err)
	}

	var probeID int32
	if c.opts.ProbeTermination {
		probeID = c.newID()
		if err := c.writePacket(probeID, protocol.TypeResponseValue, nil); err != nil {
			return "", fmt.Errorf("sending probe: %w", err)
		}
	}

	stop := c.watch(ctx)
	defer stop()
	defer c.conn.SetReadDeadline(time.Time{})

	// Фрагменты склеиваются байтами: многобайтный символ может быть разрезан.
	var out []byte
	text := func() string { return strings.ToValidUTF8(string(out), "\uFFFD") }
	for {
		if err := ctx.Err(); err != nil {
			return text(), err
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
			return "", fmt.Errorf("setting read deadline: %w", err)
		}
		// Отмена могла прийти до SetReadDeadline и быть им затёрта.
		if err := ctx.Err(); err != nil {
			return text(), err
		}

		p, err := c.reader.Next()
		if err != nil {
			err = classifyReadErr(ctx, err)
			switch {
			case len(out) > 0 && (errors.Is(err, ErrResponseTimeout) || errors.Is(err, ErrConnectionClosed)):
				return text(), nil
			case errors.Is(err, ErrConnectionClosed):
				return "", fmt.Errorf("%w: %w", ErrResponseTimeout, err)
			default:
				return text(), err
			}
		}

		if probeID != 0 && p.ID == probeID {
			// Эхо пробы: всё, что относилось к команде, уже прочитано.
			return text(), nil
		}
		if p.ID != id || p.Type != protocol.TypeResponseValue {
			continue
		}
		out = append(out, p.Body...)
	}
}
