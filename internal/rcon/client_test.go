package rcon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/udisondev/banwarden/internal/testutil"
)

func TestClient_ExecOpensConnectionPerCall(t *testing.T) {
	srv := testutil.NewRCONServer(t, "pw")
	srv.Handle(func(cmd string) []string { return []string{"re: " + cmd} })

	c := NewClient(testOptions(), nil)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	out, err := c.Exec(ctx, srv.Addr(), "pw", "status")
	require.NoError(t, err)
	assert.Equal(t, "re: status", out)

	out, err = c.Exec(ctx, srv.Addr(), "pw", `kickid 3 "x"`)
	require.NoError(t, err)
	assert.Equal(t, `re: kickid 3 "x"`, out)

	assert.Equal(t, 2, srv.Connections())
	assert.Equal(t, []string{"status", `kickid 3 "x"`}, srv.Commands())
}

func TestClient_ExecAuthFailed(t *testing.T) {
	srv := testutil.NewRCONServer(t, "pw")
	c := NewClient(testOptions(), nil)

	_, err := c.Exec(testutil.ContextWithTimeout(t, 5*time.Second), srv.Addr(), "bad", "status")
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Empty(t, srv.Commands())
}

func TestClient_Check(t *testing.T) {
	srv := testutil.NewRCONServer(t, "pw")
	c := NewClient(testOptions(), nil)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, c.Check(ctx, srv.Addr(), "pw"))
	require.ErrorIs(t, c.Check(ctx, srv.Addr(), "nope"), ErrAuthFailed)
	require.ErrorIs(t, c.Check(ctx, testutil.ClosedAddr(t), "pw"), ErrConnectRefused)
}

func TestClient_RateLimited(t *testing.T) {
	srv := testutil.NewRCONServer(t, "pw")
	// 1 команда в 200ms, без запаса: третья команда ждёт ~400ms.
	c := NewClient(testOptions(), NewRateLimiter(rate.Every(200*time.Millisecond), 1))
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	start := time.Now()
	for range 3 {
		_, err := c.Exec(ctx, srv.Addr(), "pw", "status")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 350*time.Millisecond)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "sm_ban", commandName(`sm_ban #3 60 "reason"`))
	assert.Equal(t, "status", commandName("status"))
	assert.Equal(t, "", commandName(""))
}
