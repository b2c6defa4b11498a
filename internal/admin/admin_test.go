package admin

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/banwarden/internal/model"
	"github.com/udisondev/banwarden/internal/rcon"
	"github.com/udisondev/banwarden/internal/testutil"
)

const statusOutput = "hostname: Test\n" +
	"# userid name uniqueid connected ping loss state rate adr\n" +
	`# 3 1 "Player One" STEAM_0:1:111 01:23 45 0 active 1000 192.0.2.5:27005` + "\n" +
	"#end\n"

type fixture struct {
	fake  *testutil.RCONServer
	store *testutil.MockStore
	svc   *Service
	srv   model.Server
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := testutil.NewRCONServer(t, "secret")
	fake.Handle(func(cmd string) []string {
		if cmd == "status" {
			return []string{statusOutput}
		}
		return []string{"ok"}
	})

	host, portStr, err := net.SplitHostPort(fake.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	store := testutil.NewMockStore()
	srv := store.AddServer(model.Server{Name: "main", Host: host, Port: port, RconPassword: "secret"})

	client := rcon.NewClient(rcon.Options{
		ConnectTimeout:   time.Second,
		AuthTimeout:      time.Second,
		ReadTimeout:      300 * time.Millisecond,
		ProbeTermination: true,
	}, nil)

	f := &fixture{
		fake:  fake,
		store: store,
		svc:   NewService(store, store, client),
		srv:   srv,
		now:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.now }
	return f
}

func testCtx(t *testing.T) context.Context {
	return testutil.ContextWithTimeout(t, 5*time.Second)
}

func TestCheckServer(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.CheckServer(testCtx(t), f.srv.ID))
	assert.Empty(t, f.fake.Commands())

	f.store.AddServer(model.Server{ID: 99, Host: f.srv.Host, Port: f.srv.Port, RconPassword: "wrong"})
	require.ErrorIs(t, f.svc.CheckServer(testCtx(t), 99), rcon.ErrAuthFailed)
}

func TestUnknownServer(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.svc.CheckServer(testCtx(t), 42), ErrServerNotFound)
	_, err := f.svc.Players(testCtx(t), 42)
	require.ErrorIs(t, err, ErrServerNotFound)
	require.ErrorIs(t, f.svc.Kick(testCtx(t), 42, "3", ""), ErrServerNotFound)
	_, err = f.svc.Ban(testCtx(t), 42, "3", 10, "", "root")
	require.ErrorIs(t, err, ErrServerNotFound)
	_, err = f.svc.Exec(testCtx(t), 42, "status")
	require.ErrorIs(t, err, ErrServerNotFound)

	assert.Zero(t, f.fake.Connections())
}

func TestRegistryFailure(t *testing.T) {
	f := newFixture(t)
	f.store.ServersErr = testutil.ErrSimulated

	_, err := f.svc.Players(testCtx(t), f.srv.ID)
	require.ErrorIs(t, err, testutil.ErrSimulated)
}

func TestPlayers(t *testing.T) {
	f := newFixture(t)

	players, err := f.svc.Players(testCtx(t), f.srv.ID)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, model.Player{Slot: "3", Name: "Player One", Identity: "STEAM_0:1:111", IP: "192.0.2.5"}, players[0])
}

func TestKick(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Kick(testCtx(t), f.srv.ID, "3", ""))
	require.NoError(t, f.svc.Kick(testCtx(t), f.srv.ID, "4", "afk"))

	assert.Equal(t, []string{`kickid 3 "Kicked by admin"`, `kickid 4 "afk"`}, f.fake.Commands())
}

func TestBan_KnownPlayer(t *testing.T) {
	f := newFixture(t)

	ban, err := f.svc.Ban(testCtx(t), f.srv.ID, "3", 60, "wallhack", "root")
	require.NoError(t, err)

	assert.Equal(t, []string{"status", `sm_ban #3 60 "wallhack"`}, f.fake.Commands())

	bans := f.store.Bans()
	require.Len(t, bans, 1)
	assert.Equal(t, ban.ID, bans[0].ID)
	assert.Equal(t, model.BanKindIP, bans[0].Kind)
	assert.Equal(t, "Player One", bans[0].Name)
	assert.Equal(t, "STEAM_0:1:111", bans[0].Identity)
	assert.Equal(t, "192.0.2.5", bans[0].IP)
	assert.Equal(t, "60", bans[0].Duration)
	assert.Equal(t, "root", bans[0].AdminName)
	require.NotNil(t, bans[0].ExpiresAt)
	assert.True(t, bans[0].ExpiresAt.Equal(f.now.Add(time.Hour)))
	require.NotNil(t, bans[0].OriginServer)
	assert.Equal(t, f.srv.ID, *bans[0].OriginServer)
}

func TestBan_UnknownPlayerPermanent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ban(testCtx(t), f.srv.ID, "17", 0, "", "root")
	require.NoError(t, err)

	assert.Equal(t, []string{"status", `sm_ban #17 0 "Banned by admin"`}, f.fake.Commands())

	bans := f.store.Bans()
	require.Len(t, bans, 1)
	assert.Equal(t, "Unknown", bans[0].Name)
	assert.Equal(t, "Unknown", bans[0].Identity)
	assert.Equal(t, "0.0.0.0", bans[0].IP)
	assert.Nil(t, bans[0].ExpiresAt)
	assert.Equal(t, "Banned by admin", bans[0].Reason)
}

func TestBan_InsertFailureStillBansInGame(t *testing.T) {
	f := newFixture(t)
	f.store.InsertErr = testutil.ErrSimulated

	_, err := f.svc.Ban(testCtx(t), f.srv.ID, "3", 5, "spam", "root")
	require.NoError(t, err)

	assert.Empty(t, f.store.Bans())
	assert.Equal(t, []string{"status", `sm_ban #3 5 "spam"`}, f.fake.Commands())
}

func TestBan_NegativeMinutes(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ban(testCtx(t), f.srv.ID, "3", -1, "", "root")
	require.ErrorIs(t, err, model.ErrInvalidDuration)
	assert.Zero(t, f.fake.Connections())
}

func TestBan_MinutesOutOfRange(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ban(testCtx(t), f.srv.ID, "17", 200000000, "", "root")
	require.ErrorIs(t, err, model.ErrDurationOutOfRange)

	assert.Empty(t, f.store.Bans())
	assert.Zero(t, f.fake.Connections())
}

func TestExec(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.Exec(testCtx(t), f.srv.ID, "sv_cheats 0")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"sv_cheats 0"}, f.fake.Commands())
}
