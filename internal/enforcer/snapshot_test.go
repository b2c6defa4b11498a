package enforcer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/banwarden/internal/model"
	"github.com/udisondev/banwarden/internal/testutil"
)

func TestNewSnapshot_RepresentativeBan(t *testing.T) {
	now := time.Now()
	soon := now.Add(time.Hour)
	later := now.Add(48 * time.Hour)

	tests := []struct {
		name   string
		bans   []model.Ban
		wantID int64
	}{
		{
			name:   "single",
			bans:   []model.Ban{{ID: 1, IP: "1.2.3.4", ExpiresAt: &soon}},
			wantID: 1,
		},
		{
			name:   "later expiry wins",
			bans:   []model.Ban{{ID: 1, IP: "1.2.3.4", ExpiresAt: &later}, {ID: 2, IP: "1.2.3.4", ExpiresAt: &soon}},
			wantID: 1,
		},
		{
			name:   "permanent wins over timed",
			bans:   []model.Ban{{ID: 1, IP: "1.2.3.4", ExpiresAt: &later}, {ID: 2, IP: "1.2.3.4"}},
			wantID: 2,
		},
		{
			name:   "first permanent kept",
			bans:   []model.Ban{{ID: 1, IP: "1.2.3.4"}, {ID: 2, IP: "1.2.3.4"}},
			wantID: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot(tt.bans, nil)
			b, ok := s.IPBan("1.2.3.4")
			require.True(t, ok)
			assert.Equal(t, tt.wantID, b.ID)
			assert.Equal(t, 1, s.IPBanCount())
		})
	}
}

func TestNewSnapshot_SkipsEmptyIP(t *testing.T) {
	s := NewSnapshot([]model.Ban{{ID: 1, IP: ""}}, []string{"STEAM_1"})
	assert.True(t, s.Empty())
	assert.True(t, s.IsBanned("STEAM_1"))
}

func TestSnapshot_Decide(t *testing.T) {
	s := NewSnapshot(
		[]model.Ban{{ID: 7, IP: "192.0.2.5", Duration: "1d"}},
		[]string{"STEAM_OLD"},
	)

	tests := []struct {
		name   string
		player model.Player
		want   Action
	}{
		{"no ip match", model.Player{Identity: "STEAM_NEW", IP: "198.51.100.1"}, ActionNone},
		{"banned identity", model.Player{Identity: "STEAM_OLD", IP: "192.0.2.5"}, ActionKick},
		{"new evasion", model.Player{Identity: "STEAM_NEW", IP: "192.0.2.5"}, ActionCatch},
		{"bot", model.Player{Identity: model.BotIdentity, IP: "192.0.2.5"}, ActionNone},
		{"empty ip", model.Player{Identity: "STEAM_NEW"}, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, ban := s.Decide(tt.player)
			assert.Equal(t, tt.want, action, action.String())
			if action != ActionNone {
				assert.Equal(t, int64(7), ban.ID)
			}
		})
	}

	s.MarkBanned("STEAM_NEW")
	action, _ := s.Decide(model.Player{Identity: "STEAM_NEW", IP: "192.0.2.5"})
	assert.Equal(t, ActionKick, action)
}

func TestLoadSnapshot(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddBan(model.Ban{IP: "192.0.2.5", Identity: "STEAM_A", Kind: model.BanKindIP, Duration: "1d"})
	store.AddBan(model.Ban{Identity: "STEAM_B", Kind: model.BanKindAccount, Duration: "permanent"})
	store.AddBan(model.Ban{IP: "192.0.2.9", Kind: model.BanKindIP, Status: model.BanStatusExpired})

	s, err := LoadSnapshot(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, 1, s.IPBanCount())
	_, ok := s.IPBan("192.0.2.9")
	assert.False(t, ok)
	assert.True(t, s.IsBanned("STEAM_A"))
	assert.True(t, s.IsBanned("STEAM_B"))
	assert.False(t, s.IsBanned("STEAM_C"))
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "kick", ActionKick.String())
	assert.Equal(t, "catch", ActionCatch.String())
	assert.Equal(t, "unknown", Action(42).String())
}
