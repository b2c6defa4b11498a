package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		token string
		want  time.Duration
	}{
		{"permanent", 0},
		{"", 0},
		{"0", 0},
		{"90", 90 * time.Minute},
		{"30m", 30 * time.Minute},
		{"45s", 45 * time.Second},
		{"12h", 12 * time.Hour},
		{"1d", 24 * time.Hour},
		{"2mo", 60 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
		{" 7d ", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseDuration(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, token := range []string{"d", "forever", "1w", "-5m", "99999999999999999999"} {
		t.Run(token, func(t *testing.T) {
			_, err := ParseDuration(token)
			require.ErrorIs(t, err, ErrInvalidDuration)
		})
	}
}

func TestParseDuration_OutOfRange(t *testing.T) {
	for _, token := range []string{"200000000", "400y", "3600mo", "110000d", "99999999999999999999"} {
		t.Run(token, func(t *testing.T) {
			d, err := ParseDuration(token)
			require.ErrorIs(t, err, ErrDurationOutOfRange)
			require.ErrorIs(t, err, ErrInvalidDuration)
			assert.Zero(t, d)
		})
	}

	// Граница: 292 года ещё помещаются в time.Duration.
	d, err := ParseDuration("292y")
	require.NoError(t, err)
	assert.Positive(t, d)
}

func TestOutOfRangeNeverGoesBackInTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, ExpiresAt("200000000", now))
	assert.Nil(t, ExpiresAt("400y", now))
	assert.Equal(t, "0", Minutes("200000000"))
	assert.Equal(t, "0", Minutes("400y"))

	got := ExpiresAt("292y", now)
	require.NotNil(t, got)
	assert.True(t, got.After(now))
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got := ExpiresAt("1d", now)
	require.NotNil(t, got)
	assert.Equal(t, now.Add(24*time.Hour), *got)

	assert.Nil(t, ExpiresAt("permanent", now))
	assert.Nil(t, ExpiresAt("0", now))
	assert.Nil(t, ExpiresAt("garbage", now))
}

func TestMinutes(t *testing.T) {
	assert.Equal(t, "0", Minutes("permanent"))
	assert.Equal(t, "1440", Minutes("1d"))
	assert.Equal(t, "15", Minutes("15"))
	assert.Equal(t, "0", Minutes("30s"))
	assert.Equal(t, "forever", Minutes("forever"))
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, "10.0.0.1:27015", Server{Host: "10.0.0.1", Port: 27015}.Addr())
	assert.Equal(t, "[::1]:27015", Server{Host: "::1", Port: 27015}.Addr())
}

func TestPlayerIsBot(t *testing.T) {
	assert.True(t, Player{Identity: BotIdentity}.IsBot())
	assert.False(t, Player{Identity: "STEAM_0:1:1"}.IsBot())
}
