package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DurationPermanent marks a ban without expiry.
const DurationPermanent = "permanent"

var ErrInvalidDuration = errors.New("invalid duration token")

// ErrDurationOutOfRange is returned for tokens longer than time.Duration can hold
// (about 292 years). It wraps ErrInvalidDuration.
var ErrDurationOutOfRange = fmt.Errorf("%w: out of range", ErrInvalidDuration)

// ParseDuration converts a duration token into a time.Duration.
//
// Supported forms:
//
//	permanent      -> 0, nil (no expiry)
//	<n>            -> n minutes (sm_ban convention, "0" = permanent)
//	<n>s|m|h|d     -> seconds, minutes, hours, days
//	<n>mo|y        -> months (30d) and years (365d), approximate
func ParseDuration(token string) (time.Duration, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == DurationPermanent {
		return 0, nil
	}

	i := 0
	for i < len(token) && token[i] >= '0' && token[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, token)
	}
	n, err := strconv.ParseInt(token[:i], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %q", ErrDurationOutOfRange, token)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, token, err)
	}
	var unit time.Duration
	switch token[i:] {
	case "", "m":
		unit = time.Minute
	case "s":
		unit = time.Second
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "mo":
		unit = 30 * 24 * time.Hour
	case "y":
		unit = 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, token)
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q", ErrDurationOutOfRange, token)
	}
	return time.Duration(n) * unit, nil
}

// ExpiresAt returns the expiry for a ban created at now with the given token.
// Returns nil for permanent bans and for tokens that cannot be parsed.
func ExpiresAt(token string, now time.Time) *time.Time {
	d, err := ParseDuration(token)
	if err != nil || d == 0 {
		return nil
	}
	t := now.Add(d)
	return &t
}

// Minutes renders a duration token as sm_ban minutes ("0" = permanent).
// Tokens out of range become permanent; other unparseable tokens are
// passed through unchanged.
func Minutes(token string) string {
	d, err := ParseDuration(token)
	if errors.Is(err, ErrDurationOutOfRange) {
		return "0"
	}
	if err != nil {
		return token
	}
	return strconv.FormatInt(int64(d/time.Minute), 10)
}
