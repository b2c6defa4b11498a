package model

import "time"

// BanKind определяет, по какому признаку действует бан.
type BanKind string

const (
	BanKindAccount BanKind = "account"
	BanKindIP      BanKind = "ip"
)

// BanStatus — состояние записи бана.
type BanStatus string

const (
	BanStatusActive  BanStatus = "active"
	BanStatusExpired BanStatus = "expired"
)

// Ban represents a row of the bans table.
// Identity is the engine-native player identity (e.g. STEAM_0:1:111).
type Ban struct {
	ID           int64
	Name         string
	Identity     string
	IP           string
	Kind         BanKind
	Reason       string
	Duration     string // duration token as entered by the admin ("60", "1d", "permanent")
	Status       BanStatus
	AdminName    string
	CreatedAt    time.Time
	ExpiresAt    *time.Time // nil = permanent
	OriginServer *int64
}
