package model

// BotIdentity is the identity token the engine reports for bots.
const BotIdentity = "BOT"

// Player is one connected entity parsed from the status command output.
// Records are ephemeral: produced per parse and never stored.
type Player struct {
	Slot     string // userid used by kickid / sm_ban #<slot>
	Name     string
	Identity string
	IP       string
}

// IsBot reports whether the record belongs to a server-side bot.
func (p Player) IsBot() bool {
	return p.Identity == BotIdentity
}
