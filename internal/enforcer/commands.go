package enforcer

import (
	"fmt"
	"strings"

	"github.com/udisondev/banwarden/internal/model"
)

// KickCommand returns the console command kicking a player by userid.
func KickCommand(slot, reason string) string {
	return fmt.Sprintf(`kickid %s "%s"`, slot, quote(reason))
}

// BanCommand returns the SourceMod command banning a player by userid.
// duration is a ban duration token; sm_ban takes minutes, 0 is permanent.
func BanCommand(slot, duration, reason string) string {
	return fmt.Sprintf(`sm_ban #%s %s "%s"`, slot, model.Minutes(duration), quote(reason))
}

var quoteReplacer = strings.NewReplacer(`"`, `'`, "\x00", "", "\n", " ", "\r", " ")

// quote makes s safe inside a double-quoted console argument.
func quote(s string) string {
	return quoteReplacer.Replace(s)
}
