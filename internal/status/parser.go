// Package status parses the text returned by the engine's "status" command.
//
// The format has no schema and differs slightly between engine builds, so the
// parser works line by line and silently skips anything it does not
// recognise. A player line looks roughly like
//
//	# 3 1 "Player One" STEAM_0:1:111 01:23 45 0 active 1000 192.0.2.5:27005
//	# <userid> <slot> "<name>" <identity> <time> <ping> <loss> <state> <rate> <ip:port>
package status

import (
	"strings"

	"github.com/udisondev/banwarden/internal/model"
)

// Command is the console command whose output Parse understands.
const Command = "status"

// Parse extracts connected players from status output.
// Bots and lines without a usable address are omitted. Parse never fails.
func Parse(text string) []model.Player {
	var players []model.Player
	for line := range strings.Lines(text) {
		if p, ok := ParseLine(line); ok {
			players = append(players, p)
		}
	}
	return players
}

// ParseLine parses a single status line. ok is false when the line is not a
// player line or does not match the grammar.
func ParseLine(line string) (p model.Player, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "#") {
		return model.Player{}, false
	}

	first := strings.IndexByte(line, '"')
	last := strings.LastIndexByte(line, '"')
	if first < 0 || first >= last {
		return model.Player{}, false
	}

	// userid — первый токен после "#": "# 3 1 "name"" и "#3 "name"".
	// Строка без номера перед именем не является строкой игрока.
	pre := strings.Fields(strings.TrimPrefix(line[:first], "#"))
	if len(pre) == 0 {
		return model.Player{}, false
	}
	slot := pre[0]
	if slot == "" || slot == "#" {
		return model.Player{}, false
	}

	post := strings.Fields(line[last+1:])
	if len(post) < 2 {
		return model.Player{}, false
	}

	identity := post[0]
	if identity == model.BotIdentity {
		return model.Player{}, false
	}

	addr := post[len(post)-1]
	ip, _, _ := strings.Cut(addr, ":")
	if ip == "" {
		return model.Player{}, false
	}

	return model.Player{
		Slot:     slot,
		Name:     line[first+1 : last],
		Identity: identity,
		IP:       ip,
	}, true
}

// FindBySlot returns the player with the given userid.
func FindBySlot(players []model.Player, slot string) (model.Player, bool) {
	for _, p := range players {
		if p.Slot == slot {
			return p, true
		}
	}
	return model.Player{}, false
}
