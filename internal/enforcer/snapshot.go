package enforcer

import (
	"context"
	"fmt"

	"github.com/udisondev/banwarden/internal/model"
)

// Snapshot is the per-tick view of active bans: one representative ip ban
// per address and the set of identities that already have an active ban.
// It is owned by a single tick and discarded afterwards.
type Snapshot struct {
	ipBans     map[string]model.Ban
	identities map[string]struct{}
}

// LoadSnapshot reads active bans from the store with two queries.
func LoadSnapshot(ctx context.Context, store BanStore) (*Snapshot, error) {
	ipBans, err := store.ListActiveIPBans(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ip bans: %w", err)
	}
	if len(ipBans) == 0 {
		// Identities are only consulted on an ip match.
		return NewSnapshot(nil, nil), nil
	}

	identities, err := store.ListBannedIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading banned identities: %w", err)
	}
	return NewSnapshot(ipBans, identities), nil
}

// NewSnapshot builds a snapshot from already loaded data.
// When several ip bans share an address the one expiring last wins;
// a permanent ban beats any timed one.
func NewSnapshot(ipBans []model.Ban, identities []string) *Snapshot {
	s := &Snapshot{
		ipBans:     make(map[string]model.Ban, len(ipBans)),
		identities: make(map[string]struct{}, len(identities)),
	}
	for _, b := range ipBans {
		if b.IP == "" {
			continue
		}
		if cur, ok := s.ipBans[b.IP]; ok && !outlasts(b, cur) {
			continue
		}
		s.ipBans[b.IP] = b
	}
	for _, id := range identities {
		s.identities[id] = struct{}{}
	}
	return s
}

func outlasts(a, b model.Ban) bool {
	switch {
	case b.ExpiresAt == nil:
		return false
	case a.ExpiresAt == nil:
		return true
	default:
		return a.ExpiresAt.After(*b.ExpiresAt)
	}
}

// Empty reports whether there are no active ip bans to enforce.
func (s *Snapshot) Empty() bool {
	return len(s.ipBans) == 0
}

// IPBanCount returns the number of distinct banned addresses.
func (s *Snapshot) IPBanCount() int {
	return len(s.ipBans)
}

// IPBan returns the representative ban for ip.
func (s *Snapshot) IPBan(ip string) (model.Ban, bool) {
	b, ok := s.ipBans[ip]
	return b, ok
}

// IsBanned reports whether identity already has an active ban.
func (s *Snapshot) IsBanned(identity string) bool {
	_, ok := s.identities[identity]
	return ok
}

// MarkBanned records identity as banned for the rest of the tick.
func (s *Snapshot) MarkBanned(identity string) {
	s.identities[identity] = struct{}{}
}

// Action is the decision for one connected player.
type Action int

const (
	ActionNone  Action = iota
	ActionKick         // ip banned, identity already banned elsewhere
	ActionCatch        // ip banned, identity not yet banned: new evasion
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionKick:
		return "kick"
	case ActionCatch:
		return "catch"
	default:
		return "unknown"
	}
}

// Decide classifies a player against the snapshot. For ActionKick and
// ActionCatch the matched ip ban is returned.
func (s *Snapshot) Decide(p model.Player) (Action, model.Ban) {
	if p.IsBot() || p.IP == "" {
		return ActionNone, model.Ban{}
	}
	ban, ok := s.ipBans[p.IP]
	if !ok {
		return ActionNone, model.Ban{}
	}
	if s.IsBanned(p.Identity) {
		return ActionKick, ban
	}
	return ActionCatch, ban
}
