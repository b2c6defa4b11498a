package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/udisondev/banwarden/internal/model"
)

// MockStore — in-memory ban store и реестр серверов для unit тестов.
// Не требует реального PostgreSQL.
type MockStore struct {
	mu      sync.Mutex
	bans    []model.Ban
	servers []model.Server
	nextBan int64

	// Ошибки для проверки путей отказа; nil — нормальная работа.
	InsertErr  error
	ListErr    error
	ServersErr error
	ExpireErr  error

	listCalls int
}

// NewMockStore создаёт пустой MockStore.
func NewMockStore() *MockStore {
	return &MockStore{nextBan: 1}
}

// AddBan stores b as is (active unless Status says otherwise) and returns its id.
func (m *MockStore) AddBan(b model.Ban) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.ID = m.nextBan
	m.nextBan++
	if b.Status == "" {
		b.Status = model.BanStatusActive
	}
	m.bans = append(m.bans, b)
	return b.ID
}

// AddServer registers s, assigning the next id when s.ID is zero.
func (m *MockStore) AddServer(s model.Server) model.Server {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == 0 {
		s.ID = int64(len(m.servers) + 1)
	}
	m.servers = append(m.servers, s)
	return s
}

// Bans returns a copy of all stored bans.
func (m *MockStore) Bans() []model.Ban {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.bans)
}

// ListCalls returns how many times ListActiveIPBans was called.
func (m *MockStore) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// ListActiveIPBans returns active ip-kind bans.
func (m *MockStore) ListActiveIPBans(ctx context.Context) ([]model.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []model.Ban
	for _, b := range m.bans {
		if b.Status == model.BanStatusActive && b.Kind == model.BanKindIP {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListBannedIdentities returns identities with any active ban.
func (m *MockStore) ListBannedIdentities(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []string
	for _, b := range m.bans {
		if b.Status == model.BanStatusActive && b.Identity != "" && !slices.Contains(out, b.Identity) {
			out = append(out, b.Identity)
		}
	}
	return out, nil
}

// InsertBan stores an active ban.
func (m *MockStore) InsertBan(ctx context.Context, b *model.Ban) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	b.ID = m.nextBan
	m.nextBan++
	b.Status = model.BanStatusActive
	b.CreatedAt = time.Now()
	m.bans = append(m.bans, *b)
	return b.ID, nil
}

// ExpireBans marks elapsed active bans as expired.
func (m *MockStore) ExpireBans(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ExpireErr != nil {
		return 0, m.ExpireErr
	}
	var n int64
	for i := range m.bans {
		b := &m.bans[i]
		if b.Status == model.BanStatusActive && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
			b.Status = model.BanStatusExpired
			n++
		}
	}
	return n, nil
}

// ListServers returns registered servers.
func (m *MockStore) ListServers(ctx context.Context) ([]model.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ServersErr != nil {
		return nil, m.ServersErr
	}
	return slices.Clone(m.servers), nil
}

// GetServer returns a server by id, nil when missing.
func (m *MockStore) GetServer(ctx context.Context, id int64) (*model.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ServersErr != nil {
		return nil, m.ServersErr
	}
	for _, s := range m.servers {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}
