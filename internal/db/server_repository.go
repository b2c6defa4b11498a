package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/banwarden/internal/model"
)

// ServerRepository provides access to the servers and server_groups tables.
type ServerRepository struct {
	pool *pgxpool.Pool
}

// NewServerRepository creates a new ServerRepository.
func NewServerRepository(pool *pgxpool.Pool) *ServerRepository {
	return &ServerRepository{pool: pool}
}

const serverColumns = `id, COALESCE(group_id, 0), name, ip, port, COALESCE(rcon_password, '')`

func scanServer(row pgx.Row) (model.Server, error) {
	var s model.Server
	err := row.Scan(&s.ID, &s.GroupID, &s.Name, &s.Host, &s.Port, &s.RconPassword)
	return s, err
}

// ListServers returns all registered servers ordered by id.
func (r *ServerRepository) ListServers(ctx context.Context) ([]model.Server, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

	var result []model.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetServer returns a server by id. Returns nil, nil if not found.
func (r *ServerRepository) GetServer(ctx context.Context, id int64) (*model.Server, error) {
	s, err := scanServer(r.pool.QueryRow(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query server %d: %w", id, err)
	}
	return &s, nil
}

// CreateGroup inserts a server group and returns its id.
func (r *ServerRepository) CreateGroup(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO server_groups (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert server group %q: %w", name, err)
	}
	return id, nil
}

// CreateServer inserts a server and returns its id. GroupID 0 means no group.
func (r *ServerRepository) CreateServer(ctx context.Context, s *model.Server) (int64, error) {
	var group *int64
	if s.GroupID != 0 {
		group = &s.GroupID
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO servers (group_id, name, ip, port, rcon_password)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		group, s.Name, s.Host, s.Port, s.RconPassword,
	).Scan(&s.ID)
	if err != nil {
		return 0, fmt.Errorf("insert server %q: %w", s.Name, err)
	}
	return s.ID, nil
}
