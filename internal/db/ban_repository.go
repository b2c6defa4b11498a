package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/banwarden/internal/model"
)

// BanRepository provides access to the bans table.
type BanRepository struct {
	pool *pgxpool.Pool
}

// NewBanRepository creates a new BanRepository.
func NewBanRepository(pool *pgxpool.Pool) *BanRepository {
	return &BanRepository{pool: pool}
}

const banColumns = `id, name, steam_id, ip, ban_type, COALESCE(reason, ''), duration, status,
	COALESCE(admin_name, ''), created_at, expires_at, server_id`

func scanBan(row pgx.Row) (model.Ban, error) {
	var b model.Ban
	var kind, status string
	err := row.Scan(&b.ID, &b.Name, &b.Identity, &b.IP, &kind, &b.Reason, &b.Duration, &status,
		&b.AdminName, &b.CreatedAt, &b.ExpiresAt, &b.OriginServer)
	b.Kind = model.BanKind(kind)
	b.Status = model.BanStatus(status)
	return b, err
}

// ListActiveIPBans returns all active ip-kind bans.
func (r *BanRepository) ListActiveIPBans(ctx context.Context) ([]model.Ban, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+banColumns+`
		 FROM bans WHERE status = 'active' AND ban_type = 'ip' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query active ip bans: %w", err)
	}
	defer rows.Close()

	var result []model.Ban
	for rows.Next() {
		b, err := scanBan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// ListBannedIdentities returns identities that have any active ban, of either kind.
func (r *BanRepository) ListBannedIdentities(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT steam_id FROM bans WHERE status = 'active' AND steam_id <> ''`)
	if err != nil {
		return nil, fmt.Errorf("query banned identities: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan banned identities: %w", err)
	}
	return ids, nil
}

// InsertBan inserts an active ban and returns its id. CreatedAt and Status
// on b are filled from the database.
func (r *BanRepository) InsertBan(ctx context.Context, b *model.Ban) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bans (name, steam_id, ip, ban_type, reason, duration, admin_name, expires_at, server_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active')
		 RETURNING id, created_at`,
		b.Name, b.Identity, b.IP, string(b.Kind), b.Reason, b.Duration, b.AdminName, b.ExpiresAt, b.OriginServer,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert ban for %q: %w", b.Identity, err)
	}
	b.Status = model.BanStatusActive
	return b.ID, nil
}

// GetBan returns a ban by id. Returns nil, nil if not found.
func (r *BanRepository) GetBan(ctx context.Context, id int64) (*model.Ban, error) {
	b, err := scanBan(r.pool.QueryRow(ctx, `SELECT `+banColumns+` FROM bans WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ban %d: %w", id, err)
	}
	return &b, nil
}

// ExpireBans marks active bans whose expiry is before now as expired.
// Returns the number of bans updated.
func (r *BanRepository) ExpireBans(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bans SET status = 'expired'
		 WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire bans: %w", err)
	}
	return tag.RowsAffected(), nil
}
