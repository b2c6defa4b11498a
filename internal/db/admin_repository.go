package db

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// EnsureSuperAdmin creates the initial super_admin account when the admins
// table is empty. Returns true if an account was created.
func (d *DB) EnsureSuperAdmin(ctx context.Context, username, password string) (bool, error) {
	var count int64
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return false, fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing admin password: %w", err)
	}

	// ON CONFLICT: два процесса могли одновременно увидеть пустую таблицу.
	tag, err := d.pool.Exec(ctx,
		`INSERT INTO admins (username, password, role) VALUES ($1, $2, 'super_admin')
		 ON CONFLICT (username) DO NOTHING`,
		username, string(hash))
	if err != nil {
		return false, fmt.Errorf("creating super admin %q: %w", username, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	slog.Info("created default super admin", "username", username)
	return true, nil
}
