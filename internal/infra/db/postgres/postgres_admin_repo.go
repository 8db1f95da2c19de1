package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"guild-registration-bot/internal/domain/ports/repository"
)

var _ repository.AdminRoleRepository = (*PostgresAdminRepo)(nil)

type PostgresAdminRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAdminRepo(pool *pgxpool.Pool) *PostgresAdminRepo {
	return &PostgresAdminRepo{pool: pool}
}

func (r *PostgresAdminRepo) Read(ctx context.Context, guildID string) ([]string, error) {
	const q = `SELECT role_id FROM admin_roles WHERE guild_id=$1 ORDER BY position;`
	rows, err := r.pool.Query(ctx, q, guildID)
	if err != nil {
		return nil, fmt.Errorf("read admin roles: %w", err)
	}
	defer rows.Close()
	var roleIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	return roleIDs, rows.Err()
}

// Write replaces the whole set in one transaction. Like the message backend
// there is no compare-and-swap across admins; last write wins.
func (r *PostgresAdminRepo) Write(ctx context.Context, guildID string, roleIDs []string) error {
	return r.pool.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM admin_roles WHERE guild_id=$1;`, guildID); err != nil {
			return fmt.Errorf("clear admin roles: %w", err)
		}
		for i, id := range roleIDs {
			_, err := tx.Exec(ctx,
				`INSERT INTO admin_roles (guild_id, role_id, position) VALUES ($1,$2,$3);`,
				guildID, id, i)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					// Duplicate in the incoming set; first occurrence wins.
					continue
				}
				return fmt.Errorf("insert admin role: %w", err)
			}
		}
		return nil
	})
}
