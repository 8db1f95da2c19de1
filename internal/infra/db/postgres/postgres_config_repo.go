package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"guild-registration-bot/internal/codec"
	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/repository"
	"guild-registration-bot/internal/infra/metrics"
)

var _ repository.ConfigRepository = (*PostgresConfigRepo)(nil)

// PostgresConfigRepo is the database-backed config store. The question list
// is persisted with the same blob codec as the message backend, so records
// can be migrated between backends without translation.
type PostgresConfigRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresConfigRepo(pool *pgxpool.Pool) *PostgresConfigRepo {
	return &PostgresConfigRepo{pool: pool}
}

func (r *PostgresConfigRepo) Load(ctx context.Context, guildID string) (*model.RegistrationConfig, error) {
	const q = `
SELECT registration_channel_id, management_channel_id, mode, manager_role_ids, questions
  FROM registration_configs WHERE guild_id=$1;
`
	var (
		cfg      model.RegistrationConfig
		modeRaw  string
		blob     string
		managers []string
	)
	row := r.pool.QueryRow(ctx, q, guildID)
	if err := row.Scan(&cfg.RegistrationChannelID, &cfg.ManagementChannelID, &modeRaw, &managers, &blob); err != nil {
		if err == pgx.ErrNoRows {
			metrics.IncConfigOp("postgres", "load", "missing")
			return nil, domain.ErrConfigMissing
		}
		metrics.IncConfigOp("postgres", "load", "error")
		return nil, fmt.Errorf("load config: %w", err)
	}
	mode, err := model.ParseMode(modeRaw)
	if err != nil {
		mode = model.ModeManual
	}
	cfg.Mode = mode
	cfg.ManagerRoleIDs = managers
	questions, dropped := codec.DecodeQuestions(blob)
	cfg.Questions = questions
	metrics.AddDroppedParagraphs(dropped)
	metrics.IncConfigOp("postgres", "load", "ok")
	return &cfg, nil
}

func (r *PostgresConfigRepo) Save(ctx context.Context, guildID string, cfg *model.RegistrationConfig) error {
	const q = `
INSERT INTO registration_configs (
  guild_id, registration_channel_id, management_channel_id, mode, manager_role_ids, questions, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6, now()
) ON CONFLICT (guild_id) DO UPDATE SET
  registration_channel_id=$2, management_channel_id=$3, mode=$4,
  manager_role_ids=$5, questions=$6, updated_at=now();
`
	managers := cfg.ManagerRoleIDs
	if managers == nil {
		managers = []string{}
	}
	_, err := r.pool.Exec(ctx, q,
		guildID, cfg.RegistrationChannelID, cfg.ManagementChannelID,
		string(cfg.Mode), managers, codec.EncodeQuestions(cfg.Questions))
	if err != nil {
		metrics.IncConfigOp("postgres", "save", "error")
		return fmt.Errorf("save config: %w", err)
	}
	metrics.IncConfigOp("postgres", "save", "ok")
	return nil
}
