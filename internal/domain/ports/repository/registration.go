package repository

import (
	"context"
	"time"

	"guild-registration-bot/internal/domain/model"
)

// ConfigRepository persists the per-guild registration record. Load returns
// domain.ErrConfigMissing when no record exists. Save rewrites the whole
// record; there is no compare-and-swap, concurrent admin writes are
// last-write-wins by design.
type ConfigRepository interface {
	Load(ctx context.Context, guildID string) (*model.RegistrationConfig, error)
	Save(ctx context.Context, guildID string, cfg *model.RegistrationConfig) error
}

// AdminRoleRepository persists the guild's admin-role set. Read replays the
// persisted entries in insertion order; Write replaces the whole set.
type AdminRoleRepository interface {
	Read(ctx context.Context, guildID string) ([]string, error)
	Write(ctx context.Context, guildID string, roleIDs []string) error
}

// SessionRegistry enforces at most one in-flight questionnaire per user.
// Acquire returns domain.ErrActiveSession when a session is already running;
// the token must be passed back to Release.
type SessionRegistry interface {
	Acquire(ctx context.Context, guildID, userID string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, guildID, userID, token string) error
}
