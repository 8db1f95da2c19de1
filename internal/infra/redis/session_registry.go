// File: internal/infra/redis/session_registry.go
package redis

import (
	"context"
	"fmt"
	"time"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var _ repository.SessionRegistry = (*SessionRegistry)(nil)

// SessionRegistry enforces one questionnaire session per (guild, user) via a
// SetNX token lock. The TTL is a safety net for crashed sessions; normal
// termination releases explicitly.
type SessionRegistry struct {
	cli *redis.Client
}

func NewSessionRegistry(c *Client) *SessionRegistry {
	return &SessionRegistry{cli: c.cli}
}

func key(guildID, userID string) string {
	return fmt.Sprintf("reg_session:%s:%s", guildID, userID)
}

func (r *SessionRegistry) Acquire(ctx context.Context, guildID, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.cli.SetNX(ctx, key(guildID, userID), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire session slot: %w", err)
	}
	if !ok {
		return "", domain.ErrActiveSession
	}
	return token, nil
}

var luaRelease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (r *SessionRegistry) Release(ctx context.Context, guildID, userID, token string) error {
	_, err := luaRelease.Run(ctx, r.cli, []string{key(guildID, userID)}, token).Result()
	return err
}
