// Package store implements the message-embed-backed repositories: guild
// configuration lives inside specially-titled messages in a hidden data
// category, wire-compatible with records written by earlier bot versions.
package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/codec"
	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/adapter"
	"guild-registration-bot/internal/domain/ports/repository"
	"guild-registration-bot/internal/infra/metrics"
)

const (
	// DefaultDataCategory is the hidden category the data channels live under.
	DefaultDataCategory = "registration-system-data"

	registrationDataChannel = "registration-data"
	// recordScan bounds the history walk when locating the config record.
	recordScan = 500
)

var _ repository.ConfigRepository = (*MessageConfigRepo)(nil)

type MessageConfigRepo struct {
	gw       adapter.ChatGateway
	category string
	log      *zerolog.Logger
}

// NewMessageConfigRepo stores the config record in the named hidden category.
func NewMessageConfigRepo(gw adapter.ChatGateway, category string, logger *zerolog.Logger) *MessageConfigRepo {
	return &MessageConfigRepo{gw: gw, category: category, log: logger}
}

func (r *MessageConfigRepo) Load(ctx context.Context, guildID string) (*model.RegistrationConfig, error) {
	msg, err := r.findRecord(ctx, guildID)
	if err != nil {
		metrics.IncConfigOp("message", "load", "error")
		return nil, err
	}
	if msg == nil {
		metrics.IncConfigOp("message", "load", "missing")
		return nil, domain.ErrConfigMissing
	}
	cfg, dropped, err := codec.DecodeConfig(*msg.Embed)
	if err != nil {
		metrics.IncConfigOp("message", "load", "malformed")
		return nil, fmt.Errorf("decode config record: %w", err)
	}
	if dropped > 0 {
		metrics.AddDroppedParagraphs(dropped)
		r.log.Warn().Str("guild_id", guildID).Int("dropped", dropped).
			Msg("dropped malformed question paragraphs during decode")
	}
	metrics.IncConfigOp("message", "load", "ok")
	return cfg, nil
}

func (r *MessageConfigRepo) Save(ctx context.Context, guildID string, cfg *model.RegistrationConfig) error {
	embed := codec.EncodeConfig(cfg)
	msg, err := r.findRecord(ctx, guildID)
	if err != nil {
		metrics.IncConfigOp("message", "save", "error")
		return err
	}
	if msg != nil {
		if err := r.gw.EditEmbed(ctx, msg.ChannelID, msg.ID, embed); err != nil {
			metrics.IncConfigOp("message", "save", "error")
			return fmt.Errorf("rewrite config record: %w", err)
		}
		metrics.IncConfigOp("message", "save", "ok")
		return nil
	}
	ch, err := r.dataChannel(ctx, guildID)
	if err != nil {
		metrics.IncConfigOp("message", "save", "error")
		return err
	}
	if _, err := r.gw.SendEmbed(ctx, ch.ID, embed); err != nil {
		metrics.IncConfigOp("message", "save", "error")
		return fmt.Errorf("write config record: %w", err)
	}
	metrics.IncConfigOp("message", "save", "ok")
	return nil
}

func (r *MessageConfigRepo) dataChannel(ctx context.Context, guildID string) (*adapter.Channel, error) {
	catID, err := r.gw.EnsureCategory(ctx, guildID, r.category)
	if err != nil {
		return nil, fmt.Errorf("ensure data category: %w", err)
	}
	ch, err := r.gw.EnsureTextChannel(ctx, guildID, catID, registrationDataChannel)
	if err != nil {
		return nil, fmt.Errorf("ensure %s channel: %w", registrationDataChannel, err)
	}
	return ch, nil
}

// findRecord locates the sole config message by its title variants.
func (r *MessageConfigRepo) findRecord(ctx context.Context, guildID string) (*adapter.Message, error) {
	ch, err := r.dataChannel(ctx, guildID)
	if err != nil {
		return nil, err
	}
	history, err := r.gw.History(ctx, ch.ID, recordScan)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", registrationDataChannel, err)
	}
	for i := range history {
		msg := history[i]
		if msg.Embed == nil {
			continue
		}
		if codec.MatchesConfigTitle(msg.Embed.Title) {
			return &msg, nil
		}
	}
	return nil, nil
}
