package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/codec"
	"guild-registration-bot/internal/domain/ports/adapter"
	"guild-registration-bot/internal/domain/ports/repository"
)

const (
	adminRolesChannel = "admin-roles"
	// adminEntryScan is the replay window for entry records. It matches the
	// delete window so a write never orphans an entry beyond the read horizon.
	adminEntryScan = 50
)

var _ repository.AdminRoleRepository = (*MessageAdminRepo)(nil)

// MessageAdminRepo persists the admin-role set as an append-only run of
// single-entry messages plus one summary embed. The entries are
// authoritative; the summary is a cached projection rebuilt on every write
// and recreated if someone deleted it.
type MessageAdminRepo struct {
	gw       adapter.ChatGateway
	category string
	log      *zerolog.Logger
}

func NewMessageAdminRepo(gw adapter.ChatGateway, category string, logger *zerolog.Logger) *MessageAdminRepo {
	return &MessageAdminRepo{gw: gw, category: category, log: logger}
}

func (r *MessageAdminRepo) Read(ctx context.Context, guildID string) ([]string, error) {
	ch, err := r.channel(ctx, guildID)
	if err != nil {
		return nil, err
	}
	history, err := r.gw.History(ctx, ch.ID, adminEntryScan)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", adminRolesChannel, err)
	}
	// History is newest-first; replay oldest-first so the returned order is
	// insertion order.
	var roleIDs []string
	for i := len(history) - 1; i >= 0; i-- {
		if id, ok := codec.ParseAdminEntry(history[i].Content); ok {
			roleIDs = append(roleIDs, id)
		}
	}
	return roleIDs, nil
}

func (r *MessageAdminRepo) Write(ctx context.Context, guildID string, roleIDs []string) error {
	ch, err := r.channel(ctx, guildID)
	if err != nil {
		return err
	}
	history, err := r.gw.History(ctx, ch.ID, adminEntryScan)
	if err != nil {
		return fmt.Errorf("scan %s: %w", adminRolesChannel, err)
	}
	for _, msg := range history {
		if _, ok := codec.ParseAdminEntry(msg.Content); ok {
			if err := r.gw.DeleteMessage(ctx, ch.ID, msg.ID); err != nil {
				r.log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to delete admin-role entry")
			}
		}
	}
	for _, id := range roleIDs {
		if _, err := r.gw.SendMessage(ctx, ch.ID, codec.FormatAdminEntry(id)); err != nil {
			return fmt.Errorf("append admin-role entry: %w", err)
		}
	}
	return r.rebuildSummary(ctx, ch.ID, roleIDs)
}

func (r *MessageAdminRepo) channel(ctx context.Context, guildID string) (*adapter.Channel, error) {
	catID, err := r.gw.EnsureCategory(ctx, guildID, r.category)
	if err != nil {
		return nil, fmt.Errorf("ensure data category: %w", err)
	}
	ch, err := r.gw.EnsureTextChannel(ctx, guildID, catID, adminRolesChannel)
	if err != nil {
		return nil, fmt.Errorf("ensure %s channel: %w", adminRolesChannel, err)
	}
	return ch, nil
}

func (r *MessageAdminRepo) rebuildSummary(ctx context.Context, channelID string, roleIDs []string) error {
	embed := adapter.Embed{
		Title:       codec.AdminSummaryTitle,
		Description: "Administrator roles for this server:",
		Footer:      "Use /addadminrole to add more roles",
		Fields: []adapter.EmbedField{
			{Name: "Admin Roles", Value: codec.AdminSummaryBody(roleIDs)},
		},
	}

	history, err := r.gw.History(ctx, channelID, adminEntryScan)
	if err != nil {
		return fmt.Errorf("scan for summary: %w", err)
	}
	for _, msg := range history {
		if msg.Embed != nil && msg.Embed.Title == codec.AdminSummaryTitle {
			return r.gw.EditEmbed(ctx, channelID, msg.ID, embed)
		}
	}
	// Summary went missing; recreate it.
	if _, err := r.gw.SendEmbed(ctx, channelID, embed); err != nil {
		return fmt.Errorf("recreate summary: %w", err)
	}
	return nil
}
