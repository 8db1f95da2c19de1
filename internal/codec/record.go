package codec

import (
	"fmt"
	"regexp"
	"strings"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/adapter"
)

// Embed layout of the persisted config record. Field names are matched by
// case-insensitive prefix so records hand-edited or written by older builds
// still decode.
const (
	ConfigTitle = "📋 REGISTRATION SYSTEM"

	fieldRegistrationChannel = "Registration Channel"
	fieldManagementChannel   = "Management Channel"
	fieldMode                = "Mode"
	fieldManagerRoles        = "Manager Role(s)"
	fieldQuestions           = "Questions"

	EmptyManagersPlaceholder = "(Empty for now)"
)

// customEmojiRe strips platform custom-emoji tokens like <:scroll:1427...>
// that decorated historical record titles.
var customEmojiRe = regexp.MustCompile(`<a?:\w+:\d+>`)

// MatchesConfigTitle reports whether an embed title identifies the config
// record. Historical records carry plain, emoji-prefixed, or
// decorated-prefixed variants, so matching is normalized and
// case-insensitive.
func MatchesConfigTitle(title string) bool {
	title = customEmojiRe.ReplaceAllString(title, "")
	title = strings.ToUpper(strings.TrimSpace(title))
	return strings.Contains(title, "REGISTRATION SYSTEM")
}

// EncodeConfig renders the full record embed. Every field is rewritten; no
// stray formatting from a previously stored record survives.
func EncodeConfig(cfg *model.RegistrationConfig) adapter.Embed {
	managers := EmptyManagersPlaceholder
	if len(cfg.ManagerRoleIDs) > 0 {
		mentions := make([]string, 0, len(cfg.ManagerRoleIDs))
		for _, id := range cfg.ManagerRoleIDs {
			mentions = append(mentions, RoleMention(id))
		}
		managers = strings.Join(mentions, "\n")
	}
	return adapter.Embed{
		Title: ConfigTitle,
		Fields: []adapter.EmbedField{
			{Name: fieldRegistrationChannel, Value: ChannelMention(cfg.RegistrationChannelID)},
			{Name: fieldManagementChannel, Value: ChannelMention(cfg.ManagementChannelID)},
			{Name: fieldMode, Value: string(cfg.Mode)},
			{Name: fieldManagerRoles, Value: managers},
			{Name: fieldQuestions, Value: EncodeQuestions(cfg.Questions)},
		},
	}
}

// DecodeConfig extracts the record from an embed. The only hard failure is an
// unparsable channel reference; everything else degrades (unknown mode reads
// as Manual, malformed question paragraphs are dropped).
func DecodeConfig(embed adapter.Embed) (*model.RegistrationConfig, int, error) {
	var regRef, mgmtRef, modeRaw, managersRaw, questionsRaw string
	for _, f := range embed.Fields {
		name := strings.ToLower(f.Name)
		switch {
		case strings.HasPrefix(name, "registration channel"):
			regRef = f.Value
		case strings.HasPrefix(name, "management channel"):
			mgmtRef = f.Value
		case strings.HasPrefix(name, "mode"):
			modeRaw = f.Value
		case strings.HasPrefix(name, "manager role"):
			managersRaw = f.Value
		case strings.HasPrefix(name, "questions"):
			questionsRaw = f.Value
		}
	}

	regID, ok := ParseChannelRef(regRef)
	if !ok {
		return nil, 0, fmt.Errorf("%w: unparsable registration channel %q", domain.ErrInvalidArgument, regRef)
	}
	mgmtID, ok := ParseChannelRef(mgmtRef)
	if !ok {
		return nil, 0, fmt.Errorf("%w: unparsable management channel %q", domain.ErrInvalidArgument, mgmtRef)
	}

	mode := model.ModeManual
	if m, err := model.ParseMode(modeRaw); err == nil {
		mode = m
	}

	cfg := &model.RegistrationConfig{
		RegistrationChannelID: regID,
		ManagementChannelID:   mgmtID,
		Mode:                  mode,
	}
	for _, line := range strings.Split(managersRaw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "(Empty") {
			continue
		}
		if id, ok := ParseRoleRef(line); ok {
			cfg.ManagerRoleIDs = append(cfg.ManagerRoleIDs, id)
		}
	}

	questions, dropped := DecodeQuestions(questionsRaw)
	cfg.Questions = questions
	return cfg, dropped, nil
}
