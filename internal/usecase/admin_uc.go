package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/codec"
	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/adapter"
	"guild-registration-bot/internal/domain/ports/repository"
	"guild-registration-bot/internal/infra/logging"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// AdminUseCase exposes the admin-facing maintenance operations: the isAdmin
// predicate, registration setup, question authoring and removal, and the two
// independent role lists (manager roles on the config record, admin roles in
// their own store).
type AdminUseCase interface {
	IsAdmin(ctx context.Context, guildID, userID string) (bool, error)

	Setup(ctx context.Context, guildID, regChannelRef, mgmtChannelRef string, mode model.Mode) error
	AddQuestionInteractive(ctx context.Context, guildID, channelID, userID string) error
	RemoveQuestion(ctx context.Context, guildID string, number int) (remaining int, err error)

	AddManagerRole(ctx context.Context, guildID, roleID string) error
	RemoveManagerRole(ctx context.Context, guildID, roleID string) error

	AdminRoles(ctx context.Context, guildID string) ([]string, error)
	AddAdminRole(ctx context.Context, guildID, roleID string) error
	RemoveAdminRole(ctx context.Context, guildID, roleID string) error
}

type adminUC struct {
	configs    repository.ConfigRepository
	adminRoles repository.AdminRoleRepository
	gw         adapter.ChatGateway
	members    adapter.MemberDirectory
	log        *zerolog.Logger

	// Authoring sub-flow waits; fixed per wait point.
	promptTimeout  time.Duration // question text
	choiceTimeout  time.Duration // mode and nickname choices
	optionsTimeout time.Duration // one-shot options message
}

func NewAdminUseCase(
	configs repository.ConfigRepository,
	adminRoles repository.AdminRoleRepository,
	gw adapter.ChatGateway,
	members adapter.MemberDirectory,
	logger *zerolog.Logger,
) *adminUC {
	return &adminUC{
		configs:        configs,
		adminRoles:     adminRoles,
		gw:             gw,
		members:        members,
		log:            logger,
		promptTimeout:  120 * time.Second,
		choiceTimeout:  60 * time.Second,
		optionsTimeout: 180 * time.Second,
	}
}

// IsAdmin is true for members holding the platform administrator permission
// or any role in the admin-role store. Manager roles are deliberately not
// consulted; they are a display-only list.
func (u *adminUC) IsAdmin(ctx context.Context, guildID, userID string) (bool, error) {
	ok, err := u.members.HasAdminPermission(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	adminRoles, err := u.adminRoles.Read(ctx, guildID)
	if err != nil {
		return false, err
	}
	if len(adminRoles) == 0 {
		return false, nil
	}
	memberRoles, err := u.members.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	for _, have := range memberRoles {
		for _, want := range adminRoles {
			if have == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// Setup creates or rewrites the config record. An existing question list
// survives a re-setup; only channels and mode change.
func (u *adminUC) Setup(ctx context.Context, guildID, regChannelRef, mgmtChannelRef string, mode model.Mode) error {
	defer logging.TraceDuration(u.log, "AdminUC.Setup")()

	regID, ok := codec.ParseChannelRef(regChannelRef)
	if !ok {
		return fmt.Errorf("%w: registration channel %q", domain.ErrInvalidArgument, regChannelRef)
	}
	mgmtID, ok := codec.ParseChannelRef(mgmtChannelRef)
	if !ok {
		return fmt.Errorf("%w: management channel %q", domain.ErrInvalidArgument, mgmtChannelRef)
	}

	cfg, err := u.configs.Load(ctx, guildID)
	switch {
	case err == nil:
		cfg.RegistrationChannelID = regID
		cfg.ManagementChannelID = mgmtID
		cfg.Mode = mode
	case errors.Is(err, domain.ErrConfigMissing):
		cfg, err = model.NewRegistrationConfig(regID, mgmtID, mode)
		if err != nil {
			return err
		}
	default:
		return err
	}
	return u.configs.Save(ctx, guildID, cfg)
}

// AddQuestionInteractive walks the invoking admin through authoring one
// question in the channel the command was invoked from, then appends it to
// the record. Each wait is bounded; a timeout aborts the whole flow.
func (u *adminUC) AddQuestionInteractive(ctx context.Context, guildID, channelID, userID string) error {
	defer logging.TraceDuration(u.log, "AdminUC.AddQuestionInteractive")()

	// The record must exist before authoring starts.
	cfg, err := u.configs.Load(ctx, guildID)
	if err != nil {
		return err
	}

	prompt, err := u.ask(ctx, channelID, userID,
		"Please enter the question text (single message):", u.promptTimeout)
	if err != nil {
		return err
	}
	if prompt == "" {
		return fmt.Errorf("%w: empty question", domain.ErrInvalidArgument)
	}

	modeChoice, err := u.ask(ctx, channelID, userID,
		"Choose question mode by typing `1` or `2`:\n`1` - Open Text\n`2` - With Options", u.choiceTimeout)
	if err != nil {
		return err
	}

	var q model.Question
	switch modeChoice {
	case "1":
		q, err = u.authorTextQuestion(ctx, channelID, userID, prompt)
	case "2":
		q, err = u.authorOptionQuestion(ctx, guildID, channelID, userID, prompt)
	default:
		return fmt.Errorf("%w: enter `1` or `2`", domain.ErrInvalidArgument)
	}
	if err != nil {
		return err
	}

	cfg.AddQuestion(q)
	return u.configs.Save(ctx, guildID, cfg)
}

func (u *adminUC) authorTextQuestion(ctx context.Context, channelID, userID, prompt string) (model.Question, error) {
	nickChoice, err := u.ask(ctx, channelID, userID,
		"Is this question a user nickname value? Type `yes` or `no`:", u.choiceTimeout)
	if err != nil {
		return model.Question{}, err
	}
	action := model.ActionNone
	switch strings.ToLower(nickChoice) {
	case "yes", "y", "true":
		action = model.ActionNickChange
	}
	return model.NewQuestion(prompt, model.KindText, action, nil)
}

func (u *adminUC) authorOptionQuestion(ctx context.Context, guildID, channelID, userID, prompt string) (model.Question, error) {
	raw, err := u.ask(ctx, channelID, userID,
		"Provide options in ONE message using this format:\n"+
			"`Option1 : @Role1 , Option2 : @Role2`\n"+
			"Separate pairs with commas; use a role mention, id, or name.", u.optionsTimeout)
	if err != nil {
		return model.Question{}, err
	}
	if raw == "" {
		return model.Question{}, fmt.Errorf("%w: empty options", domain.ErrInvalidArgument)
	}

	roles, err := u.members.GuildRoles(ctx, guildID)
	if err != nil {
		return model.Question{}, err
	}

	var options []model.Option
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		left, right, found := strings.Cut(pair, ":")
		if !found {
			return model.Question{}, fmt.Errorf("%w: could not parse pair %q, use `Option : @Role`", domain.ErrInvalidArgument, pair)
		}
		label := strings.TrimSpace(left)
		token := strings.TrimSpace(right)
		// A resolvable token is normalized to a mention; an unresolvable one
		// is kept verbatim and resolved again at apply time.
		if role, ok := codec.ResolveRoleToken(roles, token); ok {
			token = codec.RoleMention(role.ID)
		}
		options = append(options, model.Option{Label: label, RoleToken: token})
	}
	return model.NewQuestion(prompt, model.KindOption, model.ActionRoleAdd, options)
}

// ask sends a prompt and waits for the admin's next message in the channel,
// deleting both afterwards to keep the channel clean.
func (u *adminUC) ask(ctx context.Context, channelID, userID, prompt string, timeout time.Duration) (string, error) {
	pm, err := u.gw.SendMessage(ctx, channelID, prompt)
	if err != nil {
		return "", err
	}
	msg, err := u.gw.AwaitMessage(ctx, channelID, userID, timeout)
	if err != nil {
		return "", err
	}
	_ = u.gw.DeleteMessage(ctx, channelID, msg.ID)
	_ = u.gw.DeleteMessage(ctx, channelID, pm.ID)
	return strings.TrimSpace(msg.Content), nil
}

// RemoveQuestion deletes by 1-based display number; later questions shift
// down and re-encode with no numbering gaps.
func (u *adminUC) RemoveQuestion(ctx context.Context, guildID string, number int) (int, error) {
	defer logging.TraceDuration(u.log, "AdminUC.RemoveQuestion")()

	cfg, err := u.configs.Load(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if len(cfg.Questions) == 0 {
		return 0, domain.ErrNoQuestions
	}
	if err := cfg.RemoveQuestion(number); err != nil {
		return len(cfg.Questions), err
	}
	if err := u.configs.Save(ctx, guildID, cfg); err != nil {
		return 0, err
	}
	return len(cfg.Questions), nil
}

func (u *adminUC) AddManagerRole(ctx context.Context, guildID, roleID string) error {
	cfg, err := u.configs.Load(ctx, guildID)
	if err != nil {
		return err
	}
	if !cfg.AddManagerRole(roleID) {
		return fmt.Errorf("%w: role already listed", domain.ErrInvalidArgument)
	}
	return u.configs.Save(ctx, guildID, cfg)
}

func (u *adminUC) RemoveManagerRole(ctx context.Context, guildID, roleID string) error {
	cfg, err := u.configs.Load(ctx, guildID)
	if err != nil {
		return err
	}
	if !cfg.RemoveManagerRole(roleID) {
		return fmt.Errorf("%w: role is not listed as a manager", domain.ErrNotFound)
	}
	return u.configs.Save(ctx, guildID, cfg)
}

func (u *adminUC) AdminRoles(ctx context.Context, guildID string) ([]string, error) {
	return u.adminRoles.Read(ctx, guildID)
}

func (u *adminUC) AddAdminRole(ctx context.Context, guildID, roleID string) error {
	roles, err := u.adminRoles.Read(ctx, guildID)
	if err != nil {
		return err
	}
	for _, id := range roles {
		if id == roleID {
			return fmt.Errorf("%w: role is already an administrator role", domain.ErrInvalidArgument)
		}
	}
	return u.adminRoles.Write(ctx, guildID, append(roles, roleID))
}

func (u *adminUC) RemoveAdminRole(ctx context.Context, guildID, roleID string) error {
	roles, err := u.adminRoles.Read(ctx, guildID)
	if err != nil {
		return err
	}
	for i, id := range roles {
		if id == roleID {
			return u.adminRoles.Write(ctx, guildID, append(roles[:i], roles[i+1:]...))
		}
	}
	return fmt.Errorf("%w: role is not an administrator role", domain.ErrNotFound)
}
