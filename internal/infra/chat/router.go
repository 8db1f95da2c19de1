package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/codec"
	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/adapter"
	"guild-registration-bot/internal/infra/metrics"
	"guild-registration-bot/internal/usecase"
)

type commandHandler func(ctx context.Context, cmd adapter.Command) error

// Router dispatches invoked commands to the usecases. Each command runs in
// its own goroutine; interactive flows (question authoring, register) keep
// that goroutine suspended on gateway waits.
type Router struct {
	src        adapter.CommandSource
	members    adapter.MemberDirectory
	adminUC    usecase.AdminUseCase
	registerUC usecase.RegisterUseCase
	log        *zerolog.Logger
	routes     map[string]commandHandler
}

func NewRouter(
	src adapter.CommandSource,
	members adapter.MemberDirectory,
	adminUC usecase.AdminUseCase,
	registerUC usecase.RegisterUseCase,
	logger *zerolog.Logger,
) *Router {
	r := &Router{
		src:        src,
		members:    members,
		adminUC:    adminUC,
		registerUC: registerUC,
		log:        logger,
	}
	r.routes = map[string]commandHandler{
		"register": r.handleRegister,

		// Everything below is admin-gated.
		"setupregistration":          r.adminOnly(r.handleSetup),
		"addregistrationquestion":    r.adminOnly(r.handleAddQuestion),
		"removeregistrationquestion": r.adminOnly(r.handleRemoveQuestion),
		"addregistrationmanager":     r.adminOnly(r.handleAddManager),
		"removeregistrationmanager":  r.adminOnly(r.handleRemoveManager),
		"addadminrole":               r.adminOnly(r.handleAddAdminRole),
		"removeadminrole":            r.adminOnly(r.handleRemoveAdminRole),
		"adminroles":                 r.adminOnly(r.handleAdminRoles),
	}
	return r
}

// Run consumes commands until the source closes or ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case cmd, ok := <-r.src.Commands():
			if !ok {
				return
			}
			go r.dispatch(ctx, cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Router) dispatch(ctx context.Context, cmd adapter.Command) {
	metrics.IncCommand(cmd.Name)
	handler, ok := r.routes[cmd.Name]
	if !ok {
		_ = r.src.Reply(ctx, cmd, "Unknown command.")
		return
	}
	if err := handler(ctx, cmd); err != nil {
		r.log.Debug().Err(err).Str("command", cmd.Name).Str("user_id", cmd.UserID).Msg("command failed")
		_ = r.src.Reply(ctx, cmd, userFacing(err))
	}
}

func (r *Router) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, cmd adapter.Command) error {
		ok, err := r.adminUC.IsAdmin(ctx, cmd.GuildID, cmd.UserID)
		if err != nil {
			return err
		}
		if !ok {
			metrics.IncAdminCommand(cmd.Name, "unauthorized")
			return domain.ErrUnauthorized
		}
		metrics.IncAdminCommand(cmd.Name, "authorized")
		return next(ctx, cmd)
	}
}

// userFacing maps domain errors onto the notices users see. Authorization
// denials disclose nothing beyond the denial itself.
func userFacing(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "❌ You do not have permission to use this command."
	case errors.Is(err, domain.ErrConfigMissing):
		return "⚠️ Registration system not set up yet. Run /setupregistration first."
	case errors.Is(err, domain.ErrNoQuestions):
		return "ℹ️ No questions set up yet. Contact server admins."
	case errors.Is(err, domain.ErrActiveSession):
		return "⚠️ You already have a registration in progress."
	case errors.Is(err, domain.ErrWrongChannel):
		return "❌ You can only use this command in the registration channel."
	case errors.Is(err, domain.ErrDMUnavailable):
		return "❌ I cannot send you DMs. Please use /register via text channel."
	case errors.Is(err, domain.ErrAwaitTimeout):
		return "⏱️ Timed out waiting for input. Please run the command again."
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrNotFound):
		return "❌ " + err.Error()
	default:
		return "⚠️ Something went wrong. Please try again."
	}
}

func (r *Router) handleRegister(ctx context.Context, cmd adapter.Command) error {
	surface := model.SurfaceThread
	if strings.EqualFold(cmd.Args["mode"], "dm") {
		surface = model.SurfaceDM
	}
	return r.registerUC.Start(ctx, cmd.GuildID, cmd.UserID, cmd.ChannelID, surface)
}

func (r *Router) handleSetup(ctx context.Context, cmd adapter.Command) error {
	mode, err := model.ParseMode(cmd.Args["mode"])
	if err != nil {
		return err
	}
	if err := r.adminUC.Setup(ctx, cmd.GuildID, cmd.Args["registration_channel"], cmd.Args["management_channel"], mode); err != nil {
		return err
	}
	return r.src.Reply(ctx, cmd, "✅ Registration system setup complete!")
}

func (r *Router) handleAddQuestion(ctx context.Context, cmd adapter.Command) error {
	if err := r.adminUC.AddQuestionInteractive(ctx, cmd.GuildID, cmd.ChannelID, cmd.UserID); err != nil {
		return err
	}
	return r.src.Reply(ctx, cmd, "✅ Question added to the registration system.")
}

func (r *Router) handleRemoveQuestion(ctx context.Context, cmd adapter.Command) error {
	number, err := strconv.Atoi(strings.TrimSpace(cmd.Args["number"]))
	if err != nil {
		return fmt.Errorf("%w: %q is not a question number", domain.ErrInvalidArgument, cmd.Args["number"])
	}
	remaining, err := r.adminUC.RemoveQuestion(ctx, cmd.GuildID, number)
	if err != nil {
		return err
	}
	return r.src.Reply(ctx, cmd,
		fmt.Sprintf("✅ Removed question #%d and renumbered the remaining %d.", number, remaining))
}

func (r *Router) resolveRoleArg(ctx context.Context, cmd adapter.Command) (adapter.Role, error) {
	roles, err := r.members.GuildRoles(ctx, cmd.GuildID)
	if err != nil {
		return adapter.Role{}, err
	}
	role, ok := codec.ResolveRoleToken(roles, cmd.Args["role"])
	if !ok {
		return adapter.Role{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, cmd.Args["role"])
	}
	return role, nil
}

func (r *Router) handleAddManager(ctx context.Context, cmd adapter.Command) error {
	role, err := r.resolveRoleArg(ctx, cmd)
	if err != nil {
		return err
	}
	if err := r.adminUC.AddManagerRole(ctx, cmd.GuildID, role.ID); err != nil {
		return err
	}
	return r.src.Reply(ctx, cmd, fmt.Sprintf("✅ Added %s to Manager Role(s).", codec.RoleMention(role.ID)))
}

func (r *Router) handleRemoveManager(ctx context.Context, cmd adapter.Command) error {
	role, err := r.resolveRoleArg(ctx, cmd)
	if err != nil {
		return err
	}
	if err := r.adminUC.RemoveManagerRole(ctx, cmd.GuildID, role.ID); err != nil {
		return err
	}
	return r.src.Reply(ctx, cmd, fmt.Sprintf("✅ Removed %s from Manager Role(s).", codec.RoleMention(role.ID)))
}

func (r *Router) handleAddAdminRole(ctx context.Context, cmd adapter.Command) error {
	role, err := r.resolveRoleArg(ctx, cmd)
	if err != nil {
		return err
	}
	if err := r.adminUC.AddAdminRole(ctx, cmd.GuildID, role.ID); err != nil {
		return err
	}
	return r.src.Reply(ctx, cmd, fmt.Sprintf("✅ Added %s as an administrator role.", codec.RoleMention(role.ID)))
}

func (r *Router) handleRemoveAdminRole(ctx context.Context, cmd adapter.Command) error {
	role, err := r.resolveRoleArg(ctx, cmd)
	if err != nil {
		return err
	}
	if err := r.adminUC.RemoveAdminRole(ctx, cmd.GuildID, role.ID); err != nil {
		return err
	}
	return r.src.Reply(ctx, cmd, fmt.Sprintf("✅ Removed %s from administrator roles.", codec.RoleMention(role.ID)))
}

func (r *Router) handleAdminRoles(ctx context.Context, cmd adapter.Command) error {
	roleIDs, err := r.adminUC.AdminRoles(ctx, cmd.GuildID)
	if err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return r.src.Reply(ctx, cmd, "No admin roles set. Use /addadminrole to add administrator roles.")
	}
	mentions := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		mentions = append(mentions, codec.RoleMention(id))
	}
	return r.src.Reply(ctx, cmd, "Current administrator roles:\n"+strings.Join(mentions, "\n"))
}
