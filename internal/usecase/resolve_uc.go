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
	"guild-registration-bot/internal/infra/logging"
	"guild-registration-bot/internal/infra/metrics"
)

// Compile-time check
var _ Resolver = (*resolveUC)(nil)

// Resolver applies a completed session's side effects: immediately in
// automatic mode, or after a moderator verdict in manual mode.
type Resolver interface {
	Resolve(ctx context.Context, sess *model.Session) error
}

type resolveUC struct {
	gw      adapter.ChatGateway
	members adapter.MemberDirectory
	log     *zerolog.Logger

	denyDeleteDelay time.Duration
}

func NewResolveUseCase(gw adapter.ChatGateway, members adapter.MemberDirectory, logger *zerolog.Logger) *resolveUC {
	return &resolveUC{
		gw:              gw,
		members:         members,
		log:             logger,
		denyDeleteDelay: 30 * time.Second,
	}
}

func (r *resolveUC) Resolve(ctx context.Context, sess *model.Session) error {
	defer logging.TraceDuration(r.log, "ResolveUC.Resolve")()
	if sess.Mode == model.ModeAutomatic {
		return r.resolveAutomatic(ctx, sess)
	}
	return r.submitForReview(ctx, sess)
}

func (r *resolveUC) resolveAutomatic(ctx context.Context, sess *model.Session) error {
	r.applyActions(ctx, sess)
	guildName, _ := r.members.GuildName(ctx, sess.GuildID)
	_, err := r.gw.SendMessage(ctx, sess.SurfaceID,
		fmt.Sprintf("✅ You are now registered for **%s**! Welcome aboard.", guildName))
	if errors.Is(err, domain.ErrSurfaceGone) {
		return nil
	}
	return err
}

// submitForReview posts the transcript with Accept/Deny controls and returns.
// The verdict wait runs detached on a background context because the control
// carries no expiry; a moderator may action it long after the session
// goroutine is gone.
func (r *resolveUC) submitForReview(ctx context.Context, sess *model.Session) error {
	decision, err := r.gw.SendDecision(ctx, sess.ManagementChannelID, r.transcript(sess))
	if err != nil {
		// Management channel unusable; tell the user and clean up the thread.
		if msg, serr := r.gw.SendMessage(ctx, sess.SurfaceID,
			"⚠️ Management channel not found. Contact admins."); serr == nil {
			_ = r.gw.DeleteMessageAfter(ctx, sess.SurfaceID, msg.ID, r.denyDeleteDelay)
		}
		r.cleanupThread(ctx, sess)
		return fmt.Errorf("deliver review request: %w", err)
	}

	go r.awaitVerdict(context.WithoutCancel(ctx), sess, decision)
	return nil
}

func (r *resolveUC) awaitVerdict(ctx context.Context, sess *model.Session, decision *adapter.Message) {
	log := logging.With(logging.WithSessID(logging.WithGuildID(ctx, sess.GuildID), sess.ID), r.log)

	verdict, err := r.gw.AwaitDecision(ctx, decision.ChannelID, decision.ID)
	if err != nil {
		log.Warn().Err(err).Msg("decision wait ended without a verdict")
		return
	}
	metrics.IncManualDecision(string(verdict.Verdict))
	guildName, _ := r.members.GuildName(ctx, sess.GuildID)

	switch verdict.Verdict {
	case adapter.VerdictAccept:
		r.applyActions(ctx, sess)
		_ = r.gw.DisableDecision(ctx, decision.ChannelID, decision.ID,
			fmt.Sprintf("✅ Registration accepted by <@%s>", verdict.ModeratorID))
		r.dm(ctx, sess.UserID,
			fmt.Sprintf("✅ Your registration for **%s** has been accepted! You are now registered.", guildName))
	case adapter.VerdictDeny:
		_ = r.gw.DisableDecision(ctx, decision.ChannelID, decision.ID,
			fmt.Sprintf("❌ Registration denied by <@%s>\nThis message will be deleted in %d seconds.",
				verdict.ModeratorID, int(r.denyDeleteDelay.Seconds())))
		r.dm(ctx, sess.UserID,
			fmt.Sprintf("❌ Your registration for **%s** has been denied by the Administration. You may try again.", guildName))
		_ = r.gw.DeleteMessageAfter(ctx, decision.ChannelID, decision.ID, r.denyDeleteDelay)
	}
	r.cleanupThread(ctx, sess)
	log.Info().Str("verdict", string(verdict.Verdict)).Msg("manual registration resolved")
}

// applyActions walks the questions in order and applies each side effect.
// Failures are non-fatal: a forbidden nickname change is surfaced to the
// user, an unresolvable role token is logged and skipped, and the remaining
// actions still run.
func (r *resolveUC) applyActions(ctx context.Context, sess *model.Session) {
	var roles []adapter.Role
	for idx, q := range sess.Questions {
		answer, ok := sess.Answers[idx]
		if !ok {
			continue
		}
		switch q.Action {
		case model.ActionNickChange:
			err := r.members.SetNickname(ctx, sess.GuildID, sess.UserID, answer)
			if errors.Is(err, domain.ErrForbidden) {
				r.dm(ctx, sess.UserID, "⚠️ Cannot change your nickname (owner or permission issue).")
			} else if err != nil {
				r.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("nickname change failed")
			}
		case model.ActionRoleAdd:
			opt, ok := q.MatchOption(answer)
			if !ok {
				continue
			}
			if roles == nil {
				var err error
				roles, err = r.members.GuildRoles(ctx, sess.GuildID)
				if err != nil {
					r.log.Warn().Err(err).Msg("could not list guild roles")
					continue
				}
			}
			role, ok := codec.ResolveRoleToken(roles, opt.RoleToken)
			if !ok {
				r.log.Debug().Str("token", opt.RoleToken).Msg("role token did not resolve; skipping grant")
				continue
			}
			if err := r.members.AddRole(ctx, sess.GuildID, sess.UserID, role.ID); err != nil {
				r.log.Warn().Err(err).Str("role_id", role.ID).Msg("role grant failed")
			}
		}
	}
}

func (r *resolveUC) transcript(sess *model.Session) adapter.Embed {
	var lines []string
	for idx, q := range sess.Questions {
		lines = append(lines, fmt.Sprintf("**Q%d: %s**\n> %s", idx+1, q.Prompt, sess.Answers[idx]))
	}
	return adapter.Embed{
		Title:       fmt.Sprintf("Registration Request: <@%s>", sess.UserID),
		Description: strings.Join(lines, "\n"),
		Footer:      fmt.Sprintf("User ID: %s | Accept or Deny below", sess.UserID),
	}
}

func (r *resolveUC) cleanupThread(ctx context.Context, sess *model.Session) {
	if sess.SurfaceKind == model.SurfaceThread {
		_ = r.gw.DeleteThread(ctx, sess.SurfaceID)
	}
}

func (r *resolveUC) dm(ctx context.Context, userID, text string) {
	dm, err := r.gw.OpenDM(ctx, userID)
	if err != nil {
		return
	}
	_, _ = r.gw.SendMessage(ctx, dm.ID, text)
}
