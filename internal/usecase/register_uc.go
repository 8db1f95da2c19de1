package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/adapter"
	"guild-registration-bot/internal/domain/ports/repository"
	"guild-registration-bot/internal/infra/logging"
	"guild-registration-bot/internal/infra/metrics"
)

// Compile-time check
var _ RegisterUseCase = (*registerUC)(nil)

// RegisterUseCase runs one user's questionnaire session end to end:
// surface creation, the prompt/await/validate loop, and hand-off to the
// resolver on completion.
type RegisterUseCase interface {
	Start(ctx context.Context, guildID, userID, invokedChannelID string, surface model.SurfaceKind) error
}

type registerUC struct {
	gw       adapter.ChatGateway
	configs  repository.ConfigRepository
	registry repository.SessionRegistry
	resolver Resolver
	log      *zerolog.Logger

	inputTimeout time.Duration // per-question wait
	noticeTTL    time.Duration // short-lived hint/error messages
	timeoutTTL   time.Duration // timeout notice lifetime
	sessionTTL   time.Duration // registry lock safety net
}

func NewRegisterUseCase(
	gw adapter.ChatGateway,
	configs repository.ConfigRepository,
	registry repository.SessionRegistry,
	resolver Resolver,
	logger *zerolog.Logger,
) *registerUC {
	return &registerUC{
		gw:           gw,
		configs:      configs,
		registry:     registry,
		resolver:     resolver,
		log:          logger,
		inputTimeout: 300 * time.Second,
		noticeTTL:    10 * time.Second,
		timeoutTTL:   30 * time.Second,
		sessionTTL:   45 * time.Minute,
	}
}

// Start blocks until the session reaches a terminal state. The config is
// snapshotted up front; admin writes during the session do not affect it.
func (u *registerUC) Start(ctx context.Context, guildID, userID, invokedChannelID string, surface model.SurfaceKind) error {
	defer logging.TraceDuration(u.log, "RegisterUC.Start")()

	cfg, err := u.configs.Load(ctx, guildID)
	if err != nil {
		return err
	}
	if len(cfg.Questions) == 0 {
		return domain.ErrNoQuestions
	}
	if surface != model.SurfaceDM && invokedChannelID != cfg.RegistrationChannelID {
		return fmt.Errorf("%w: %s", domain.ErrWrongChannel, cfg.RegistrationChannelID)
	}

	token, err := u.registry.Acquire(ctx, guildID, userID, u.sessionTTL)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := u.registry.Release(context.WithoutCancel(ctx), guildID, userID, token); rerr != nil {
			u.log.Warn().Err(rerr).Str("guild_id", guildID).Str("user_id", userID).
				Msg("failed to release session slot")
		}
	}()

	sess, err := u.openSurface(ctx, guildID, userID, surface, cfg.Snapshot())
	if err != nil {
		return err
	}

	log := logging.With(logging.WithSessID(logging.WithUserID(logging.WithGuildID(ctx, guildID), userID), sess.ID), u.log)
	metrics.IncSessionStarted(string(surface))
	log.Info().Int("questions", len(sess.Questions)).Str("mode", string(sess.Mode)).Msg("session started")

	u.run(ctx, sess, log)

	switch sess.Phase {
	case model.PhaseCompleted:
		metrics.IncSessionCompleted(string(sess.Mode))
		metrics.ObserveSessionDuration(time.Since(sess.StartedAt))
		log.Info().Msg("session completed")
		return u.resolver.Resolve(ctx, sess)
	case model.PhaseTimedOut:
		metrics.IncSessionTimedOut()
		log.Info().Int("answered", len(sess.Answers)).Msg("session timed out")
		return nil
	default:
		metrics.IncSessionAbandoned()
		log.Info().Msg("session abandoned")
		return nil
	}
}

func (u *registerUC) openSurface(ctx context.Context, guildID, userID string, surface model.SurfaceKind, cfg *model.RegistrationConfig) (*model.Session, error) {
	if surface == model.SurfaceDM {
		dm, err := u.gw.OpenDM(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: use the channel variant instead", domain.ErrDMUnavailable)
		}
		return model.NewSession(guildID, userID, model.SurfaceDM, dm.ID, cfg), nil
	}
	thread, err := u.gw.CreatePrivateThread(ctx, cfg.RegistrationChannelID, "registration-"+userID, userID)
	if err != nil {
		return nil, fmt.Errorf("create registration thread: %w", err)
	}
	_, err = u.gw.SendMessage(ctx, thread.ID,
		"Your registration thread has been created. Please answer the questions below.")
	if err != nil {
		return nil, err
	}
	return model.NewSession(guildID, userID, model.SurfaceThread, thread.ID, cfg), nil
}

// run drives the state machine until a terminal phase. One outstanding wait
// at a time; the session goroutine is suspended inside AwaitMessage.
func (u *registerUC) run(ctx context.Context, sess *model.Session, log *zerolog.Logger) {
	for !sess.Done() {
		qMsg, err := u.gw.SendMessage(ctx, sess.SurfaceID, renderPrompt(sess))
		if err != nil {
			sess.Phase = model.PhaseAbandoned
			return
		}
		sess.Phase = model.PhaseAwaitingInput

		input, err := u.gw.AwaitMessage(ctx, sess.SurfaceID, sess.UserID, u.inputTimeout)
		switch {
		case errors.Is(err, domain.ErrAwaitTimeout):
			u.terminateTimedOut(ctx, sess)
			return
		case err != nil:
			sess.Phase = model.PhaseAbandoned
			return
		}

		// Conversation hygiene: drop the raw input and the rendered question.
		_ = u.gw.DeleteMessage(ctx, sess.SurfaceID, input.ID)
		_ = u.gw.DeleteMessage(ctx, sess.SurfaceID, qMsg.ID)

		switch sess.Submit(input.Content) {
		case model.StepAtFirst:
			u.notice(ctx, sess.SurfaceID, "⚠️ Already at the first question.")
		case model.StepInvalidOption:
			labels := sess.Current().OptionLabels()
			u.notice(ctx, sess.SurfaceID,
				"❌ Invalid option. Choose one of:\n"+strings.Join(labels, "\n"))
		case model.StepWentBack:
			log.Debug().Int("cursor", sess.Cursor).Msg("went back one question")
		}
	}
}

func (u *registerUC) terminateTimedOut(ctx context.Context, sess *model.Session) {
	sess.Phase = model.PhaseTimedOut
	if msg, err := u.gw.SendMessage(ctx, sess.SurfaceID,
		"⏱️ Registration timed out. Please run /register again."); err == nil {
		_ = u.gw.DeleteMessageAfter(ctx, sess.SurfaceID, msg.ID, u.timeoutTTL)
	}
	if sess.SurfaceKind == model.SurfaceThread {
		_ = u.gw.DeleteThread(ctx, sess.SurfaceID)
	}
}

func (u *registerUC) notice(ctx context.Context, channelID, text string) {
	msg, err := u.gw.SendMessage(ctx, channelID, text)
	if err != nil {
		return
	}
	_ = u.gw.DeleteMessageAfter(ctx, channelID, msg.ID, u.noticeTTL)
}

func renderPrompt(sess *model.Session) string {
	q := sess.Current()
	var b strings.Builder
	fmt.Fprintf(&b, "**Question %d/%d**: %s\n", sess.Cursor+1, len(sess.Questions), q.Prompt)
	if q.Kind == model.KindOption {
		b.WriteString("Options:\n")
		for _, label := range q.OptionLabels() {
			fmt.Fprintf(&b, "- %s\n", label)
		}
	}
	b.WriteString("\nType your answer below. To go back, type `back`.")
	return b.String()
}
