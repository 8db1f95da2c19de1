package model

import (
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type SessionPhase string

const (
	PhasePrompting     SessionPhase = "prompting"
	PhaseAwaitingInput SessionPhase = "awaiting_input"
	PhaseValidating    SessionPhase = "validating"
	PhaseCompleted     SessionPhase = "completed"
	PhaseTimedOut      SessionPhase = "timed_out"
	PhaseAbandoned     SessionPhase = "abandoned"
)

// SurfaceKind says where a session runs: the user's DM channel or a private
// thread created under the registration channel.
type SurfaceKind string

const (
	SurfaceDM     SurfaceKind = "dm"
	SurfaceThread SurfaceKind = "thread"
)

// BackKeyword moves the questionnaire one question back, compared
// case-insensitively against the trimmed user input.
const BackKeyword = "back"

// StepResult classifies one validated input.
type StepResult int

const (
	StepAnswered StepResult = iota
	StepWentBack
	StepAtFirst       // "back" on the first question
	StepInvalidOption // option answer matched no label
)

// Session is one user's in-flight walk through the questionnaire. It holds
// pure state only; all IO around it lives in the usecase layer.
type Session struct {
	ID          string
	GuildID     string
	UserID      string
	SurfaceKind SurfaceKind
	SurfaceID   string // DM channel id or thread id

	// Mode and ManagementChannelID are snapshotted from the config so a
	// mid-session rewrite cannot redirect the review delivery.
	Mode                Mode
	ManagementChannelID string

	Questions []Question
	Answers   map[int]string
	Cursor    int
	Phase     SessionPhase
	StartedAt time.Time
}

func NewSession(guildID, userID string, kind SurfaceKind, surfaceID string, cfg *RegistrationConfig) *Session {
	now := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	return &Session{
		ID:                  ulid.MustNew(ulid.Timestamp(now), entropy).String(),
		GuildID:             guildID,
		UserID:              userID,
		SurfaceKind:         kind,
		SurfaceID:           surfaceID,
		Mode:                cfg.Mode,
		ManagementChannelID: cfg.ManagementChannelID,
		Questions:           cfg.Questions,
		Answers:             make(map[int]string, len(cfg.Questions)),
		Phase:               PhasePrompting,
		StartedAt:           now,
	}
}

func (s *Session) Current() Question {
	return s.Questions[s.Cursor]
}

func (s *Session) Done() bool {
	return s.Cursor >= len(s.Questions)
}

// Submit validates raw input against the current question and advances the
// cursor accordingly. An answer is only recorded for StepAnswered; going back
// keeps the previous answer until it is overwritten by a redo.
func (s *Session) Submit(raw string) StepResult {
	s.Phase = PhaseValidating
	text := strings.TrimSpace(raw)

	if strings.EqualFold(text, BackKeyword) {
		if s.Cursor == 0 {
			s.Phase = PhasePrompting
			return StepAtFirst
		}
		s.Cursor--
		s.Phase = PhasePrompting
		return StepWentBack
	}

	q := s.Current()
	if q.Kind == KindOption {
		if _, ok := q.MatchOption(text); !ok {
			s.Phase = PhasePrompting
			return StepInvalidOption
		}
	}

	s.Answers[s.Cursor] = text
	s.Cursor++
	if s.Done() {
		s.Phase = PhaseCompleted
	} else {
		s.Phase = PhasePrompting
	}
	return StepAnswered
}
