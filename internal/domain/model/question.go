package model

import (
	"fmt"
	"strings"

	"guild-registration-bot/internal/domain"
)

type QuestionKind string

const (
	KindText   QuestionKind = "Text"
	KindOption QuestionKind = "Option"
)

type QuestionAction string

const (
	ActionNone       QuestionAction = "None"
	ActionNickChange QuestionAction = "Nick Changer"
	ActionRoleAdd    QuestionAction = "Role Adder"
)

// Option pairs a selectable answer with the role token stored for it.
// The token is kept verbatim (mention, bare id, or plain name) and is only
// resolved against the guild's role list at apply time.
type Option struct {
	Label     string
	RoleToken string
}

// Question is one entry of the registration questionnaire. Its display number
// is not stored; it is the 1-based position within the owning config.
type Question struct {
	Prompt  string
	Kind    QuestionKind
	Action  QuestionAction
	Options []Option
}

// NewQuestion validates the kind/action combination at construction time.
// Illegal combinations (NickChanger on an Option question, RoleAdder on a
// Text question) are rejected here rather than tolerated until apply time.
func NewQuestion(prompt string, kind QuestionKind, action QuestionAction, options []Option) (Question, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Question{}, fmt.Errorf("%w: empty question prompt", domain.ErrInvalidArgument)
	}
	switch kind {
	case KindText:
		if action == ActionRoleAdd {
			return Question{}, fmt.Errorf("%w: role adder requires an option question", domain.ErrInvalidArgument)
		}
		if len(options) > 0 {
			return Question{}, fmt.Errorf("%w: text question cannot carry options", domain.ErrInvalidArgument)
		}
	case KindOption:
		if action == ActionNickChange {
			return Question{}, fmt.Errorf("%w: nick changer requires a text question", domain.ErrInvalidArgument)
		}
		if len(options) == 0 {
			return Question{}, fmt.Errorf("%w: option question needs at least one option", domain.ErrInvalidArgument)
		}
	default:
		return Question{}, fmt.Errorf("%w: unknown question kind %q", domain.ErrInvalidArgument, kind)
	}
	if action == "" {
		action = ActionNone
	}
	return Question{Prompt: prompt, Kind: kind, Action: action, Options: options}, nil
}

// MatchOption returns the option whose label equals the answer,
// ignoring case and surrounding whitespace.
func (q Question) MatchOption(answer string) (Option, bool) {
	answer = strings.TrimSpace(answer)
	for _, opt := range q.Options {
		if strings.EqualFold(opt.Label, answer) {
			return opt, true
		}
	}
	return Option{}, false
}

// OptionLabels returns the labels in configured order, for prompts and
// validation error messages.
func (q Question) OptionLabels() []string {
	labels := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		labels = append(labels, opt.Label)
	}
	return labels
}
