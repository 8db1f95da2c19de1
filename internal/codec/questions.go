package codec

import (
	"fmt"
	"regexp"
	"strings"

	"guild-registration-bot/internal/domain/model"
)

// Question blob grammar, one paragraph per question:
//
//	Q1: What should we call you?
//	• Type: Text
//	• Action: Nick Changer
//
//	Q2: Pick a team
//	• Type: Option
//	• Action: Role Adder
//	• Options: Red -> <@&111>, Blue -> <@&222>
//
// Numbers are ignored on decode and recomputed on encode. Decoding never
// fails: paragraphs without a leading Q-line are skipped, unknown labels are
// ignored, a missing Type defaults to Text.

const NoQuestionsPlaceholder = "(No questions set)"

var (
	questionLineRe = regexp.MustCompile(`(?i)^Q\s*\d+\s*:\s*(.*)$`)
	optionSplitRe  = regexp.MustCompile(`\s*[;,]\s*`)
)

// EncodeQuestions renders the canonical blob, renumbering from 1. The Options
// line is always re-derived from the in-memory pairs.
func EncodeQuestions(questions []model.Question) string {
	if len(questions) == 0 {
		return NoQuestionsPlaceholder
	}
	blocks := make([]string, 0, len(questions))
	for i, q := range questions {
		var b strings.Builder
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, q.Prompt)
		fmt.Fprintf(&b, "• Type: %s\n", q.Kind)
		fmt.Fprintf(&b, "• Action: %s", q.Action)
		if q.Kind == model.KindOption && len(q.Options) > 0 {
			pairs := make([]string, 0, len(q.Options))
			for _, opt := range q.Options {
				pairs = append(pairs, fmt.Sprintf("%s -> %s", opt.Label, opt.RoleToken))
			}
			fmt.Fprintf(&b, "\n• Options: %s", strings.Join(pairs, ", "))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// DecodeQuestions parses a blob back into questions. dropped counts
// paragraphs that were skipped or had fields normalized away; callers use it
// for metrics only.
func DecodeQuestions(blob string) (questions []model.Question, dropped int) {
	blob = strings.TrimSpace(blob)
	if blob == "" || blob == NoQuestionsPlaceholder {
		return nil, 0
	}
	for _, block := range strings.Split(blob, "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		m := questionLineRe.FindStringSubmatch(lines[0])
		if m == nil {
			dropped++
			continue
		}
		prompt := strings.TrimSpace(m[1])
		if prompt == "" {
			dropped++
			continue
		}

		var rawType, rawAction, rawOptions string
		for _, ln := range lines[1:] {
			lower := strings.ToLower(ln)
			switch {
			case strings.HasPrefix(lower, "• type:"):
				rawType = valueAfterColon(ln)
			case strings.HasPrefix(lower, "• action:"):
				rawAction = valueAfterColon(ln)
			case strings.HasPrefix(lower, "• options:"):
				rawOptions = valueAfterColon(ln)
			}
		}

		q, ok := normalizeQuestion(prompt, rawType, rawAction, rawOptions)
		if !ok {
			dropped++
			continue
		}
		questions = append(questions, q)
	}
	return questions, dropped
}

// normalizeQuestion maps the loosely-typed stored fields onto the closed
// kind/action set. Illegal combinations are downgraded here instead of being
// carried to apply time: a nick changer on an option question and a role
// adder on a text question both become ActionNone, and an option question
// without a single parsable option falls back to plain text.
func normalizeQuestion(prompt, rawType, rawAction, rawOptions string) (model.Question, bool) {
	kind := model.KindText
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(rawType)), "option") {
		kind = model.KindOption
	}

	action := model.ActionNone
	switch strings.ToLower(strings.TrimSpace(rawAction)) {
	case "nick changer":
		action = model.ActionNickChange
	case "role adder":
		action = model.ActionRoleAdd
	}

	var options []model.Option
	if kind == model.KindOption {
		for _, pair := range optionSplitRe.Split(rawOptions, -1) {
			left, right, found := strings.Cut(pair, "->")
			if !found {
				continue
			}
			label := strings.TrimSpace(left)
			token := strings.TrimSpace(right)
			if label == "" || token == "" {
				continue
			}
			options = append(options, model.Option{Label: label, RoleToken: token})
		}
		if len(options) == 0 {
			kind = model.KindText
		}
	}

	switch {
	case kind == model.KindText && action == model.ActionRoleAdd:
		action = model.ActionNone
	case kind == model.KindOption && action == model.ActionNickChange:
		action = model.ActionNone
	}
	if kind == model.KindText {
		options = nil
	}

	q, err := model.NewQuestion(prompt, kind, action, options)
	if err != nil {
		return model.Question{}, false
	}
	return q, true
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, ln := range strings.Split(block, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

func valueAfterColon(ln string) string {
	_, after, _ := strings.Cut(ln, ":")
	return strings.TrimSpace(after)
}
