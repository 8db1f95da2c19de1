//go:build !integration

package codec

import (
	"errors"
	"reflect"
	"testing"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/adapter"
)

func TestMatchesConfigTitle(t *testing.T) {
	accepted := []string{
		"REGISTRATION SYSTEM",
		"registration system",
		"📋 REGISTRATION SYSTEM",
		"<:scroll:142712345678901234> REGISTRATION SYSTEM",
		"<a:spin:99> Registration System",
	}
	for _, title := range accepted {
		if !MatchesConfigTitle(title) {
			t.Errorf("should match %q", title)
		}
	}
	rejected := []string{"", "Welcome", "REGISTRATION"}
	for _, title := range rejected {
		if MatchesConfigTitle(title) {
			t.Errorf("should not match %q", title)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg, err := model.NewRegistrationConfig("100", "200", model.ModeAutomatic)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ManagerRoleIDs = []string{"31", "32"}
	cfg.AddQuestion(mustQuestion(t, "Name?", model.KindText, model.ActionNickChange, nil))
	cfg.AddQuestion(mustQuestion(t, "Team?", model.KindOption, model.ActionRoleAdd,
		[]model.Option{{Label: "Red", RoleToken: "<@&111>"}}))

	got, dropped, err := DecodeConfig(EncodeConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, cfg)
	}
}

func TestDecodeConfig(t *testing.T) {
	embed := func(regVal, mgmtVal, modeVal, managersVal, questionsVal string) adapter.Embed {
		return adapter.Embed{
			Title: ConfigTitle,
			Fields: []adapter.EmbedField{
				{Name: "Registration Channel", Value: regVal},
				{Name: "Management Channel", Value: mgmtVal},
				{Name: "Mode", Value: modeVal},
				{Name: "Manager Role(s)", Value: managersVal},
				{Name: "Questions", Value: questionsVal},
			},
		}
	}

	t.Run("bare numeric channel ids accepted", func(t *testing.T) {
		got, _, err := DecodeConfig(embed("100", "200", "Manual", EmptyManagersPlaceholder, NoQuestionsPlaceholder))
		if err != nil {
			t.Fatal(err)
		}
		if got.RegistrationChannelID != "100" || got.ManagementChannelID != "200" {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("unknown mode reads as manual", func(t *testing.T) {
		got, _, err := DecodeConfig(embed("<#100>", "<#200>", "whatever", EmptyManagersPlaceholder, NoQuestionsPlaceholder))
		if err != nil {
			t.Fatal(err)
		}
		if got.Mode != model.ModeManual {
			t.Fatalf("mode = %q", got.Mode)
		}
	})

	t.Run("unparsable channel reference is a hard error", func(t *testing.T) {
		_, _, err := DecodeConfig(embed("#general", "<#200>", "Manual", EmptyManagersPlaceholder, NoQuestionsPlaceholder))
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("manager placeholder and junk lines skipped", func(t *testing.T) {
		got, _, err := DecodeConfig(embed("<#100>", "<#200>", "Automatic", "(Empty for now)\nnot a role\n<@&31>", NoQuestionsPlaceholder))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got.ManagerRoleIDs, []string{"31"}) {
			t.Fatalf("managers = %v", got.ManagerRoleIDs)
		}
	})

	t.Run("malformed question paragraphs degrade with a count", func(t *testing.T) {
		got, dropped, err := DecodeConfig(embed("<#100>", "<#200>", "Manual", EmptyManagersPlaceholder,
			"garbage paragraph\n\nQ1: Fine\n• Type: Text\n• Action: None"))
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Questions) != 1 || dropped != 1 {
			t.Fatalf("questions = %d, dropped = %d", len(got.Questions), dropped)
		}
	})
}

func TestAdminEntries(t *testing.T) {
	if got := FormatAdminEntry("42"); got != "ADMIN_ROLE:42" {
		t.Fatalf("got %q", got)
	}

	cases := []struct {
		in string
		id string
		ok bool
	}{
		{"ADMIN_ROLE:42", "42", true},
		{"ADMIN_ROLE: 42", "42", true},
		{"ADMIN_ROLE:", "", false},
		{"ADMIN_ROLE:abc", "", false},
		{"hello", "", false},
	}
	for _, c := range cases {
		id, ok := ParseAdminEntry(c.in)
		if id != c.id || ok != c.ok {
			t.Errorf("ParseAdminEntry(%q) = (%q, %v), want (%q, %v)", c.in, id, ok, c.id, c.ok)
		}
	}

	if got := AdminSummaryBody(nil); got != "No admin roles set" {
		t.Fatalf("empty summary = %q", got)
	}
	if got := AdminSummaryBody([]string{"1", "2"}); got != "<@&1>\n<@&2>" {
		t.Fatalf("summary = %q", got)
	}
}
