//go:build !integration

package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/infra/chat"
)

func testGateway(t *testing.T) *chat.MemoryGateway {
	t.Helper()
	gw := chat.NewMemoryGateway()
	gw.AddGuild("g1", "Test Guild")
	return gw
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func sampleConfig(t *testing.T) *model.RegistrationConfig {
	t.Helper()
	cfg, err := model.NewRegistrationConfig("100", "200", model.ModeManual)
	if err != nil {
		t.Fatal(err)
	}
	q, err := model.NewQuestion("Name?", model.KindText, model.ActionNickChange, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.AddQuestion(q)
	return cfg
}

func TestMessageConfigRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("load before any save reports missing", func(t *testing.T) {
		repo := NewMessageConfigRepo(testGateway(t), DefaultDataCategory, testLogger())
		_, err := repo.Load(ctx, "g1")
		if !errors.Is(err, domain.ErrConfigMissing) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("save then load round trips", func(t *testing.T) {
		repo := NewMessageConfigRepo(testGateway(t), DefaultDataCategory, testLogger())
		want := sampleConfig(t)
		if err := repo.Save(ctx, "g1", want); err != nil {
			t.Fatal(err)
		}
		got, err := repo.Load(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
		}
	})

	t.Run("second save edits in place", func(t *testing.T) {
		gw := testGateway(t)
		repo := NewMessageConfigRepo(gw, DefaultDataCategory, testLogger())
		cfg := sampleConfig(t)
		if err := repo.Save(ctx, "g1", cfg); err != nil {
			t.Fatal(err)
		}
		cfg.Mode = model.ModeAutomatic
		if err := repo.Save(ctx, "g1", cfg); err != nil {
			t.Fatal(err)
		}

		got, err := repo.Load(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Mode != model.ModeAutomatic {
			t.Fatalf("mode = %q", got.Mode)
		}
		// Still exactly one record message in the data channel.
		ch, err := gw.EnsureTextChannel(ctx, "g1", mustCategory(t, gw), "registration-data")
		if err != nil {
			t.Fatal(err)
		}
		if msgs := gw.ChannelMessages(ch.ID); len(msgs) != 1 {
			t.Fatalf("record messages = %d", len(msgs))
		}
	})
}

func mustCategory(t *testing.T, gw *chat.MemoryGateway) string {
	t.Helper()
	id, err := gw.EnsureCategory(context.Background(), "g1", DefaultDataCategory)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestMessageAdminRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("read on fresh guild is empty", func(t *testing.T) {
		repo := NewMessageAdminRepo(testGateway(t), DefaultDataCategory, testLogger())
		roles, err := repo.Read(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		if len(roles) != 0 {
			t.Fatalf("roles = %v", roles)
		}
	})

	t.Run("write preserves insertion order on read", func(t *testing.T) {
		repo := NewMessageAdminRepo(testGateway(t), DefaultDataCategory, testLogger())
		want := []string{"31", "32", "33"}
		if err := repo.Write(ctx, "g1", want); err != nil {
			t.Fatal(err)
		}
		got, err := repo.Read(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("write of read is idempotent", func(t *testing.T) {
		repo := NewMessageAdminRepo(testGateway(t), DefaultDataCategory, testLogger())
		if err := repo.Write(ctx, "g1", []string{"31", "32"}); err != nil {
			t.Fatal(err)
		}
		first, err := repo.Read(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		if err := repo.Write(ctx, "g1", first); err != nil {
			t.Fatal(err)
		}
		second, err := repo.Read(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("first %v, second %v", first, second)
		}
	})

	t.Run("summary embed survives rewrites as a single message", func(t *testing.T) {
		gw := testGateway(t)
		repo := NewMessageAdminRepo(gw, DefaultDataCategory, testLogger())
		if err := repo.Write(ctx, "g1", []string{"31"}); err != nil {
			t.Fatal(err)
		}
		if err := repo.Write(ctx, "g1", []string{"31", "32"}); err != nil {
			t.Fatal(err)
		}

		ch, err := gw.EnsureTextChannel(ctx, "g1", mustCategory(t, gw), "admin-roles")
		if err != nil {
			t.Fatal(err)
		}
		var summaries int
		for _, msg := range gw.ChannelMessages(ch.ID) {
			if msg.Embed != nil {
				summaries++
			}
		}
		if summaries != 1 {
			t.Fatalf("summary embeds = %d", summaries)
		}
	})
}
