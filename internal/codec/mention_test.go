//go:build !integration

package codec

import (
	"testing"

	"guild-registration-bot/internal/domain/ports/adapter"
)

func TestParseChannelRef(t *testing.T) {
	cases := []struct {
		in string
		id string
		ok bool
	}{
		{"<#123>", "123", true},
		{" <#123> ", "123", true},
		{"123", "123", true},
		{"#general", "", false},
		{"<@&123>", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		id, ok := ParseChannelRef(c.in)
		if id != c.id || ok != c.ok {
			t.Errorf("ParseChannelRef(%q) = (%q, %v), want (%q, %v)", c.in, id, ok, c.id, c.ok)
		}
	}
}

func TestResolveRoleToken(t *testing.T) {
	roles := []adapter.Role{
		{ID: "111", Name: "Red"},
		{ID: "222", Name: "blue"},
		// Pathological: a role literally named like another role's id.
		{ID: "333", Name: "111"},
	}

	t.Run("mention wins over everything", func(t *testing.T) {
		r, ok := ResolveRoleToken(roles, "<@&222>")
		if !ok || r.ID != "222" {
			t.Fatalf("got %+v, %v", r, ok)
		}
	})

	t.Run("numeric id beats a name spelled like it", func(t *testing.T) {
		r, ok := ResolveRoleToken(roles, "111")
		if !ok || r.ID != "111" {
			t.Fatalf("got %+v, %v", r, ok)
		}
	})

	t.Run("exact name beats case-insensitive name", func(t *testing.T) {
		r, ok := ResolveRoleToken(roles, "blue")
		if !ok || r.ID != "222" {
			t.Fatalf("got %+v, %v", r, ok)
		}
	})

	t.Run("case-insensitive fallback", func(t *testing.T) {
		r, ok := ResolveRoleToken(roles, "RED")
		if !ok || r.ID != "111" {
			t.Fatalf("got %+v, %v", r, ok)
		}
	})

	t.Run("unresolvable", func(t *testing.T) {
		if _, ok := ResolveRoleToken(roles, "Green"); ok {
			t.Fatal("expected no match")
		}
		if _, ok := ResolveRoleToken(roles, ""); ok {
			t.Fatal("expected no match for empty token")
		}
	})
}
