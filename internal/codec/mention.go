// Package codec implements the textual formats the registration system
// persists inside chat messages: the question-blob grammar, the config-record
// embed fields, the admin-role entry lines, and the mention syntax used to
// reference channels and roles. The formats are wire-compatible with records
// written by earlier versions of the bot, so parsing is deliberately lenient.
package codec

import (
	"fmt"
	"regexp"
	"strings"

	"guild-registration-bot/internal/domain/ports/adapter"
)

var (
	channelMentionRe = regexp.MustCompile(`^<#(\d+)>$`)
	roleMentionRe    = regexp.MustCompile(`^<@&(\d+)>$`)
	numericRe        = regexp.MustCompile(`^\d+$`)
)

func ChannelMention(channelID string) string { return fmt.Sprintf("<#%s>", channelID) }

func RoleMention(roleID string) string { return fmt.Sprintf("<@&%s>", roleID) }

// ParseChannelRef accepts a channel mention or a bare numeric id.
func ParseChannelRef(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := channelMentionRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if numericRe.MatchString(s) {
		return s, true
	}
	return "", false
}

// ParseRoleRef accepts a role mention or a bare numeric id.
func ParseRoleRef(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := roleMentionRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if numericRe.MatchString(s) {
		return s, true
	}
	return "", false
}

// ResolveRoleToken resolves a stored role token against the guild's roles.
// Precedence is fixed: mention-syntax id, bare numeric id, exact name,
// case-insensitive name. The order matters when role names collide with ids
// or with each other.
func ResolveRoleToken(roles []adapter.Role, token string) (adapter.Role, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return adapter.Role{}, false
	}
	if m := roleMentionRe.FindStringSubmatch(token); m != nil {
		return roleByID(roles, m[1])
	}
	if numericRe.MatchString(token) {
		return roleByID(roles, token)
	}
	for _, r := range roles {
		if r.Name == token {
			return r, true
		}
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, token) {
			return r, true
		}
	}
	return adapter.Role{}, false
}

func roleByID(roles []adapter.Role, id string) (adapter.Role, bool) {
	for _, r := range roles {
		if r.ID == id {
			return r, true
		}
	}
	return adapter.Role{}, false
}
