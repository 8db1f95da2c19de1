// File: internal/domain/ports/adapter/chat.go
package adapter

import (
	"context"
	"time"
)

// The chat platform is consumed through these ports. The real gateway (a
// platform SDK binding) lives outside the core; tests and dev mode run on the
// in-memory implementation in internal/infra/chat.

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	Footer      string
	Fields      []EmbedField
}

type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	Embed     *Embed
}

type Channel struct {
	ID         string
	GuildID    string
	CategoryID string
	Name       string
}

type Role struct {
	ID   string
	Name string
}

type Verdict string

const (
	VerdictAccept Verdict = "accept"
	VerdictDeny   Verdict = "deny"
)

// Decision is one moderator action on a pending review message.
type Decision struct {
	Verdict     Verdict
	ModeratorID string
}

// ChatGateway covers channel, message, and thread operations. History returns
// newest-first. AwaitMessage blocks until the given user posts in the channel
// or the timeout elapses (domain.ErrAwaitTimeout); a deleted surface yields
// domain.ErrSurfaceGone.
type ChatGateway interface {
	EnsureCategory(ctx context.Context, guildID, name string) (string, error)
	EnsureTextChannel(ctx context.Context, guildID, categoryID, name string) (*Channel, error)
	ChannelByID(ctx context.Context, guildID, channelID string) (*Channel, error)
	History(ctx context.Context, channelID string, limit int) ([]Message, error)

	SendMessage(ctx context.Context, channelID, content string) (*Message, error)
	SendEmbed(ctx context.Context, channelID string, embed Embed) (*Message, error)
	EditEmbed(ctx context.Context, channelID, messageID string, embed Embed) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// DeleteMessageAfter schedules a deletion and returns immediately.
	DeleteMessageAfter(ctx context.Context, channelID, messageID string, delay time.Duration) error

	OpenDM(ctx context.Context, userID string) (*Channel, error)
	CreatePrivateThread(ctx context.Context, parentChannelID, name, userID string) (*Channel, error)
	DeleteThread(ctx context.Context, threadID string) error

	AwaitMessage(ctx context.Context, channelID, userID string, timeout time.Duration) (*Message, error)

	// SendDecision posts the embed with Accept/Deny controls. AwaitDecision
	// blocks until a moderator actions the control; the control carries no
	// expiry, so cancellation comes only from ctx. DisableDecision replaces
	// the controls with a closing note.
	SendDecision(ctx context.Context, channelID string, embed Embed) (*Message, error)
	AwaitDecision(ctx context.Context, channelID, messageID string) (Decision, error)
	DisableDecision(ctx context.Context, channelID, messageID, note string) error
}

// MemberDirectory covers guild member and role operations. SetNickname and
// AddRole report a missing platform permission as domain.ErrForbidden.
type MemberDirectory interface {
	GuildName(ctx context.Context, guildID string) (string, error)
	GuildRoles(ctx context.Context, guildID string) ([]Role, error)
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	HasAdminPermission(ctx context.Context, guildID, userID string) (bool, error)
	SetNickname(ctx context.Context, guildID, userID, nick string) error
	AddRole(ctx context.Context, guildID, userID, roleID string) error
}

// Command is one invoked entry point, already split into named arguments by
// the platform layer.
type Command struct {
	GuildID   string
	ChannelID string
	UserID    string
	Name      string
	Args      map[string]string
}

// CommandSource feeds invoked commands to the router. The channel closes when
// the gateway shuts down.
type CommandSource interface {
	Commands() <-chan Command
	// Reply sends an ephemeral-style response visible to the invoking user.
	Reply(ctx context.Context, cmd Command, text string) error
}
