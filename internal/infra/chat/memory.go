// Package chat provides the in-memory chat gateway used by unit tests and by
// dev mode, plus the command router. A production deployment swaps the
// gateway for a platform SDK binding implementing the same ports.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/ports/adapter"
)

type channelKind string

const (
	kindText   channelKind = "text"
	kindDM     channelKind = "dm"
	kindThread channelKind = "thread"
)

type memMember struct {
	id       string
	nickname string
	roles    []string
	admin    bool
}

type memGuild struct {
	id         string
	name       string
	roles      []adapter.Role
	members    map[string]*memMember
	categories map[string]string // id -> name
}

type memChannel struct {
	info     adapter.Channel
	kind     channelKind
	ownerID  string // dm peer or thread creator
	parentID string
	deleted  bool
	messages []adapter.Message
}

type msgWaiter struct {
	userID string
	ch     chan adapter.Message
	gone   chan struct{}
}

type memDecision struct {
	ch       chan adapter.Decision
	actioned bool
}

// ScheduledDeletion records a DeleteMessageAfter call; tests assert on it.
type ScheduledDeletion struct {
	ChannelID string
	MessageID string
	Delay     time.Duration
}

// MemoryGateway implements ChatGateway, MemberDirectory and CommandSource
// against process-local state.
type MemoryGateway struct {
	mu         sync.Mutex
	seq        int
	guilds     map[string]*memGuild
	channels   map[string]*memChannel
	waiters    map[string][]*msgWaiter // channel id -> waiters
	decisions  map[string]*memDecision // message id -> pending decision
	commands   chan adapter.Command
	replies    []string
	scheduled  []ScheduledDeletion
	forbidNick map[string]bool // user id -> nickname change forbidden
	dmBlocked  map[string]bool
}

var (
	_ adapter.ChatGateway     = (*MemoryGateway)(nil)
	_ adapter.MemberDirectory = (*MemoryGateway)(nil)
	_ adapter.CommandSource   = (*MemoryGateway)(nil)
)

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		guilds:     make(map[string]*memGuild),
		channels:   make(map[string]*memChannel),
		waiters:    make(map[string][]*msgWaiter),
		decisions:  make(map[string]*memDecision),
		commands:   make(chan adapter.Command, 16),
		forbidNick: make(map[string]bool),
		dmBlocked:  make(map[string]bool),
	}
}

func (g *MemoryGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

// ---- fixture helpers (used by tests and dev seeding) ----

func (g *MemoryGateway) AddGuild(id, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.guilds[id] = &memGuild{
		id:         id,
		name:       name,
		members:    make(map[string]*memMember),
		categories: make(map[string]string),
	}
}

func (g *MemoryGateway) AddGuildRole(guildID string, role adapter.Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gd := g.guilds[guildID]
	gd.roles = append(gd.roles, role)
}

func (g *MemoryGateway) AddMember(guildID, userID string, admin bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.guilds[guildID].members[userID] = &memMember{id: userID, admin: admin}
}

func (g *MemoryGateway) AddTextChannel(guildID, name string) *adapter.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addChannelLocked(guildID, "", name, kindText, "")
}

func (g *MemoryGateway) addChannelLocked(guildID, categoryID, name string, kind channelKind, ownerID string) *adapter.Channel {
	ch := &memChannel{
		info: adapter.Channel{
			ID:         g.nextID("ch"),
			GuildID:    guildID,
			CategoryID: categoryID,
			Name:       name,
		},
		kind:    kind,
		ownerID: ownerID,
	}
	g.channels[ch.info.ID] = ch
	info := ch.info
	return &info
}

func (g *MemoryGateway) ForbidNickname(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forbidNick[userID] = true
}

func (g *MemoryGateway) BlockDM(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dmBlocked[userID] = true
}

func (g *MemoryGateway) MemberNickname(guildID, userID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.guilds[guildID].members[userID].nickname
}

// PostUserMessage simulates a user typing into a channel; a pending
// AwaitMessage for that user receives it.
func (g *MemoryGateway) PostUserMessage(channelID, userID, content string) (adapter.Message, error) {
	g.mu.Lock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted {
		g.mu.Unlock()
		return adapter.Message{}, domain.ErrSurfaceGone
	}
	msg := adapter.Message{
		ID:        g.nextID("msg"),
		ChannelID: channelID,
		AuthorID:  userID,
		Content:   content,
	}
	ch.messages = append(ch.messages, msg)
	var target *msgWaiter
	ws := g.waiters[channelID]
	for i, w := range ws {
		if w.userID == userID {
			target = w
			g.waiters[channelID] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	g.mu.Unlock()
	if target != nil {
		target.ch <- msg
	}
	return msg, nil
}

// Decide actions a pending decision control like a moderator click.
func (g *MemoryGateway) Decide(messageID string, verdict adapter.Verdict, moderatorID string) error {
	g.mu.Lock()
	d, ok := g.decisions[messageID]
	if !ok || d.actioned {
		g.mu.Unlock()
		return domain.ErrNotFound
	}
	d.actioned = true
	g.mu.Unlock()
	d.ch <- adapter.Decision{Verdict: verdict, ModeratorID: moderatorID}
	return nil
}

// Invoke feeds a command into the source, like a user running a slash command.
func (g *MemoryGateway) Invoke(cmd adapter.Command) {
	g.commands <- cmd
}

func (g *MemoryGateway) Replies() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.replies...)
}

func (g *MemoryGateway) Scheduled() []ScheduledDeletion {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ScheduledDeletion(nil), g.scheduled...)
}

// ChannelMessages returns a copy of a channel's messages, oldest first.
func (g *MemoryGateway) ChannelMessages(channelID string) []adapter.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return nil
	}
	return append([]adapter.Message(nil), ch.messages...)
}

func (g *MemoryGateway) ChannelDeleted(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	return !ok || ch.deleted
}

// ---- ChatGateway ----

func (g *MemoryGateway) EnsureCategory(ctx context.Context, guildID, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gd, ok := g.guilds[guildID]
	if !ok {
		return "", domain.ErrNotFound
	}
	for id, n := range gd.categories {
		if n == name {
			return id, nil
		}
	}
	id := g.nextID("cat")
	gd.categories[id] = name
	return id, nil
}

func (g *MemoryGateway) EnsureTextChannel(ctx context.Context, guildID, categoryID, name string) (*adapter.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ch := range g.channels {
		if ch.info.GuildID == guildID && ch.info.CategoryID == categoryID && ch.info.Name == name && !ch.deleted {
			info := ch.info
			return &info, nil
		}
	}
	return g.addChannelLocked(guildID, categoryID, name, kindText, ""), nil
}

func (g *MemoryGateway) ChannelByID(ctx context.Context, guildID, channelID string) (*adapter.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted || ch.info.GuildID != guildID {
		return nil, domain.ErrNotFound
	}
	info := ch.info
	return &info, nil
}

func (g *MemoryGateway) History(ctx context.Context, channelID string, limit int) ([]adapter.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted {
		return nil, domain.ErrSurfaceGone
	}
	// newest first
	out := make([]adapter.Message, 0, limit)
	for i := len(ch.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, ch.messages[i])
	}
	return out, nil
}

func (g *MemoryGateway) SendMessage(ctx context.Context, channelID, content string) (*adapter.Message, error) {
	return g.send(channelID, content, nil)
}

func (g *MemoryGateway) SendEmbed(ctx context.Context, channelID string, embed adapter.Embed) (*adapter.Message, error) {
	e := embed
	return g.send(channelID, "", &e)
}

func (g *MemoryGateway) send(channelID, content string, embed *adapter.Embed) (*adapter.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted {
		return nil, domain.ErrSurfaceGone
	}
	msg := adapter.Message{
		ID:        g.nextID("msg"),
		ChannelID: channelID,
		Content:   content,
		Embed:     embed,
	}
	ch.messages = append(ch.messages, msg)
	cp := msg
	return &cp, nil
}

func (g *MemoryGateway) EditEmbed(ctx context.Context, channelID, messageID string, embed adapter.Embed) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted {
		return domain.ErrSurfaceGone
	}
	for i := range ch.messages {
		if ch.messages[i].ID == messageID {
			e := embed
			ch.messages[i].Embed = &e
			return nil
		}
	}
	return domain.ErrNotFound
}

func (g *MemoryGateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted {
		return domain.ErrSurfaceGone
	}
	for i := range ch.messages {
		if ch.messages[i].ID == messageID {
			ch.messages = append(ch.messages[:i], ch.messages[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (g *MemoryGateway) DeleteMessageAfter(ctx context.Context, channelID, messageID string, delay time.Duration) error {
	g.mu.Lock()
	g.scheduled = append(g.scheduled, ScheduledDeletion{ChannelID: channelID, MessageID: messageID, Delay: delay})
	g.mu.Unlock()
	time.AfterFunc(delay, func() {
		_ = g.DeleteMessage(context.Background(), channelID, messageID)
	})
	return nil
}

func (g *MemoryGateway) OpenDM(ctx context.Context, userID string) (*adapter.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dmBlocked[userID] {
		return nil, domain.ErrForbidden
	}
	for _, ch := range g.channels {
		if ch.kind == kindDM && ch.ownerID == userID && !ch.deleted {
			info := ch.info
			return &info, nil
		}
	}
	return g.addChannelLocked("", "", "dm-"+userID, kindDM, userID), nil
}

func (g *MemoryGateway) CreatePrivateThread(ctx context.Context, parentChannelID, name, userID string) (*adapter.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	parent, ok := g.channels[parentChannelID]
	if !ok || parent.deleted {
		return nil, domain.ErrSurfaceGone
	}
	ch := g.addChannelLocked(parent.info.GuildID, parent.info.CategoryID, name, kindThread, userID)
	g.channels[ch.ID].parentID = parentChannelID
	return ch, nil
}

func (g *MemoryGateway) DeleteThread(ctx context.Context, threadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[threadID]
	if !ok || ch.kind != kindThread {
		return domain.ErrNotFound
	}
	ch.deleted = true
	for _, w := range g.waiters[threadID] {
		close(w.gone)
	}
	delete(g.waiters, threadID)
	return nil
}

func (g *MemoryGateway) AwaitMessage(ctx context.Context, channelID, userID string, timeout time.Duration) (*adapter.Message, error) {
	g.mu.Lock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted {
		g.mu.Unlock()
		return nil, domain.ErrSurfaceGone
	}
	w := &msgWaiter{userID: userID, ch: make(chan adapter.Message, 1), gone: make(chan struct{})}
	g.waiters[channelID] = append(g.waiters[channelID], w)
	g.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-w.ch:
		return &msg, nil
	case <-w.gone:
		return nil, domain.ErrSurfaceGone
	case <-timer.C:
		g.removeWaiter(channelID, w)
		return nil, domain.ErrAwaitTimeout
	case <-ctx.Done():
		g.removeWaiter(channelID, w)
		return nil, ctx.Err()
	}
}

func (g *MemoryGateway) removeWaiter(channelID string, w *msgWaiter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.waiters[channelID]
	for i, cand := range ws {
		if cand == w {
			g.waiters[channelID] = append(ws[:i], ws[i+1:]...)
			return
		}
	}
}

func (g *MemoryGateway) SendDecision(ctx context.Context, channelID string, embed adapter.Embed) (*adapter.Message, error) {
	msg, err := g.SendEmbed(ctx, channelID, embed)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.decisions[msg.ID] = &memDecision{ch: make(chan adapter.Decision, 1)}
	g.mu.Unlock()
	return msg, nil
}

func (g *MemoryGateway) AwaitDecision(ctx context.Context, channelID, messageID string) (adapter.Decision, error) {
	g.mu.Lock()
	d, ok := g.decisions[messageID]
	g.mu.Unlock()
	if !ok {
		return adapter.Decision{}, domain.ErrNotFound
	}
	select {
	case dec := <-d.ch:
		return dec, nil
	case <-ctx.Done():
		return adapter.Decision{}, ctx.Err()
	}
}

func (g *MemoryGateway) DisableDecision(ctx context.Context, channelID, messageID, note string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok || ch.deleted {
		return domain.ErrSurfaceGone
	}
	for i := range ch.messages {
		if ch.messages[i].ID == messageID {
			ch.messages[i].Content = note
			delete(g.decisions, messageID)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- MemberDirectory ----

func (g *MemoryGateway) GuildName(ctx context.Context, guildID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gd, ok := g.guilds[guildID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return gd.name, nil
}

func (g *MemoryGateway) GuildRoles(ctx context.Context, guildID string) ([]adapter.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gd, ok := g.guilds[guildID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]adapter.Role(nil), gd.roles...), nil
}

func (g *MemoryGateway) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, err := g.memberLocked(guildID, userID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), m.roles...), nil
}

func (g *MemoryGateway) HasAdminPermission(ctx context.Context, guildID, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, err := g.memberLocked(guildID, userID)
	if err != nil {
		return false, err
	}
	return m.admin, nil
}

func (g *MemoryGateway) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.forbidNick[userID] {
		return domain.ErrForbidden
	}
	m, err := g.memberLocked(guildID, userID)
	if err != nil {
		return err
	}
	m.nickname = nick
	return nil
}

func (g *MemoryGateway) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, err := g.memberLocked(guildID, userID)
	if err != nil {
		return err
	}
	for _, r := range m.roles {
		if r == roleID {
			return nil
		}
	}
	m.roles = append(m.roles, roleID)
	return nil
}

func (g *MemoryGateway) memberLocked(guildID, userID string) (*memMember, error) {
	gd, ok := g.guilds[guildID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m, ok := gd.members[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// ---- CommandSource ----

func (g *MemoryGateway) Commands() <-chan adapter.Command { return g.commands }

func (g *MemoryGateway) Reply(ctx context.Context, cmd adapter.Command, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, fmt.Sprintf("%s:%s", cmd.Name, text))
	return nil
}

// Close stops the command stream.
func (g *MemoryGateway) Close() { close(g.commands) }

// HasReplyContaining is a test convenience.
func (g *MemoryGateway) HasReplyContaining(sub string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.replies {
		if strings.Contains(r, sub) {
			return true
		}
	}
	return false
}
