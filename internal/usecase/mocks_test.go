//go:build !integration

package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/domain/ports/adapter"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- gateway mock ----
//
// Scripted instead of concurrent: AwaitMessage pops the next scripted input
// for the channel, and an exhausted script reads as a timeout. That keeps the
// session loop synchronous and the tests free of sleeps.

type scheduledDeletion struct {
	channelID string
	messageID string
	delay     time.Duration
}

type mockGateway struct {
	mu sync.Mutex

	seq      int
	messages map[string][]adapter.Message // channel id -> live messages
	script   map[string][]string          // channel id -> pending user inputs
	deleted  map[string]bool              // deleted threads/channels
	dmsOpen  map[string]string            // user id -> dm channel id

	scheduled []scheduledDeletion

	guildName string
	roles     []adapter.Role

	admins      map[string]bool
	memberRoles map[string][]string
	nicknames   map[string]string
	granted     map[string][]string
	forbidNick  map[string]bool
	dmBlocked   map[string]bool

	verdict       *adapter.Decision // scripted moderator action
	decisionNote  string
	decisionMsgID string
	resolved      chan struct{} // closed by DisableDecision
}

var (
	_ adapter.ChatGateway     = (*mockGateway)(nil)
	_ adapter.MemberDirectory = (*mockGateway)(nil)
)

func newMockGateway() *mockGateway {
	return &mockGateway{
		messages:    make(map[string][]adapter.Message),
		script:      make(map[string][]string),
		deleted:     make(map[string]bool),
		dmsOpen:     make(map[string]string),
		guildName:   "Test Guild",
		admins:      make(map[string]bool),
		memberRoles: make(map[string][]string),
		nicknames:   make(map[string]string),
		granted:     make(map[string][]string),
		forbidNick:  make(map[string]bool),
		dmBlocked:   make(map[string]bool),
		resolved:    make(chan struct{}),
	}
}

func (g *mockGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *mockGateway) scriptInputs(channelID string, inputs ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.script[channelID] = append(g.script[channelID], inputs...)
}

func (g *mockGateway) channelContains(channelID, sub string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.messages[channelID] {
		if strings.Contains(m.Content, sub) {
			return true
		}
	}
	return false
}

func (g *mockGateway) scheduledFor(messageID string) (scheduledDeletion, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.scheduled {
		if s.messageID == messageID {
			return s, true
		}
	}
	return scheduledDeletion{}, false
}

func (g *mockGateway) EnsureCategory(ctx context.Context, guildID, name string) (string, error) {
	return "cat-" + name, nil
}

func (g *mockGateway) EnsureTextChannel(ctx context.Context, guildID, categoryID, name string) (*adapter.Channel, error) {
	return &adapter.Channel{ID: "ch-" + name, GuildID: guildID, CategoryID: categoryID, Name: name}, nil
}

func (g *mockGateway) ChannelByID(ctx context.Context, guildID, channelID string) (*adapter.Channel, error) {
	return &adapter.Channel{ID: channelID, GuildID: guildID}, nil
}

func (g *mockGateway) History(ctx context.Context, channelID string, limit int) ([]adapter.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	msgs := g.messages[channelID]
	out := make([]adapter.Message, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (g *mockGateway) SendMessage(ctx context.Context, channelID, content string) (*adapter.Message, error) {
	return g.send(channelID, content, nil)
}

func (g *mockGateway) SendEmbed(ctx context.Context, channelID string, embed adapter.Embed) (*adapter.Message, error) {
	e := embed
	return g.send(channelID, "", &e)
}

func (g *mockGateway) send(channelID, content string, embed *adapter.Embed) (*adapter.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleted[channelID] {
		return nil, domain.ErrSurfaceGone
	}
	msg := adapter.Message{ID: g.nextID("msg"), ChannelID: channelID, Content: content, Embed: embed}
	g.messages[channelID] = append(g.messages[channelID], msg)
	cp := msg
	return &cp, nil
}

func (g *mockGateway) EditEmbed(ctx context.Context, channelID, messageID string, embed adapter.Embed) error {
	return nil
}

func (g *mockGateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	msgs := g.messages[channelID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			g.messages[channelID] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (g *mockGateway) DeleteMessageAfter(ctx context.Context, channelID, messageID string, delay time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scheduled = append(g.scheduled, scheduledDeletion{channelID: channelID, messageID: messageID, delay: delay})
	return nil
}

func (g *mockGateway) OpenDM(ctx context.Context, userID string) (*adapter.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dmBlocked[userID] {
		return nil, domain.ErrForbidden
	}
	id, ok := g.dmsOpen[userID]
	if !ok {
		id = "dm-" + userID
		g.dmsOpen[userID] = id
	}
	return &adapter.Channel{ID: id, Name: id}, nil
}

func (g *mockGateway) CreatePrivateThread(ctx context.Context, parentChannelID, name, userID string) (*adapter.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleted[parentChannelID] {
		return nil, domain.ErrSurfaceGone
	}
	return &adapter.Channel{ID: "thread-" + userID, Name: name}, nil
}

func (g *mockGateway) DeleteThread(ctx context.Context, threadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted[threadID] = true
	return nil
}

func (g *mockGateway) threadDeleted(threadID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deleted[threadID]
}

func (g *mockGateway) AwaitMessage(ctx context.Context, channelID, userID string, timeout time.Duration) (*adapter.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleted[channelID] {
		return nil, domain.ErrSurfaceGone
	}
	pending := g.script[channelID]
	if len(pending) == 0 {
		return nil, domain.ErrAwaitTimeout
	}
	g.script[channelID] = pending[1:]
	msg := adapter.Message{ID: g.nextID("msg"), ChannelID: channelID, AuthorID: userID, Content: pending[0]}
	g.messages[channelID] = append(g.messages[channelID], msg)
	cp := msg
	return &cp, nil
}

func (g *mockGateway) SendDecision(ctx context.Context, channelID string, embed adapter.Embed) (*adapter.Message, error) {
	msg, err := g.SendEmbed(ctx, channelID, embed)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.decisionMsgID = msg.ID
	g.mu.Unlock()
	return msg, nil
}

func (g *mockGateway) AwaitDecision(ctx context.Context, channelID, messageID string) (adapter.Decision, error) {
	g.mu.Lock()
	v := g.verdict
	g.mu.Unlock()
	if v == nil {
		<-ctx.Done()
		return adapter.Decision{}, ctx.Err()
	}
	return *v, nil
}

func (g *mockGateway) DisableDecision(ctx context.Context, channelID, messageID, note string) error {
	g.mu.Lock()
	g.decisionNote = note
	g.mu.Unlock()
	close(g.resolved)
	return nil
}

// ---- member directory ----

func (g *mockGateway) GuildName(ctx context.Context, guildID string) (string, error) {
	return g.guildName, nil
}

func (g *mockGateway) GuildRoles(ctx context.Context, guildID string) ([]adapter.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]adapter.Role(nil), g.roles...), nil
}

func (g *mockGateway) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.memberRoles[userID]...), nil
}

func (g *mockGateway) HasAdminPermission(ctx context.Context, guildID, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admins[userID], nil
}

func (g *mockGateway) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.forbidNick[userID] {
		return domain.ErrForbidden
	}
	g.nicknames[userID] = nick
	return nil
}

func (g *mockGateway) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted[userID] = append(g.granted[userID], roleID)
	return nil
}

func (g *mockGateway) nickname(userID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nicknames[userID]
}

func (g *mockGateway) grantedRoles(userID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.granted[userID]...)
}

// ---- repositories ----

type mockConfigRepo struct {
	mu   sync.Mutex
	cfgs map[string]*model.RegistrationConfig
}

func newMockConfigRepo() *mockConfigRepo {
	return &mockConfigRepo{cfgs: make(map[string]*model.RegistrationConfig)}
}

func (r *mockConfigRepo) Load(ctx context.Context, guildID string) (*model.RegistrationConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.cfgs[guildID]
	if !ok {
		return nil, domain.ErrConfigMissing
	}
	return cfg.Snapshot(), nil
}

func (r *mockConfigRepo) Save(ctx context.Context, guildID string, cfg *model.RegistrationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgs[guildID] = cfg.Snapshot()
	return nil
}

type mockAdminRepo struct {
	mu    sync.Mutex
	roles map[string][]string
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{roles: make(map[string][]string)}
}

func (r *mockAdminRepo) Read(ctx context.Context, guildID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.roles[guildID]...), nil
}

func (r *mockAdminRepo) Write(ctx context.Context, guildID string, roleIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[guildID] = append([]string(nil), roleIDs...)
	return nil
}

type mockRegistry struct {
	mu       sync.Mutex
	held     map[string]string
	acquired int
	released int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{held: make(map[string]string)}
}

func (r *mockRegistry) Acquire(ctx context.Context, guildID, userID string, ttl time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := guildID + ":" + userID
	if _, ok := r.held[key]; ok {
		return "", domain.ErrActiveSession
	}
	r.acquired++
	token := fmt.Sprintf("tok-%d", r.acquired)
	r.held[key] = token
	return token, nil
}

func (r *mockRegistry) Release(ctx context.Context, guildID, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := guildID + ":" + userID
	if r.held[key] != token {
		return domain.ErrNotFound
	}
	delete(r.held, key)
	r.released++
	return nil
}

func (r *mockRegistry) balanced() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquired == r.released && len(r.held) == 0
}

// waitUntil polls for a condition driven by a detached goroutine.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
