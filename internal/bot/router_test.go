package bot

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/wrenhold/quackbot/internal/chat"
)

// ---- fixtures ----

type routerFixture struct {
	router   *Router
	gateway  *fakeGateway
	replier  *fakeReplier
	history  *chat.History
	sessions *SessionManager
	platform *fakePlatform
}

func newRouterFixture(t *testing.T, opts ...func(*RouterConfig)) *routerFixture {
	t.Helper()
	gateway := newFakeGateway()
	replier := &fakeReplier{reply: "quack"}
	history := chat.NewHistory(50, time.Hour)
	platform := &fakePlatform{}
	sessions := NewSessionManager(testVoiceSessionFactory(t, platform))

	cfg := RouterConfig{
		Log:      slog.New(slog.DiscardHandler),
		SelfID:   "bot-1",
		WakeWord: "adam",
		Activity: "richard's music",
		Replier:  replier,
		History:  history,
		Sessions: sessions,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &routerFixture{
		router:   NewRouter(cfg),
		gateway:  gateway,
		replier:  replier,
		history:  history,
		sessions: sessions,
		platform: platform,
	}
}

func message(authorID, author, guildID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ChannelID: "chan-1",
			GuildID:   guildID,
			Content:   content,
			Author:    &discordgo.User{ID: authorID, Username: author},
		},
	}
}

// ---- routing ----

func TestRouter_OwnMessageIgnored(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("bot-1", "adam", "guild-1", "adam hello"))

	if got := fx.replier.callCount(); got != 0 {
		t.Errorf("replier calls = %d, want 0", got)
	}
	if got := len(fx.gateway.messages()); got != 0 {
		t.Errorf("sent messages = %d, want 0", got)
	}
}

func TestRouter_WakeWordTriggersReply(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "hey Adam how are you"))

	if got := fx.replier.callCount(); got != 1 {
		t.Fatalf("replier calls = %d, want 1", got)
	}
	last, ok := fx.gateway.lastMessage()
	if !ok || last.content != "quack" {
		t.Errorf("reply = %q, want %q", last.content, "quack")
	}
	if last.channelID != "chan-1" {
		t.Errorf("reply channel = %q, want chan-1", last.channelID)
	}
}

func TestRouter_UnaddressedMessageRecordedNotAnswered(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "what's for lunch"))

	if got := fx.replier.callCount(); got != 0 {
		t.Errorf("replier calls = %d, want 0", got)
	}
	if got := fx.history.Len(); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}

func TestRouter_DirectMessageAlwaysAddressed(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "", "what's for lunch"))

	if got := fx.replier.callCount(); got != 1 {
		t.Errorf("replier calls = %d, want 1", got)
	}
}

func TestRouter_ReplyChainContinuesConversation(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)
	fx.history.Add("alice", "adam what time is it")
	fx.history.Add("bot", "late")

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "too late for pizza?"))

	if got := fx.replier.callCount(); got != 1 {
		t.Errorf("replier calls = %d, want 1", got)
	}
}

func TestRouter_ReplyChainRequiresSameAuthor(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)
	fx.history.Add("alice", "adam what time is it")
	fx.history.Add("bot", "late")

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u2", "brett", "guild-1", "too late for pizza?"))

	if got := fx.replier.callCount(); got != 0 {
		t.Errorf("replier calls = %d, want 0", got)
	}
}

func TestRouter_BareMentionAnsweredWithQuestionMark(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "<@bot-1>"))

	last, ok := fx.gateway.lastMessage()
	if !ok || last.content != "?" {
		t.Errorf("reply = %q, want %q", last.content, "?")
	}
	if got := fx.replier.callCount(); got != 0 {
		t.Errorf("replier calls = %d, want 0", got)
	}
}

func TestRouter_ReplierErrorSendsNothing(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)
	fx.replier.err = errors.New("llm down")

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "adam hello"))

	if got := len(fx.gateway.messages()); got != 0 {
		t.Errorf("sent messages = %d, want 0", got)
	}
}

func TestRouter_SnarkSuffixForConfiguredDMSender(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t, func(cfg *RouterConfig) {
		cfg.SnarkUserID = "u9"
		cfg.SnarkSuffix = "Be extra rude."
	})

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u9", "richard", "", "hello"))

	if got := fx.replier.lastSuffix; got != "Be extra rude." {
		t.Errorf("suffix = %q, want %q", got, "Be extra rude.")
	}
}

// ---- voice commands ----

func TestRouter_JoinConnectsToAuthorsChannel(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)
	fx.gateway.putVoiceState("guild-1", "u1", "vc-7")

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "adam join us"))

	if !fx.sessions.Active("guild-1") {
		t.Fatal("expected active session after join")
	}
	if len(fx.platform.channels) != 1 || fx.platform.channels[0] != "vc-7" {
		t.Errorf("connected channels = %v, want [vc-7]", fx.platform.channels)
	}
	if len(fx.gateway.activities) != 1 || fx.gateway.activities[0] != "richard's music" {
		t.Errorf("activities = %v, want listening presence set", fx.gateway.activities)
	}
}

func TestRouter_JoinWithoutVoiceStateRejected(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "adam join"))

	if fx.sessions.Active("guild-1") {
		t.Error("no session should be created")
	}
	last, ok := fx.gateway.lastMessage()
	if !ok || last.content != "you're not even in a voice channel" {
		t.Errorf("reply = %q, want the rejection", last.content)
	}
	if len(fx.platform.channels) != 0 {
		t.Errorf("platform connects = %v, want none", fx.platform.channels)
	}
}

func TestRouter_JoinInDMRefused(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "", "join please"))

	last, ok := fx.gateway.lastMessage()
	if !ok || last.content != "no" {
		t.Errorf("reply = %q, want %q", last.content, "no")
	}
}

func TestRouter_LeaveDisconnectsAndAcknowledges(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)
	fx.gateway.putVoiceState("guild-1", "u1", "vc-7")
	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "adam join"))
	if !fx.sessions.Active("guild-1") {
		t.Fatal("join should have connected")
	}

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "adam leave"))

	if fx.sessions.Active("guild-1") {
		t.Error("session should be disconnected")
	}
	last, ok := fx.gateway.lastMessage()
	if !ok || last.content != "fine then" {
		t.Errorf("reply = %q, want %q", last.content, "fine then")
	}
	if got := fx.gateway.activities; len(got) != 2 || got[1] != "" {
		t.Errorf("activities = %v, want presence cleared after leave", got)
	}
}

func TestRouter_LeaveWithoutSessionRejectedShortly(t *testing.T) {
	t.Parallel()
	fx := newRouterFixture(t)

	fx.router.HandleMessage(context.Background(), fx.gateway, message("u1", "alice", "guild-1", "adam leave"))

	last, ok := fx.gateway.lastMessage()
	if !ok || last.content != "i'm not even in a voice channel" {
		t.Errorf("reply = %q, want the rejection", last.content)
	}
}
