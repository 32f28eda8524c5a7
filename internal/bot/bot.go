package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/wrenhold/quackbot/internal/chat"
	"github.com/wrenhold/quackbot/internal/voice"
)

// Config holds the gateway-level settings of the bot.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// WakeWord marks text messages as addressed to the bot.
	WakeWord string

	// Activity is the "listening to ..." presence shown while in a voice
	// channel.
	Activity string

	// SnarkUserID and SnarkSuffix configure the special-sender prompt
	// extension for direct messages. Optional.
	SnarkUserID string
	SnarkSuffix string
}

// Deps carries the collaborators the bot layer wires together.
type Deps struct {
	Log     *slog.Logger
	Replier Replier
	History *chat.History

	// NewVoiceSession builds a guild-bound voice session. Called once per
	// guild on first join.
	NewVoiceSession func(session *discordgo.Session, guildID string) *voice.Session
}

// Bot owns the Discord gateway connection. It routes incoming messages
// through a [Router] and manages per-guild voice sessions.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	router    *Router
	sessions  *SessionManager
	closeOnce sync.Once
}

// New creates a Bot, connects to Discord, and registers the message handler.
func New(cfg Config, deps Deps) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("bot: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuilds

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("bot: open session: %w", err)
	}

	sessions := NewSessionManager(func(guildID string) *voice.Session {
		return deps.NewVoiceSession(session, guildID)
	})

	router := NewRouter(RouterConfig{
		Log:         deps.Log,
		SelfID:      session.State.User.ID,
		WakeWord:    cfg.WakeWord,
		Activity:    cfg.Activity,
		Replier:     deps.Replier,
		History:     deps.History,
		Sessions:    sessions,
		SnarkUserID: cfg.SnarkUserID,
		SnarkSuffix: cfg.SnarkSuffix,
	})

	b := &Bot{
		session:  session,
		router:   router,
		sessions: sessions,
	}

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.router.HandleMessage(context.Background(), sessionGateway{s}, m)
	})

	return b, nil
}

// Sessions returns the voice session manager.
func (b *Bot) Sessions() *SessionManager {
	return b.sessions
}

// Run blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close leaves all voice channels and disconnects from Discord.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.sessions.CloseAll()

		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("bot: close session: %w", err)
			}
		}
		slog.Info("discord bot closed")
	})
	return closeErr
}

// sessionGateway adapts *discordgo.Session to the [Gateway] interface the
// router is written against.
type sessionGateway struct {
	s *discordgo.Session
}

func (g sessionGateway) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return g.s.ChannelMessageSend(channelID, content, options...)
}

func (g sessionGateway) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	return g.s.State.VoiceState(guildID, userID)
}

func (g sessionGateway) UpdateListeningStatus(name string) error {
	return g.s.UpdateListeningStatus(name)
}
