package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/wrenhold/quackbot/internal/chat"
)

// ErrNotInVoiceChannel is returned when a join is requested by a member who
// is not in any voice channel.
var ErrNotInVoiceChannel = errors.New("bot: member not in a voice channel")

// botAuthor is the history author name under which the bot's own replies are
// recorded. Must match what [chat.Responder] writes.
const botAuthor = "bot"

// Messenger sends text messages to channels. Satisfied by
// *discordgo.Session.
type Messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// VoiceStateResolver looks up a member's cached voice state. Satisfied by
// *discordgo.State.
type VoiceStateResolver interface {
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
}

// PresenceSetter updates the bot's "listening to ..." activity. Satisfied by
// *discordgo.Session.
type PresenceSetter interface {
	UpdateListeningStatus(name string) error
}

// Gateway bundles the Discord API surface the router needs.
type Gateway interface {
	Messenger
	VoiceStateResolver
	PresenceSetter
}

// Replier generates conversational reply text. Satisfied by
// *chat.Responder.
type Replier interface {
	Reply(ctx context.Context, author, text string) (string, error)
	ReplyWithSuffix(ctx context.Context, author, text, suffix string) (string, error)
}

// RouterConfig carries the collaborators and tuning of a [Router].
type RouterConfig struct {
	Log      *slog.Logger
	SelfID   string
	WakeWord string

	// Activity is the listening presence shown while in a voice channel.
	Activity string

	Replier  Replier
	History  *chat.History
	Sessions *SessionManager

	// SnarkUserID, when set, selects a user whose direct messages get
	// SnarkSuffix appended to the persona prompt.
	SnarkUserID string
	SnarkSuffix string
}

// Router decides what to do with each incoming text message: ignore it,
// answer it, or treat it as a voice channel command.
type Router struct {
	log         *slog.Logger
	selfID      string
	wake        string
	activity    string
	replier     Replier
	history     *chat.History
	sessions    *SessionManager
	snarkUserID string
	snarkSuffix string
}

// NewRouter creates a Router from cfg. Log defaults to slog.Default.
func NewRouter(cfg RouterConfig) *Router {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		log:         log,
		selfID:      cfg.SelfID,
		wake:        strings.ToLower(cfg.WakeWord),
		activity:    cfg.Activity,
		replier:     cfg.Replier,
		history:     cfg.History,
		sessions:    cfg.Sessions,
		snarkUserID: cfg.SnarkUserID,
		snarkSuffix: cfg.SnarkSuffix,
	}
}

// HandleMessage routes one incoming message. A message is addressed to the
// bot when it contains the wake word, arrives as a direct message, or
// continues an exchange where the bot just answered the same author.
// Everything else is recorded as context and otherwise ignored.
func (r *Router) HandleMessage(ctx context.Context, gw Gateway, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == r.selfID {
		return
	}
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}
	author := m.Author.Username

	if r.isBareMention(content) {
		r.send(gw, m.ChannelID, "?")
		return
	}

	isDM := m.GuildID == ""
	if !r.addressed(content, author, isDM) {
		r.history.Add(author, content)
		return
	}

	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "join"):
		r.handleJoin(ctx, gw, m, isDM)
	case strings.Contains(lower, "leave"):
		r.handleLeave(gw, m, isDM)
	default:
		r.handleConverse(ctx, gw, m, author, content, isDM)
	}
}

func (r *Router) addressed(content, author string, isDM bool) bool {
	if isDM {
		return true
	}
	if strings.Contains(strings.ToLower(content), r.wake) {
		return true
	}
	prev, last, ok := r.history.LastTwo()
	return ok && prev.Author == author && last.Author == botAuthor
}

// isBareMention reports whether content is nothing but a mention of the bot.
func (r *Router) isBareMention(content string) bool {
	return content == "<@"+r.selfID+">" || content == "<@!"+r.selfID+">"
}

func (r *Router) handleJoin(ctx context.Context, gw Gateway, m *discordgo.MessageCreate, isDM bool) {
	if isDM {
		r.send(gw, m.ChannelID, "no")
		return
	}
	channelID, err := r.authorVoiceChannel(gw, m)
	if err != nil {
		r.send(gw, m.ChannelID, "you're not even in a voice channel")
		return
	}
	if err := r.sessions.Join(ctx, m.GuildID, channelID); err != nil {
		r.log.Warn("voice join failed", "guild_id", m.GuildID, "channel_id", channelID, "err", err)
		r.send(gw, m.ChannelID, "no")
		return
	}
	if r.activity != "" {
		if err := gw.UpdateListeningStatus(r.activity); err != nil {
			r.log.Warn("presence update failed", "err", err)
		}
	}
}

func (r *Router) handleLeave(gw Gateway, m *discordgo.MessageCreate, isDM bool) {
	if isDM {
		r.send(gw, m.ChannelID, "no")
		return
	}
	if err := r.sessions.Leave(m.GuildID); err != nil {
		r.log.Debug("voice leave ignored", "guild_id", m.GuildID, "err", err)
		r.send(gw, m.ChannelID, "i'm not even in a voice channel")
		return
	}
	if err := gw.UpdateListeningStatus(""); err != nil {
		r.log.Warn("presence update failed", "err", err)
	}
	r.send(gw, m.ChannelID, "fine then")
}

func (r *Router) handleConverse(ctx context.Context, gw Gateway, m *discordgo.MessageCreate, author, content string, isDM bool) {
	var (
		reply string
		err   error
	)
	if isDM && r.snarkUserID != "" && m.Author.ID == r.snarkUserID {
		reply, err = r.replier.ReplyWithSuffix(ctx, author, content, r.snarkSuffix)
	} else {
		reply, err = r.replier.Reply(ctx, author, content)
	}
	if err != nil {
		r.log.Warn("reply generation failed", "author", author, "err", err)
		return
	}
	r.send(gw, m.ChannelID, reply)
}

// authorVoiceChannel resolves the message author's current voice channel.
func (r *Router) authorVoiceChannel(gw Gateway, m *discordgo.MessageCreate) (string, error) {
	vs, err := gw.VoiceState(m.GuildID, m.Author.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", ErrNotInVoiceChannel
	}
	return vs.ChannelID, nil
}

func (r *Router) send(gw Gateway, channelID, content string) {
	if _, err := gw.ChannelMessageSend(channelID, content); err != nil {
		r.log.Warn("message send failed", "channel_id", channelID, "err", err)
	}
}
