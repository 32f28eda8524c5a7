// Package bot provides the Discord gateway layer for quackbot. It owns the
// discordgo.Session lifecycle, routes text messages to the conversational
// responder, and manages per-guild voice sessions.
package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/wrenhold/quackbot/internal/voice"
)

// ErrNoActiveSession is returned when a leave is requested for a guild that
// has no connected voice session.
var ErrNoActiveSession = errors.New("bot: no active voice session")

// SessionFactory builds a voice session bound to a guild. The returned
// session is reused for all future connections in that guild, so speaker
// registrations survive reconnects.
type SessionFactory func(guildID string) *voice.Session

// SessionManager tracks at most one voice session per guild.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*voice.Session
	factory  SessionFactory
}

// NewSessionManager creates a SessionManager using factory to construct
// sessions on first use per guild.
func NewSessionManager(factory SessionFactory) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*voice.Session),
		factory:  factory,
	}
}

// Join connects the guild's session to channelID, creating the session on
// first use. Returns [voice.ErrSessionActive] when already connected.
func (m *SessionManager) Join(ctx context.Context, guildID, channelID string) error {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok {
		s = m.factory(guildID)
		m.sessions[guildID] = s
	}
	m.mu.Unlock()

	return s.Join(ctx, channelID)
}

// Leave disconnects the guild's session. Returns [ErrNoActiveSession] when
// the guild has no connected session.
func (m *SessionManager) Leave(guildID string) error {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	m.mu.Unlock()
	if !ok || !s.Connected() {
		return ErrNoActiveSession
	}
	return s.Leave()
}

// Active reports whether the guild has a connected session.
func (m *SessionManager) Active(guildID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	m.mu.Unlock()
	return ok && s.Connected()
}

// CloseAll disconnects every connected session. Used during shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*voice.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Leave()
	}
}
