package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wrenhold/quackbot/internal/observe"
	"github.com/wrenhold/quackbot/pkg/audio"
	"github.com/wrenhold/quackbot/pkg/provider/media"
	"github.com/wrenhold/quackbot/pkg/provider/stt"
	"github.com/wrenhold/quackbot/pkg/provider/tts"
)

// ErrSessionActive is returned by [Session.Join] when the session is already
// connected to a channel.
var ErrSessionActive = errors.New("voice: session already active")

const (
	defaultSuppressMargin = 500 * time.Millisecond
	defaultMaxUtterance   = 30 * time.Second
)

// SessionConfig carries the collaborators and tuning knobs of a [Session].
type SessionConfig struct {
	Log        *slog.Logger
	Metrics    *observe.Metrics
	Platform   audio.Platform
	STT        stt.Provider
	TTS        tts.Provider
	Replier    Replier
	Search     media.Provider
	Tracks     TrackSource
	Classifier *Classifier

	// SuppressMargin pads each reply's suppression window. Default 500 ms.
	SuppressMargin time.Duration

	// MaxUtterance caps continuous speech per speaker; a buffer that grows
	// past it is force-flushed without waiting for a silence edge. Default 30 s.
	MaxUtterance time.Duration
}

// Session drives the voice pipeline for one guild: it owns the transport
// join/leave lifecycle and wires speaking-start, tick, and disconnect events
// into the registry, accumulator, silence gate, and utterance pipeline.
//
// State machine: Disconnected → Connected (Join) → Disconnected (Leave or a
// transport-forced disconnect). All per-speaker state is scoped to the
// Connected period and discarded on the way out.
type Session struct {
	cfg SessionConfig
	log *slog.Logger

	registry *Registry
	acc      *Accumulator
	gate     *Gate

	// forceFlushSamples is MaxUtterance expressed in playback-format samples.
	forceFlushSamples int

	mu        sync.RWMutex
	connected bool
	conn      audio.Connection
	store     *Store
	sched     *Scheduler
	pipeline  *Pipeline
	ctx       context.Context
	cancel    context.CancelFunc

	wg sync.WaitGroup
}

// Compile-time interface assertion.
var _ audio.EventHandler = (*Session)(nil)

// NewSession creates a disconnected Session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.SuppressMargin <= 0 {
		cfg.SuppressMargin = defaultSuppressMargin
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = defaultMaxUtterance
	}
	registry := NewRegistry()
	return &Session{
		cfg:      cfg,
		log:      cfg.Log,
		registry: registry,
		acc:      NewAccumulator(registry),
		gate:     NewGate(),
		forceFlushSamples: int(cfg.MaxUtterance.Seconds() *
			float64(audio.PlaybackFormat.SampleRate*audio.PlaybackFormat.Channels)),
	}
}

// Join connects to channelID and starts consuming voice events. Returns
// [ErrSessionActive] if already connected.
func (s *Session) Join(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return ErrSessionActive
	}

	conn, err := s.cfg.Platform.Connect(ctx, channelID)
	if err != nil {
		return fmt.Errorf("voice: join channel %s: %w", channelID, err)
	}

	s.conn = conn
	s.store = NewStore()
	s.sched = NewScheduler(s.log, s.cfg.TTS, conn, s.cfg.SuppressMargin)
	s.pipeline = NewPipeline(PipelineConfig{
		Log:         s.log,
		Metrics:     s.cfg.Metrics,
		Accumulator: s.acc,
		Store:       s.store,
		STT:         s.cfg.STT,
		Classifier:  s.cfg.Classifier,
		Scheduler:   s.sched,
		Replier:     s.cfg.Replier,
		Search:      s.cfg.Search,
		Tracks:      s.cfg.Tracks,
		Conn:        conn,
	})
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.connected = true

	conn.SetHandler(s)
	s.cfg.Metrics.ActiveSessions.Add(ctx, 1)
	s.log.Info("voice session joined", "channel", channelID)
	return nil
}

// Leave tears the session down: stops playback, disconnects the transport,
// waits for in-flight flushes, and clears all per-speaker state and on-disk
// staging files. Idempotent.
func (s *Session) Leave() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	conn, store, cancel := s.conn, s.store, s.cancel
	s.conn, s.store, s.sched, s.pipeline = nil, nil, nil, nil
	s.mu.Unlock()

	conn.Stop()
	err := conn.Disconnect()

	s.wg.Wait()
	cancel()

	if cerr := store.Close(); cerr != nil {
		s.log.Warn("scratch cleanup failed", "error", cerr)
	}
	s.registry.Reset()
	s.acc.Reset()
	s.gate.Reset()

	s.cfg.Metrics.ActiveSessions.Add(context.Background(), -1)
	s.log.Info("voice session left")
	if err != nil {
		return fmt.Errorf("voice: disconnect: %w", err)
	}
	return nil
}

// Connected reports whether the session is currently joined to a channel.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// HandleVoiceEvent implements [audio.EventHandler].
func (s *Session) HandleVoiceEvent(ev audio.Event) {
	switch ev.Type {
	case audio.EventSpeakingStart:
		s.registry.Register(ev.SSRC, ev.UserID)
	case audio.EventTick:
		s.handleTick(ev)
	case audio.EventDisconnect:
		s.log.Info("transport disconnected, tearing down session")
		go func() {
			if err := s.Leave(); err != nil {
				s.log.Warn("teardown after disconnect failed", "error", err)
			}
		}()
	case audio.EventOther:
	}
}

// handleTick appends the tick's frames and evaluates the silence gate. A
// speech-to-silence edge flushes every non-empty buffer exactly once.
func (s *Session) handleTick(ev audio.Event) {
	for _, fr := range ev.Frames {
		n, err := s.acc.Append(fr.SSRC, fr.PCM)
		if err != nil {
			// Unregistered tag. Drop the frame, never fatal.
			continue
		}
		if n >= s.forceFlushSamples {
			s.spawnFlush(fr.SSRC)
		}
	}

	if !s.gate.Observe(ev.SpeakingCount) {
		return
	}
	for _, tag := range s.acc.Tags() {
		if !s.acc.IsEmpty(tag) {
			s.spawnFlush(tag)
		}
	}
}

// spawnFlush runs the pipeline for tag on its own goroutine, tracked so
// Leave can wait for in-flight work. A no-op once disconnected.
func (s *Session) spawnFlush(tag uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return
	}
	ctx, pipeline := s.ctx, s.pipeline
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		pipeline.Flush(ctx, tag)
	}()
}
