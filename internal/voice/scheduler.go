package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wrenhold/quackbot/pkg/audio"
	"github.com/wrenhold/quackbot/pkg/provider/tts"
)

// ErrSynthesisFailed is returned by [Scheduler.Speak] when the synthesis
// collaborator errors or returns non-playable data. The reply is abandoned;
// nothing is played.
var ErrSynthesisFailed = errors.New("voice: synthesis failed")

// Scheduler produces spoken replies and arms the suppression window that
// stops the pipeline from transcribing the bot's own playback. At most one
// window is live per session; the next flush attempt reads it and, once
// expired, clears it.
type Scheduler struct {
	log    *slog.Logger
	tts    tts.Provider
	conn   audio.Connection
	margin time.Duration

	// now is replaceable in tests.
	now func() time.Time

	mu       sync.Mutex
	winStart time.Time
	winDur   time.Duration
}

// NewScheduler creates a Scheduler that synthesizes through tp and plays on
// conn. margin pads each suppression window against queueing and encode
// latency so the window never undershoots actual playback.
func NewScheduler(log *slog.Logger, tp tts.Provider, conn audio.Connection, margin time.Duration) *Scheduler {
	return &Scheduler{
		log:    log,
		tts:    tp,
		conn:   conn,
		margin: margin,
		now:    time.Now,
	}
}

// Speak synthesizes text, converts it to the playback format, enqueues it,
// and arms the suppression window for the track's duration plus the margin.
func (s *Scheduler) Speak(ctx context.Context, text string) error {
	a, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	if len(a.PCM) == 0 {
		return fmt.Errorf("%w: empty audio payload", ErrSynthesisFailed)
	}

	conv := audio.FormatConverter{Target: audio.PlaybackFormat}
	samples := conv.Convert(audio.BytesToSamples(a.PCM), audio.Format{
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
	})
	track := audio.NewPCMTrack("reply", samples)

	if _, err := s.Play(track, track.Duration()); err != nil {
		return err
	}
	s.log.Debug("reply scheduled",
		"text_len", len(text),
		"duration", track.Duration(),
	)
	return nil
}

// Play enqueues track and arms the suppression window for estimate plus the
// configured margin.
func (s *Scheduler) Play(track audio.Track, estimate time.Duration) (audio.TrackHandle, error) {
	h, err := s.conn.Enqueue(track)
	if err != nil {
		return nil, fmt.Errorf("voice: enqueue reply: %w", err)
	}
	s.mu.Lock()
	s.winStart = s.now()
	s.winDur = estimate + s.margin
	s.mu.Unlock()
	return h, nil
}

// SuppressionActive reports whether a live, unexpired suppression window
// exists. An expired window is cleared as a side effect.
func (s *Scheduler) SuppressionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winStart.IsZero() {
		return false
	}
	if s.now().Sub(s.winStart) < s.winDur {
		return true
	}
	s.winStart = time.Time{}
	s.winDur = 0
	return false
}

// Reset clears any live suppression window. Called on session teardown.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winStart = time.Time{}
	s.winDur = 0
}
