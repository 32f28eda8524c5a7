package voice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrenhold/quackbot/internal/observe"
	"github.com/wrenhold/quackbot/pkg/audio"
	"github.com/wrenhold/quackbot/pkg/provider/media"
	"github.com/wrenhold/quackbot/pkg/provider/stt"
)

// Replier generates a conversational reply to one utterance.
type Replier interface {
	Reply(ctx context.Context, author, text string) (string, error)
}

// TrackSource opens a resolved media reference as a playable track.
type TrackSource interface {
	Track(ref media.Track) audio.Track
}

// PipelineConfig carries the collaborators of a [Pipeline]. Search and
// Tracks are optional; without them play commands are rejected with a spoken
// acknowledgement.
type PipelineConfig struct {
	Log         *slog.Logger
	Metrics     *observe.Metrics
	Accumulator *Accumulator
	Store       *Store
	STT         stt.Provider
	Classifier  *Classifier
	Scheduler   *Scheduler
	Replier     Replier
	Search      media.Provider
	Tracks      TrackSource
	Conn        audio.Connection
}

// Pipeline processes one flushed utterance end to end: suppression check,
// drain, WAV persistence, transcription, classification, and dispatch.
//
// Every failure is contained to the utterance that caused it; nothing here
// propagates far enough to terminate the session. The speaker's next
// utterance is the implicit retry.
type Pipeline struct {
	log     *slog.Logger
	metrics *observe.Metrics
	acc     *Accumulator
	store   *Store
	stt     stt.Provider
	classer *Classifier
	sched   *Scheduler
	replier Replier
	search  media.Provider
	tracks  TrackSource
	conn    audio.Connection
}

// NewPipeline creates a Pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		log:     cfg.Log,
		metrics: cfg.Metrics,
		acc:     cfg.Accumulator,
		store:   cfg.Store,
		stt:     cfg.STT,
		classer: cfg.Classifier,
		sched:   cfg.Scheduler,
		replier: cfg.Replier,
		search:  cfg.Search,
		tracks:  cfg.Tracks,
		conn:    cfg.Conn,
	}
}

// Flush drains tag's buffer and drives it through the processing path. Safe
// to call concurrently for different tags.
func (p *Pipeline) Flush(ctx context.Context, tag uint32) {
	log := p.log.With("flush_id", uuid.NewString(), "tag", tag)

	// Anything captured while the bot's own reply was audible is feedback,
	// not speech. Discard without transcribing.
	if p.sched.SuppressionActive() {
		p.acc.Drain(tag)
		p.metrics.RecordFlush(ctx, observe.FlushSuppressed)
		log.Debug("flush discarded inside reply window")
		return
	}

	userID, samples := p.acc.Drain(tag)
	if len(samples) == 0 {
		p.metrics.RecordFlush(ctx, observe.FlushEmpty)
		return
	}
	log = log.With("participant", userID, "samples", len(samples))

	wav := audio.EncodeWAV(samples, audio.PlaybackFormat)
	path, err := p.store.Save(userID, wav)
	if err != nil {
		log.Warn("persist utterance failed", "error", err)
		p.metrics.RecordFlush(ctx, observe.FlushFailed)
		return
	}
	log.Debug("utterance persisted", "path", path)

	start := time.Now()
	text, err := p.stt.Transcribe(ctx, wav)
	p.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		log.Warn("transcription failed", "error", err)
		p.metrics.RecordProviderError(ctx, "stt", "transcribe")
		p.metrics.RecordFlush(ctx, observe.FlushFailed)
		return
	}
	if text == "" {
		// Nothing recognized. Treated as noise.
		p.metrics.RecordFlush(ctx, observe.FlushEmpty)
		return
	}

	cmd := p.classer.Classify(text)
	p.metrics.RecordCommand(ctx, cmd.Kind.String())
	log.Info("utterance classified", "text", text, "command", cmd.Kind.String())

	switch cmd.Kind {
	case KindPlay:
		p.handlePlay(ctx, log, cmd.Text)
	case KindStop:
		p.handleStop(ctx, log)
	case KindConverse:
		p.handleConverse(ctx, log, userID, cmd.Text)
	case KindIgnore:
	}
	p.metrics.RecordFlush(ctx, observe.FlushProcessed)
}

// handlePlay resolves the query and enqueues the track after a short spoken
// acknowledgement.
func (p *Pipeline) handlePlay(ctx context.Context, log *slog.Logger, query string) {
	if p.search == nil || p.tracks == nil {
		p.speak(ctx, log, "I can't play music right now.")
		return
	}

	start := time.Now()
	ref, err := p.search.Resolve(ctx, query)
	p.metrics.SearchDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, media.ErrNoResult) {
			log.Info("no media result", "query", query)
		} else {
			log.Warn("media search failed", "query", query, "error", err)
			p.metrics.RecordProviderError(ctx, "media", "search")
		}
		p.speak(ctx, log, "I couldn't find that.")
		return
	}

	p.speak(ctx, log, "Playing "+ref.Title)
	if _, err := p.conn.Enqueue(p.tracks.Track(ref)); err != nil {
		log.Warn("enqueue media track failed", "title", ref.Title, "error", err)
	}
}

// handleStop halts playback, clears the queue, and acknowledges.
func (p *Pipeline) handleStop(ctx context.Context, log *slog.Logger) {
	p.conn.Stop()
	p.speak(ctx, log, "Queue cleared.")
}

// handleConverse generates a reply and speaks it.
func (p *Pipeline) handleConverse(ctx context.Context, log *slog.Logger, userID, text string) {
	start := time.Now()
	reply, err := p.replier.Reply(ctx, userID, text)
	p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		log.Warn("reply generation failed", "error", err)
		p.metrics.RecordProviderError(ctx, "llm", "complete")
		return
	}
	p.speak(ctx, log, reply)
}

// speak synthesizes and plays text, containing synthesis failures to this
// utterance.
func (p *Pipeline) speak(ctx context.Context, log *slog.Logger, text string) {
	start := time.Now()
	err := p.sched.Speak(ctx, text)
	p.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		log.Warn("speak failed", "error", err)
		p.metrics.RecordProviderError(ctx, "tts", "synthesize")
	}
}
