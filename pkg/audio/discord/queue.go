package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/wrenhold/quackbot/pkg/audio"
)

// opusFrameBytes is the exact PCM input size for one Opus frame:
// 960 samples/channel × 2 channels × 2 bytes/sample = 3840 bytes.
const opusFrameBytes = opusFrameSize * opusChannels * 2

// Compile-time interface assertion.
var _ audio.TrackHandle = (*queuedTrack)(nil)

// queuedTrack is a track accepted onto the playback queue. It implements
// [audio.TrackHandle].
type queuedTrack struct {
	track audio.Track

	stop     chan struct{}
	stopOnce sync.Once

	finished chan struct{}
	doneOnce sync.Once
}

func (t *queuedTrack) Done() <-chan struct{} { return t.finished }

func (t *queuedTrack) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *queuedTrack) markDone() {
	t.doneOnce.Do(func() { close(t.finished) })
}

// playQueue serialises track playback on a voice connection: tracks play in
// enqueue order, one at a time. PCM is read from each track in Opus
// frame-sized chunks, encoded, and handed to the send function.
//
// The encode step is injectable so queue behaviour can be tested without a
// cgo Opus encoder.
type playQueue struct {
	mu    sync.Mutex
	items []*queuedTrack

	wake chan struct{}
	done <-chan struct{}

	send     func([]byte) bool
	speaking func(bool)

	// newEncoder builds the frame encoder used by run. Defaults to the gopus
	// encoder; overridden in tests.
	newEncoder func() (frameEncoder, error)
}

// frameEncoder encodes one 3840-byte PCM frame (as int16 samples) to an
// opaque packet.
type frameEncoder interface {
	encode(pcm []int16) ([]byte, error)
}

func newPlayQueue(done <-chan struct{}, send func([]byte) bool, speaking func(bool)) *playQueue {
	return &playQueue{
		wake:     make(chan struct{}, 1),
		done:     done,
		send:     send,
		speaking: speaking,
		newEncoder: func() (frameEncoder, error) {
			return newOpusEncoder()
		},
	}
}

// enqueue appends t to the queue and wakes the play loop.
func (q *playQueue) enqueue(t audio.Track) (audio.TrackHandle, error) {
	select {
	case <-q.done:
		return nil, errors.New("discord: connection is closed")
	default:
	}

	qt := &queuedTrack{
		track:    t,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	q.mu.Lock()
	q.items = append(q.items, qt)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return qt, nil
}

// stopAll halts the current track and clears all pending ones.
func (q *playQueue) stopAll() {
	q.mu.Lock()
	pending := q.items
	q.items = nil
	q.mu.Unlock()

	for _, t := range pending {
		t.Stop()
		t.markDone()
	}
}

// pop removes and returns the head of the queue, or nil when empty.
func (q *playQueue) pop() *queuedTrack {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t
}

// run is the playback loop. It exits when the connection's done channel
// closes.
func (q *playQueue) run() {
	enc, err := q.newEncoder()
	if err != nil {
		slog.Error("discord: create playback encoder", "error", err)
		return
	}

	for {
		t := q.pop()
		if t == nil {
			select {
			case <-q.done:
				return
			case <-q.wake:
				continue
			}
		}

		select {
		case <-t.stop:
			t.markDone()
			continue
		default:
		}

		q.speaking(true)
		q.playTrack(t, enc)
		q.speaking(false)
		t.markDone()
	}
}

// playTrack streams one track: open its PCM source, read Opus frame-sized
// chunks, encode, send. A short final chunk is zero-padded to a full frame.
func (q *playQueue) playTrack(t *queuedTrack, enc frameEncoder) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-t.stop:
			cancel()
		case <-q.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	rc, err := t.track.Open(ctx)
	if err != nil {
		slog.Warn("discord: open track", "track", t.track.Name(), "error", err)
		return
	}
	defer rc.Close()

	slog.Info("discord: playing track", "track", t.track.Name())

	buf := make([]byte, opusFrameBytes)
	for {
		select {
		case <-t.stop:
			return
		case <-q.done:
			return
		default:
		}

		n, rerr := io.ReadFull(rc, buf)
		if n == 0 {
			return
		}
		// Zero-pad a short final frame so the encoder always sees 20 ms.
		for i := n; i < opusFrameBytes; i++ {
			buf[i] = 0
		}

		pkt, eErr := enc.encode(audio.BytesToSamples(buf))
		if eErr != nil {
			slog.Warn("discord: opus encode error", "track", t.track.Name(), "error", eErr)
			return
		}
		if !q.send(pkt) {
			return
		}

		if rerr != nil {
			// io.EOF / io.ErrUnexpectedEOF end the track; anything else is
			// a stream failure worth logging.
			if !errors.Is(rerr, io.EOF) && !errors.Is(rerr, io.ErrUnexpectedEOF) {
				slog.Warn("discord: track stream error", "track", t.track.Name(), "error", rerr)
			}
			return
		}
	}
}
