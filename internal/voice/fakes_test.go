package voice

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/wrenhold/quackbot/internal/observe"
	"github.com/wrenhold/quackbot/pkg/audio"
	"github.com/wrenhold/quackbot/pkg/provider/media"
	"github.com/wrenhold/quackbot/pkg/provider/tts"
)

// testMetrics builds an isolated Metrics instance so tests never pollute the
// global meter provider.
func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeSTT records every Transcribe call and returns a fixed result.
type fakeSTT struct {
	mu    sync.Mutex
	calls [][]byte
	text  string
	err   error
}

func (f *fakeSTT) Transcribe(_ context.Context, wav []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, wav)
	return f.text, f.err
}

func (f *fakeSTT) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeTTS returns a fixed mono 24 kHz payload.
type fakeTTS struct {
	mu    sync.Mutex
	calls []string
	pcm   []byte
	err   error
}

func (f *fakeTTS) Synthesize(_ context.Context, text string) (tts.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return tts.Audio{}, f.err
	}
	pcm := f.pcm
	if pcm == nil {
		pcm = make([]byte, 4800) // 100 ms at 24 kHz mono
	}
	return tts.Audio{PCM: pcm, SampleRate: 24000, Channels: 1}, nil
}

func (f *fakeTTS) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeReplier returns a fixed reply string.
type fakeReplier struct {
	mu    sync.Mutex
	calls []string
	reply string
	err   error
}

func (f *fakeReplier) Reply(_ context.Context, _, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	return f.reply, f.err
}

func (f *fakeReplier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeHandle is a no-op TrackHandle.
type fakeHandle struct{ done chan struct{} }

func newFakeHandle() *fakeHandle            { return &fakeHandle{done: make(chan struct{})} }
func (h *fakeHandle) Done() <-chan struct{} { return h.done }
func (h *fakeHandle) Stop()                 {}

// fakeConn records enqueued tracks and stop calls.
type fakeConn struct {
	mu           sync.Mutex
	handler      audio.EventHandler
	enqueued     []audio.Track
	stops        int
	disconnects  atomic.Int32
	enqueueErr   error
	disconnected bool
}

func (c *fakeConn) SetHandler(h audio.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *fakeConn) Enqueue(t audio.Track) (audio.TrackHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enqueueErr != nil {
		return nil, c.enqueueErr
	}
	c.enqueued = append(c.enqueued, t)
	return newFakeHandle(), nil
}

func (c *fakeConn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *fakeConn) Disconnect() error {
	c.disconnects.Add(1)
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) enqueueCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enqueued)
}

func (c *fakeConn) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

// fakePlatform hands out a fixed connection.
type fakePlatform struct {
	conn       *fakeConn
	connectErr error
	channels   []string
}

func (p *fakePlatform) Connect(_ context.Context, channelID string) (audio.Connection, error) {
	if p.connectErr != nil {
		return nil, p.connectErr
	}
	p.channels = append(p.channels, channelID)
	return p.conn, nil
}

// fakeSearch resolves every query to a fixed track.
type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	track   media.Track
	err     error
}

func (f *fakeSearch) Resolve(_ context.Context, query string) (media.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return media.Track{}, f.err
	}
	return f.track, nil
}

// fakeTracks wraps every resolved reference in an in-memory track.
type fakeTracks struct{}

func (fakeTracks) Track(ref media.Track) audio.Track {
	return audio.NewPCMTrack(ref.Title, make([]int16, 960))
}
