package audio

import (
	"bytes"
	"context"
	"io"
	"time"
)

// Compile-time interface assertion.
var _ Track = (*PCMTrack)(nil)

// PCMTrack is an in-memory [Track] holding pre-rendered s16le PCM in
// [PlaybackFormat]. Used for synthesized speech replies and short
// acknowledgements.
type PCMTrack struct {
	name string
	pcm  []byte
}

// NewPCMTrack creates a PCMTrack from interleaved int16 samples in
// [PlaybackFormat].
func NewPCMTrack(name string, samples []int16) *PCMTrack {
	return &PCMTrack{name: name, pcm: SamplesToBytes(samples)}
}

// Name implements [Track].
func (t *PCMTrack) Name() string { return t.name }

// Open implements [Track]. The returned stream is an in-memory reader; ctx is
// not needed after Open returns.
func (t *PCMTrack) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(t.pcm)), nil
}

// Duration returns the play time of the track in [PlaybackFormat].
func (t *PCMTrack) Duration() time.Duration {
	return PlaybackFormat.Duration(len(t.pcm) / 2)
}
