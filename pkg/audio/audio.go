// Package audio defines the types and interfaces for voice-channel
// connectivity and audio stream management within quackbot.
//
// The two primary abstractions are:
//
//   - [Platform] — joins a voice channel and returns a [Connection].
//   - [Connection] — an active session on that channel, delivering decoded
//     per-speaker audio as fixed-interval tick events and accepting playback
//     tracks through an ordered queue.
//
// Implementations are provided by platform-specific adapter packages (e.g.
// audio/discord). The interfaces are intentionally narrow to keep the voice
// pipeline decoupled from transport details.
package audio

import (
	"context"
	"io"
	"time"
)

// Format describes the sample rate and channel count of a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// PlaybackFormat is the fixed format of the voice channel itself:
// 48 kHz stereo, 16-bit signed little-endian PCM (Discord Opus).
var PlaybackFormat = Format{SampleRate: 48000, Channels: 2}

// BytesPerSecond returns the byte rate of s16le PCM audio in this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Duration returns the play time of a sample-interleaved PCM buffer of n
// int16 samples (all channels counted) in this format.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(f.SampleRate*f.Channels)
}

// SamplesToBytes converts int16 PCM samples to little-endian bytes.
func SamplesToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

// BytesToSamples converts little-endian s16le bytes to int16 PCM samples.
// A trailing odd byte is ignored.
func BytesToSamples(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}

// Track is a playable audio source. Open returns a stream of s16le PCM in
// [PlaybackFormat]; the connection's play loop reads it to exhaustion and
// closes it.
type Track interface {
	// Name is a human-readable label used for logging.
	Name() string

	// Open starts the track and returns its PCM stream. The supplied ctx
	// covers the lifetime of playback; implementations should stop producing
	// data when it is cancelled.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// TrackHandle represents a track that has been accepted onto a connection's
// playback queue.
type TrackHandle interface {
	// Done is closed when the track has finished playing or was stopped.
	Done() <-chan struct{}

	// Stop skips the track: playback halts if it is current, or it is
	// removed from the queue if still pending. Safe to call more than once.
	Stop()
}

// Connection represents an active session on a voice channel.
//
// A Connection is obtained from [Platform.Connect] and remains valid until
// [Connection.Disconnect] is called or the transport forces a disconnect.
// Implementations must be safe for concurrent use.
type Connection interface {
	// SetHandler registers h to receive voice events (speaking-start, tick,
	// disconnect). Only one handler may be registered; subsequent calls
	// replace the previous one. Events are delivered on internal goroutines.
	SetHandler(h EventHandler)

	// Enqueue appends t to the playback queue and returns a handle for it.
	// Playback starts immediately if the queue was idle.
	Enqueue(t Track) (TrackHandle, error)

	// Stop halts the currently playing track and clears the queue.
	Stop()

	// Disconnect tears down the connection and stops all background work.
	// Safe to call more than once; subsequent calls return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by channelID and returns an
	// active [Connection]. ctx governs the connection-setup phase only.
	Connect(ctx context.Context, channelID string) (Connection, error)
}
