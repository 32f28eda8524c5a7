// Package tts defines the Provider interface for text-to-speech backends.
//
// Replies are short, so synthesis is batch-shaped: one call returns the full
// rendered audio. Providers return raw PCM with its format attached; the
// scheduler converts it to the voice channel's playback format and derives
// the suppression-window duration from the byte length.
package tts

import (
	"context"
	"time"
)

// Audio is one synthesized utterance: raw interleaved s16le PCM plus its
// format.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration returns the play time of the audio, computed from the byte
// length at the PCM byte rate.
func (a Audio) Duration() time.Duration {
	bps := a.SampleRate * a.Channels * 2
	if bps <= 0 {
		return 0
	}
	return time.Duration(len(a.PCM)) * time.Second / time.Duration(bps)
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize renders text to speech. A non-nil error or empty PCM means
	// the reply is abandoned — no audio is played for it.
	Synthesize(ctx context.Context, text string) (Audio, error)
}
