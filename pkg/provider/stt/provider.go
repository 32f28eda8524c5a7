// Package stt defines the Provider interface for speech-to-text backends.
//
// The pipeline submits one complete utterance per call: a WAV container
// holding 16-bit signed little-endian PCM. Implementations wrap a
// transcription service (a local whisper-server, the OpenAI API, …) and must
// be safe for concurrent use — multiple speakers may flush simultaneously.
package stt

import "context"

// Provider is the abstraction over any batch transcription backend.
type Provider interface {
	// Transcribe submits a WAV-encoded utterance and returns the recognised
	// text. An empty string with a nil error means the service recognised
	// nothing; callers treat that the same as a failure (the utterance is
	// abandoned silently).
	Transcribe(ctx context.Context, wav []byte) (string, error)
}
