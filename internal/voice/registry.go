// Package voice implements the real-time voice-channel audio pipeline: it
// consumes decoded per-speaker audio ticks from a transport connection,
// accumulates samples per speaker, detects end-of-utterance on the
// speech-to-silence edge, and drives flushed utterances through
// transcription, command classification, and spoken replies while
// suppressing re-capture of the bot's own playback.
package voice

import (
	"errors"
	"sync"
)

// ErrUnknownSpeaker is returned by [Registry.Resolve] for a tag that was
// never announced. Callers drop the frame and continue; it is never fatal.
var ErrUnknownSpeaker = errors.New("voice: unknown speaker tag")

// Registry maps transport-local speaker tags (SSRCs) to stable participant
// user IDs. The transport may reassign a tag mid-session; the latest
// announcement always wins. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byTag map[uint32]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[uint32]string)}
}

// Register records that tag currently belongs to userID. Idempotent;
// re-registering a tag overwrites the previous mapping.
func (r *Registry) Register(tag uint32, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTag[tag] = userID
}

// Resolve returns the participant registered for tag, or [ErrUnknownSpeaker]
// if the tag was never announced.
func (r *Registry) Resolve(tag uint32) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byTag[tag]
	if !ok {
		return "", ErrUnknownSpeaker
	}
	return userID, nil
}

// Reset discards all mappings. Called on session teardown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTag = make(map[uint32]string)
}
