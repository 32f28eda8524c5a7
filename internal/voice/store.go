package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists flushed utterances as WAV files under a scratch directory
// for transcription upload. The directory is created on first use and
// removed wholesale on Close, so a session leaves no staging artifacts
// behind.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a Store. The scratch directory is not created until the
// first Save call.
func NewStore() *Store {
	return &Store{}
}

// Save writes wav to `{participant}_{unix}.wav` in the scratch directory and
// returns the file path.
func (s *Store) Save(userID string, wav []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "quackbot-voice-")
		if err != nil {
			return "", fmt.Errorf("voice: create scratch dir: %w", err)
		}
		s.dir = dir
	}

	name := fmt.Sprintf("%s_%d.wav", userID, time.Now().Unix())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		return "", fmt.Errorf("voice: write %s: %w", name, err)
	}
	return path, nil
}

// Close removes the scratch directory and everything in it. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return nil
	}
	dir := s.dir
	s.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("voice: remove scratch dir: %w", err)
	}
	return nil
}
