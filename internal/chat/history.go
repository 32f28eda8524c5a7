// Package chat holds the conversational side of quackbot: a bounded
// in-memory history of recent messages and a responder that turns a new
// utterance into reply text through the LLM provider.
package chat

import (
	"strings"
	"sync"
	"time"
)

// Entry is a single remembered message.
type Entry struct {
	// Author is the speaker's display name, or "bot" for the bot's own
	// replies.
	Author string

	// Text is the message text.
	Text string

	// Timestamp records when the message was added.
	Timestamp time.Time
}

// History is a bounded buffer of recent conversation messages. It enforces
// both a maximum entry count and a maximum age; entries that exceed either
// limit are evicted on every [History.Add] call.
//
// All methods are safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
	maxAge  time.Duration
}

// NewHistory creates a History that retains at most maxSize entries and
// evicts entries older than maxAge.
func NewHistory(maxSize int, maxAge time.Duration) *History {
	return &History{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
		maxAge:  maxAge,
	}
}

// Add appends a message and evicts entries that exceed the configured
// maximum size or age.
func (h *History) Add(author, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Entry{Author: author, Text: text, Timestamp: time.Now()})
	h.evict()
}

// Render returns up to n of the most recent entries as "author: text" lines
// in chronological order, for inclusion in the system prompt.
func (h *History) Render(n int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := len(h.entries) - n
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, e := range h.entries[start:] {
		b.WriteString(e.Author)
		b.WriteString(": ")
		b.WriteString(e.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// LastTwo returns the two most recent entries, oldest first. ok is false
// when fewer than two entries exist. Used to detect a reply chain: the
// previous exchange being "author then bot" means the author's next message
// continues the conversation.
func (h *History) LastTwo() (prev, last Entry, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) < 2 {
		return Entry{}, Entry{}, false
	}
	return h.entries[len(h.entries)-2], h.entries[len(h.entries)-1], true
}

// Len returns the current entry count.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Clear discards all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
}

// evict removes entries that are too old or exceed maxSize. Must be called
// with h.mu held. Survivors are copied to a fresh backing array so evicted
// entries do not pin memory.
func (h *History) evict() {
	cutoff := time.Now().Add(-h.maxAge)

	start := 0
	for start < len(h.entries) && h.entries[start].Timestamp.Before(cutoff) {
		start++
	}
	keep := h.entries[start:]

	if len(keep) > h.maxSize {
		keep = keep[len(keep)-h.maxSize:]
	}

	if start > 0 || len(keep) < len(h.entries) {
		fresh := make([]Entry, len(keep), h.maxSize)
		copy(fresh, keep)
		h.entries = fresh
	}
}
