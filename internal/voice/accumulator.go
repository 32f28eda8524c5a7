package voice

import (
	"sync"
	"time"
)

// slot is one speaker tag's mutable audio buffer. The per-slot mutex keeps
// operations on the same tag strictly ordered while leaving other tags free
// to proceed concurrently.
type slot struct {
	mu      sync.Mutex
	userID  string
	samples []int16
	last    time.Time
}

// Accumulator buffers raw PCM samples per speaker tag between silence edges.
// Slots are created lazily on the first frame for a tag and retained across
// drains so later appends never need to reinsert a key.
type Accumulator struct {
	registry *Registry

	mu    sync.RWMutex
	slots map[uint32]*slot
}

// NewAccumulator creates an Accumulator that resolves participants through
// registry.
func NewAccumulator(registry *Registry) *Accumulator {
	return &Accumulator{
		registry: registry,
		slots:    make(map[uint32]*slot),
	}
}

// slotFor returns the slot for tag, creating it if absent. Creation requires
// the tag to be resolvable; an unresolvable tag yields [ErrUnknownSpeaker]
// and the frame is dropped by the caller.
func (a *Accumulator) slotFor(tag uint32) (*slot, error) {
	a.mu.RLock()
	s, ok := a.slots[tag]
	a.mu.RUnlock()
	if ok {
		return s, nil
	}

	userID, err := a.registry.Resolve(tag)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.slots[tag]; ok {
		return s, nil
	}
	s = &slot{userID: userID}
	a.slots[tag] = s
	return s, nil
}

// Append adds frame to tag's buffer and returns the buffered sample count
// after the append. A tag that cannot be resolved returns
// [ErrUnknownSpeaker] and the frame is discarded.
func (a *Accumulator) Append(tag uint32, frame []int16) (int, error) {
	s, err := a.slotFor(tag)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, frame...)
	s.last = time.Now()
	return len(s.samples), nil
}

// Drain returns the participant and all buffered samples for tag, clearing
// the buffer in place. The slot itself is preserved. A tag with no slot
// returns an empty result.
func (a *Accumulator) Drain(tag uint32) (userID string, samples []int16) {
	a.mu.RLock()
	s, ok := a.slots[tag]
	a.mu.RUnlock()
	if !ok {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	samples = make([]int16, len(s.samples))
	copy(samples, s.samples)
	s.samples = s.samples[:0]
	return s.userID, samples
}

// IsEmpty reports whether tag has no buffered samples. Tags without a slot
// are empty.
func (a *Accumulator) IsEmpty(tag uint32) bool {
	a.mu.RLock()
	s, ok := a.slots[tag]
	a.mu.RUnlock()
	if !ok {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples) == 0
}

// Tags returns the tags that currently have a slot, in no particular order.
func (a *Accumulator) Tags() []uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	tags := make([]uint32, 0, len(a.slots))
	for tag := range a.slots {
		tags = append(tags, tag)
	}
	return tags
}

// Reset discards all slots and their buffers. Called on session teardown.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots = make(map[uint32]*slot)
}
