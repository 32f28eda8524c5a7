package voice

import (
	"errors"
	"sync"
	"testing"
)

func newTestAccumulator(t *testing.T) (*Accumulator, *Registry) {
	t.Helper()
	r := NewRegistry()
	return NewAccumulator(r), r
}

func TestAccumulator_AppendUnknownTag_DropsFrame(t *testing.T) {
	a, _ := newTestAccumulator(t)

	_, err := a.Append(5, []int16{1, 2, 3})
	if !errors.Is(err, ErrUnknownSpeaker) {
		t.Fatalf("Append error = %v; want ErrUnknownSpeaker", err)
	}
	if !a.IsEmpty(5) {
		t.Error("buffer should stay empty after a dropped frame")
	}
}

func TestAccumulator_DrainReturnsConcatenationInOrder(t *testing.T) {
	a, r := newTestAccumulator(t)
	r.Register(5, "42")

	frames := [][]int16{{1, 2}, {3}, {4, 5, 6}}
	for _, fr := range frames {
		if _, err := a.Append(5, fr); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	userID, got := a.Drain(5)
	if userID != "42" {
		t.Errorf("Drain userID = %q; want %q", userID, "42")
	}
	want := []int16{1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("Drain returned %d samples; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d; want %d", i, got[i], want[i])
		}
	}
	if !a.IsEmpty(5) {
		t.Error("IsEmpty should be true after Drain")
	}
}

func TestAccumulator_DrainPreservesSlot(t *testing.T) {
	a, r := newTestAccumulator(t)
	r.Register(5, "42")

	_, _ = a.Append(5, []int16{1})
	a.Drain(5)

	// The slot survives the drain; appending again works even if the
	// registry mapping is gone by now.
	r.Reset()
	if _, err := a.Append(5, []int16{2}); err != nil {
		t.Fatalf("Append after Drain: %v", err)
	}
	_, got := a.Drain(5)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Drain = %v; want [2]", got)
	}
}

func TestAccumulator_AppendReturnsBufferedCount(t *testing.T) {
	a, r := newTestAccumulator(t)
	r.Register(5, "42")

	n, _ := a.Append(5, make([]int16, 100))
	if n != 100 {
		t.Errorf("first Append count = %d; want 100", n)
	}
	n, _ = a.Append(5, make([]int16, 50))
	if n != 150 {
		t.Errorf("second Append count = %d; want 150", n)
	}
}

func TestAccumulator_TagsAndReset(t *testing.T) {
	a, r := newTestAccumulator(t)
	r.Register(1, "a")
	r.Register(2, "b")
	_, _ = a.Append(1, []int16{1})
	_, _ = a.Append(2, []int16{2})

	if got := len(a.Tags()); got != 2 {
		t.Errorf("Tags len = %d; want 2", got)
	}

	a.Reset()
	if got := len(a.Tags()); got != 0 {
		t.Errorf("Tags len after Reset = %d; want 0", got)
	}
}

func TestAccumulator_ConcurrentAppendsDoNotRace(t *testing.T) {
	a, r := newTestAccumulator(t)
	for tag := uint32(0); tag < 4; tag++ {
		r.Register(tag, "u")
	}

	var wg sync.WaitGroup
	for tag := uint32(0); tag < 4; tag++ {
		wg.Add(1)
		go func(tag uint32) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, _ = a.Append(tag, []int16{int16(i)})
			}
		}(tag)
	}
	wg.Wait()

	for tag := uint32(0); tag < 4; tag++ {
		_, samples := a.Drain(tag)
		if len(samples) != 100 {
			t.Errorf("tag %d drained %d samples; want 100", tag, len(samples))
		}
	}
}
