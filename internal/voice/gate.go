package voice

import "sync/atomic"

// Gate is the two-state silence-detection machine. It starts Quiescent and
// transitions on the speaking count reported with each tick:
//
//   - count > 0 moves to (or stays in) Active.
//   - count == 0 while Active moves to Quiescent and signals a flush.
//   - count == 0 while Quiescent is a no-op.
//
// Flushing on the edge, not on sustained silence, means a long-silent
// channel never re-triggers processing of already-drained buffers.
type Gate struct {
	// silent is true in the Quiescent state.
	silent atomic.Bool
}

// NewGate creates a Gate in the Quiescent state.
func NewGate() *Gate {
	g := &Gate{}
	g.silent.Store(true)
	return g
}

// Observe feeds one tick's speaking count into the machine and reports
// whether this tick is a speech-to-silence edge, i.e. whether buffered
// speakers should be flushed now. Safe for concurrent use.
func (g *Gate) Observe(speakingCount int) (flush bool) {
	if speakingCount > 0 {
		g.silent.Store(false)
		return false
	}
	return g.silent.CompareAndSwap(false, true)
}

// Reset returns the Gate to the Quiescent state.
func (g *Gate) Reset() {
	g.silent.Store(true)
}
