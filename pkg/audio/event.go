package audio

// EventType classifies voice events emitted by a [Connection]. The set is
// closed: handlers switch over it rather than type-asserting.
type EventType int

const (
	// EventSpeakingStart is emitted when the transport announces that a
	// speaker tag (SSRC) now belongs to a participant. The same tag may be
	// re-announced for a different participant later; the latest mapping wins.
	EventSpeakingStart EventType = iota

	// EventTick is emitted once per tick interval and carries the decoded
	// PCM frames received from currently-speaking participants during that
	// interval. Ticks are emitted even when nobody is speaking (with an
	// empty frame list) so consumers can observe speech→silence edges.
	EventTick

	// EventDisconnect is emitted when the transport connection is torn down
	// by the remote side.
	EventDisconnect

	// EventOther covers transport notifications the pipeline does not act on.
	EventOther
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventSpeakingStart:
		return "SPEAKING_START"
	case EventTick:
		return "TICK"
	case EventDisconnect:
		return "DISCONNECT"
	default:
		return "OTHER"
	}
}

// TickFrame is one speaker's decoded audio for a single tick.
type TickFrame struct {
	// SSRC is the transport-local speaker tag the frame arrived under.
	SSRC uint32

	// PCM holds interleaved s16 samples in [PlaybackFormat].
	PCM []int16
}

// Event is a single voice notification from the transport.
type Event struct {
	Type EventType

	// SSRC and UserID are set for [EventSpeakingStart].
	SSRC   uint32
	UserID string

	// Frames and SpeakingCount are set for [EventTick]. SpeakingCount is the
	// number of distinct speakers the tick carries audio for.
	Frames        []TickFrame
	SpeakingCount int
}

// EventHandler receives voice events from a [Connection]. Implementations
// must be safe for concurrent use; ticks and notifications may be delivered
// from different goroutines.
type EventHandler interface {
	HandleVoiceEvent(ev Event)
}
