// Package llm defines the Provider interface for reply-text generation
// backends.
//
// The conversational pipeline issues one completion per utterance: a system
// prompt (persona plus recent history) and a single user message. Streaming
// is deliberately not part of this interface — replies are short and are
// synthesized to speech as a whole.
package llm

import "context"

// Message is a single chat message in a completion request.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest describes one reply-text generation call.
type CompletionRequest struct {
	// SystemPrompt is sent once as the system message.
	SystemPrompt string

	// UserMessage is the new utterance, sent once as the user message.
	UserMessage string
}

// Provider is the abstraction over any reply-text backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Complete returns the generated reply text. An empty string with a nil
	// error means the service produced no usable content; callers substitute
	// their fallback phrase.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
