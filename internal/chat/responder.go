package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/wrenhold/quackbot/pkg/provider/llm"
)

// FallbackReply is used when the LLM returns no usable text. The caller
// still gets a reply rather than a failure.
const FallbackReply = "idk"

// historyWindow is the number of recent messages rendered into the prompt.
const historyWindow = 10

// Responder generates reply text for conversational messages: it assembles
// the persona prompt with recent history, sends the new message through the
// LLM provider, and cleans up the result. Both sides of each exchange are
// recorded in the history.
type Responder struct {
	llm          llm.Provider
	history      *History
	systemPrompt string
}

// NewResponder creates a Responder using the given provider, shared history,
// and persona system prompt.
func NewResponder(provider llm.Provider, history *History, systemPrompt string) *Responder {
	return &Responder{
		llm:          provider,
		history:      history,
		systemPrompt: systemPrompt,
	}
}

// Reply generates a reply to text spoken or written by author. An LLM that
// answers with empty content yields [FallbackReply]; transport errors are
// returned to the caller.
func (r *Responder) Reply(ctx context.Context, author, text string) (string, error) {
	return r.replyWithPrompt(ctx, author, text, r.systemPrompt)
}

// ReplyWithSuffix behaves like [Responder.Reply] with extra instructions
// appended to the persona prompt. Used for special senders.
func (r *Responder) ReplyWithSuffix(ctx context.Context, author, text, suffix string) (string, error) {
	return r.replyWithPrompt(ctx, author, text, r.systemPrompt+" "+suffix)
}

func (r *Responder) replyWithPrompt(ctx context.Context, author, text, prompt string) (string, error) {
	sys := fmt.Sprintf("%s\nConversation history:\n%s", prompt, r.history.Render(historyWindow))
	userMsg := fmt.Sprintf("New message:\n%s: %s", author, text)

	out, err := r.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: sys,
		UserMessage:  userMsg,
	})
	if err != nil {
		return "", fmt.Errorf("chat: generate reply: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		out = FallbackReply
	}
	out = stripSpeakerLabel(out)

	r.history.Add(author, text)
	r.history.Add("bot", out)
	return out, nil
}

// stripSpeakerLabel removes a leading "name: " echo that models sometimes
// produce when the prompt shows history in that form. Only a single-word
// label before the first ": " is stripped; colons later in the reply are
// left alone.
func stripSpeakerLabel(s string) string {
	label, rest, found := strings.Cut(s, ": ")
	if !found || rest == "" {
		return s
	}
	if strings.ContainsAny(label, " \n\t") {
		return s
	}
	return rest
}
