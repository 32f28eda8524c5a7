package voice

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// CommandKind enumerates the closed set of commands an utterance can
// classify into.
type CommandKind int

const (
	// KindIgnore means the utterance is not addressed to the bot.
	KindIgnore CommandKind = iota

	// KindPlay requests media playback; Command.Text carries the search query.
	KindPlay

	// KindStop halts playback and clears the queue.
	KindStop

	// KindConverse is a conversational utterance; Command.Text carries the
	// transcript with the wake word removed.
	KindConverse
)

// String returns the human-readable name of the command kind.
func (k CommandKind) String() string {
	switch k {
	case KindPlay:
		return "play"
	case KindStop:
		return "stop"
	case KindConverse:
		return "converse"
	default:
		return "ignore"
	}
}

// Command is the classification result for one transcript.
type Command struct {
	Kind CommandKind
	Text string
}

const defaultPhoneticThreshold = 0.70

// ClassifierOption is a functional option for configuring a [Classifier].
type ClassifierOption func(*Classifier)

// WithTriggers replaces the non-wake trigger set. Single-word triggers match
// whole tokens; multi-word triggers match as substrings.
func WithTriggers(triggers []string) ClassifierOption {
	return func(c *Classifier) {
		c.triggers = triggers
	}
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically similar token to count as the wake word. Default: 0.70.
func WithPhoneticThreshold(threshold float64) ClassifierOption {
	return func(c *Classifier) {
		c.phoneticThreshold = threshold
	}
}

// Classifier turns a normalized transcript into a [Command].
//
// Classification is total and priority-ordered: a transcript beginning with
// "play" is a play command; exactly "stop" is a stop command; a transcript
// containing the wake word (including phonetically near mis-hearings) or
// another configured trigger is conversational; everything else is ignored.
//
// Read-only after construction; safe for concurrent use.
type Classifier struct {
	wake              string
	wakeCodes         map[string]struct{}
	triggers          []string
	phoneticThreshold float64
}

// NewClassifier creates a Classifier for the given wake word. The default
// trigger set alongside the wake word is {"and", "i don't know"}.
func NewClassifier(wake string, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		wake:              strings.ToLower(strings.TrimSpace(wake)),
		triggers:          []string{"and", "i don't know"},
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	c.wakeCodes = metaphoneCodes(c.wake)
	return c
}

// Classify maps one raw transcript to a Command. Matching is done on a
// lower-cased copy with commas, periods, and exclamation marks stripped; the
// text carried by the resulting Command keeps the original casing.
func (c *Classifier) Classify(raw string) Command {
	stripped := strings.TrimSpace(stripPunctuation(raw))
	lower := strings.ToLower(stripped)
	if lower == "" {
		return Command{Kind: KindIgnore}
	}

	if rest, ok := strings.CutPrefix(lower, "play"); ok {
		return Command{Kind: KindPlay, Text: strings.TrimSpace(rest)}
	}
	if lower == "stop" {
		return Command{Kind: KindStop}
	}
	if c.triggered(lower) {
		return Command{Kind: KindConverse, Text: c.removeWake(stripped)}
	}
	return Command{Kind: KindIgnore}
}

// triggered reports whether the lower-cased transcript addresses the bot.
func (c *Classifier) triggered(lower string) bool {
	tokens := strings.Fields(lower)
	for _, tok := range tokens {
		if c.isWakeToken(tok) {
			return true
		}
	}
	for _, trig := range c.triggers {
		if strings.Contains(trig, " ") {
			if strings.Contains(lower, trig) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tok == trig {
				return true
			}
		}
	}
	return false
}

// isWakeToken reports whether tok is the wake word or a phonetically near
// variant of it ("atom" for "adam"). A variant must share a Double Metaphone
// code with the wake word and score at least the phonetic threshold on
// Jaro-Winkler similarity.
func (c *Classifier) isWakeToken(tok string) bool {
	if c.wake == "" {
		return false
	}
	if tok == c.wake {
		return true
	}
	if !codesOverlap(metaphoneCodes(tok), c.wakeCodes) {
		return false
	}
	return matchr.JaroWinkler(tok, c.wake, false) >= c.phoneticThreshold
}

// removeWake strips wake-word tokens (including matched variants) from the
// original-case text and collapses the remaining whitespace.
func (c *Classifier) removeWake(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if c.isWakeToken(strings.ToLower(f)) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// stripPunctuation removes commas, periods, and exclamation marks.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '!':
			return -1
		}
		return r
	}, s)
}

// metaphoneCodes returns the non-empty Double Metaphone codes for word.
func metaphoneCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
