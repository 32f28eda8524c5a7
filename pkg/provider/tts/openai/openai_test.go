package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wrenhold/quackbot/pkg/provider/tts/openai"
)

// ---- helpers ----

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// newSpeechServer returns a mock speech endpoint that captures the request
// and replies with raw pcm bytes.
func newSpeechServer(t *testing.T, pcm []byte) (*httptest.Server, *speechRequest) {
	t.Helper()
	captured := &speechRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/pcm")
		w.Write(pcm)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

// ---- construction ----

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name            string
		key, model, vox string
	}{
		{"empty key", "", "tts-1", "onyx"},
		{"empty model", "sk-test", "", "onyx"},
		{"empty voice", "sk-test", "tts-1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := openai.New(tt.key, tt.model, tt.vox); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---- synthesis ----

func TestSynthesize_ReturnsPCMAudio(t *testing.T) {
	t.Parallel()
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	srv, captured := newSpeechServer(t, pcm)
	p, err := openai.New("sk-test", "tts-1", "onyx", openai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	a, err := p.Synthesize(context.Background(), "quack")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if len(a.PCM) != len(pcm) {
		t.Errorf("PCM length = %d, want %d", len(a.PCM), len(pcm))
	}
	if a.SampleRate != 24000 || a.Channels != 1 {
		t.Errorf("format = %d Hz %d ch, want 24000 Hz 1 ch", a.SampleRate, a.Channels)
	}

	if captured.Model != "tts-1" {
		t.Errorf("model = %q, want tts-1", captured.Model)
	}
	if captured.Voice != "onyx" {
		t.Errorf("voice = %q, want onyx", captured.Voice)
	}
	if captured.Input != "quack" {
		t.Errorf("input = %q, want quack", captured.Input)
	}
	if captured.ResponseFormat != "pcm" {
		t.Errorf("response_format = %q, want pcm", captured.ResponseFormat)
	}
}

func TestSynthesize_EmptyBodyIsError(t *testing.T) {
	t.Parallel()
	srv, _ := newSpeechServer(t, nil)
	p, err := openai.New("sk-test", "tts-1", "onyx", openai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := p.Synthesize(context.Background(), "quack"); err == nil {
		t.Error("expected error for empty response body, got nil")
	}
}

func TestSynthesize_ServerErrorPropagates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"no such voice"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	p, err := openai.New("sk-test", "tts-1", "onyx", openai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := p.Synthesize(context.Background(), "quack"); err == nil {
		t.Error("expected error from server failure, got nil")
	}
}
