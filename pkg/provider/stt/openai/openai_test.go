package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wrenhold/quackbot/pkg/provider/stt/openai"
)

// ---- helpers ----

type transcriptionCapture struct {
	model    string
	filename string
	fileSize int
}

// newTranscriptionServer returns a mock transcriptions endpoint that captures
// the multipart upload and replies with text.
func newTranscriptionServer(t *testing.T, text string) (*httptest.Server, *transcriptionCapture) {
	t.Helper()
	captured := &transcriptionCapture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		captured.model = r.FormValue("model")
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		captured.filename = header.Filename
		captured.fileSize = len(data)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"text": text}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

// ---- construction ----

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := openai.New("", "whisper-1"); err == nil {
		t.Error("expected error for empty apiKey, got nil")
	}
}

func TestNew_RequiresModel(t *testing.T) {
	t.Parallel()
	if _, err := openai.New("sk-test", ""); err == nil {
		t.Error("expected error for empty model, got nil")
	}
}

// ---- transcription ----

func TestTranscribe_ReturnsTrimmedText(t *testing.T) {
	t.Parallel()
	srv, _ := newTranscriptionServer(t, "  adam play a song  ")
	p, err := openai.New("sk-test", "whisper-1", openai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := p.Transcribe(context.Background(), []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if got != "adam play a song" {
		t.Errorf("Transcribe() = %q, want %q", got, "adam play a song")
	}
}

func TestTranscribe_UploadsWAVAndModel(t *testing.T) {
	t.Parallel()
	srv, captured := newTranscriptionServer(t, "ok")
	p, err := openai.New("sk-test", "whisper-1", openai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	wav := make([]byte, 128)
	if _, err := p.Transcribe(context.Background(), wav); err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}

	if captured.model != "whisper-1" {
		t.Errorf("model field = %q, want whisper-1", captured.model)
	}
	if captured.filename != "audio.wav" {
		t.Errorf("filename = %q, want audio.wav", captured.filename)
	}
	if captured.fileSize != len(wav) {
		t.Errorf("uploaded size = %d, want %d", captured.fileSize, len(wav))
	}
}

func TestTranscribe_ServerErrorPropagates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad audio"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	p, err := openai.New("sk-test", "whisper-1", openai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := p.Transcribe(context.Background(), []byte{1}); err == nil {
		t.Error("expected error from server failure, got nil")
	}
}
