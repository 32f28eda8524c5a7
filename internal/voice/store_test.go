package voice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_SaveWritesNamedFile(t *testing.T) {
	s := NewStore()
	defer s.Close()

	path, err := s.Save("42", []byte("RIFF-data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "42_") || !strings.HasSuffix(base, ".wav") {
		t.Errorf("file name = %q; want 42_<unix>.wav", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "RIFF-data" {
		t.Errorf("file contents = %q; want %q", data, "RIFF-data")
	}
}

func TestStore_CloseRemovesScratchDir(t *testing.T) {
	s := NewStore()

	path, err := s.Save("42", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	dir := filepath.Dir(path)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch dir %s still exists after Close", dir)
	}
}

func TestStore_CloseIdempotent(t *testing.T) {
	s := NewStore()
	if _, err := s.Save("42", []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestStore_CloseWithoutSave(t *testing.T) {
	s := NewStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close on unused store: %v", err)
	}
}
