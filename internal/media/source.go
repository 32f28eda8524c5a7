// Package media turns resolved media references into playable audio tracks
// by piping yt-dlp's best-audio stream through ffmpeg into s16le PCM at the
// voice channel's playback format.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/wrenhold/quackbot/pkg/audio"
	providermedia "github.com/wrenhold/quackbot/pkg/provider/media"
)

// Option is a functional option for configuring a [Source].
type Option func(*Source)

// WithYTDLPPath overrides the yt-dlp executable path. Default: "yt-dlp".
func WithYTDLPPath(path string) Option {
	return func(s *Source) {
		s.ytdlp = path
	}
}

// WithFFmpegPath overrides the ffmpeg executable path. Default: "ffmpeg".
func WithFFmpegPath(path string) Option {
	return func(s *Source) {
		s.ffmpeg = path
	}
}

// Source builds [audio.Track] values for resolved media references.
type Source struct {
	log    *slog.Logger
	ytdlp  string
	ffmpeg string
}

// NewSource creates a Source. The yt-dlp and ffmpeg binaries are looked up
// on PATH unless overridden.
func NewSource(log *slog.Logger, opts ...Option) *Source {
	s := &Source{
		log:    log,
		ytdlp:  "yt-dlp",
		ffmpeg: "ffmpeg",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Track returns a playable track for ref. The download does not start until
// the track is opened by the playback queue.
func (s *Source) Track(ref providermedia.Track) audio.Track {
	return &streamTrack{src: s, ref: ref}
}

// streamTrack streams one media reference through yt-dlp and ffmpeg.
type streamTrack struct {
	src *Source
	ref providermedia.Track
}

// Compile-time interface assertion.
var _ audio.Track = (*streamTrack)(nil)

// Name implements [audio.Track].
func (t *streamTrack) Name() string {
	if t.ref.Title != "" {
		return t.ref.Title
	}
	return t.ref.URL
}

// Open implements [audio.Track]: it starts yt-dlp writing the best audio
// stream to stdout and ffmpeg transcoding that stream to playback-format
// PCM. Closing the returned stream kills both processes.
func (t *streamTrack) Open(ctx context.Context) (io.ReadCloser, error) {
	download := exec.CommandContext(ctx, t.src.ytdlp,
		"--quiet",
		"--no-playlist",
		"-f", "bestaudio/best",
		"-o", "-",
		t.ref.URL,
	)
	transcode := exec.CommandContext(ctx, t.src.ffmpeg,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.PlaybackFormat.SampleRate),
		"-ac", strconv.Itoa(audio.PlaybackFormat.Channels),
		"-loglevel", "quiet",
		"pipe:1",
	)

	pipe, err := download.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("media: yt-dlp stdout: %w", err)
	}
	transcode.Stdin = pipe

	out, err := transcode.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("media: ffmpeg stdout: %w", err)
	}

	if err := download.Start(); err != nil {
		return nil, fmt.Errorf("media: start yt-dlp: %w", err)
	}
	if err := transcode.Start(); err != nil {
		_ = download.Process.Kill()
		_ = download.Wait()
		return nil, fmt.Errorf("media: start ffmpeg: %w", err)
	}

	t.src.log.Debug("media stream started", "title", t.Name(), "url", t.ref.URL)
	return &processStream{
		Reader:    out,
		download:  download,
		transcode: transcode,
	}, nil
}

// processStream reads transcoded PCM and reaps both child processes on
// Close.
type processStream struct {
	io.Reader
	download  *exec.Cmd
	transcode *exec.Cmd
	closed    bool
}

func (p *processStream) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.download.Process.Kill()
	_ = p.transcode.Process.Kill()
	_ = p.download.Wait()
	_ = p.transcode.Wait()
	return nil
}
