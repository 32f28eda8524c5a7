// Command quackbot is the entry point for the quackbot Discord voice bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wrenhold/quackbot/internal/bot"
	"github.com/wrenhold/quackbot/internal/chat"
	"github.com/wrenhold/quackbot/internal/config"
	"github.com/wrenhold/quackbot/internal/media"
	"github.com/wrenhold/quackbot/internal/observe"
	"github.com/wrenhold/quackbot/internal/voice"
	discordaudio "github.com/wrenhold/quackbot/pkg/audio/discord"
	"github.com/wrenhold/quackbot/pkg/provider/llm"
	llmopenai "github.com/wrenhold/quackbot/pkg/provider/llm/openai"
	providermedia "github.com/wrenhold/quackbot/pkg/provider/media"
	"github.com/wrenhold/quackbot/pkg/provider/media/youtube"
	"github.com/wrenhold/quackbot/pkg/provider/stt"
	sttopenai "github.com/wrenhold/quackbot/pkg/provider/stt/openai"
	"github.com/wrenhold/quackbot/pkg/provider/stt/whisper"
	"github.com/wrenhold/quackbot/pkg/provider/tts"
	"github.com/wrenhold/quackbot/pkg/provider/tts/elevenlabs"
	ttsopenai "github.com/wrenhold/quackbot/pkg/provider/tts/openai"
)

const serviceVersion = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quackbot: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("quackbot starting",
		"config", *configPath,
		"metrics_addr", cfg.Server.MetricsAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "quackbot",
		ServiceVersion: serviceVersion,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	history := chat.NewHistory(cfg.Chat.HistorySize, cfg.Chat.HistoryMaxAge.Std())
	responder := chat.NewResponder(providers.llm, history, cfg.Chat.SystemPrompt)

	var mediaOpts []media.Option
	if cfg.Voice.YTDLPPath != "" {
		mediaOpts = append(mediaOpts, media.WithYTDLPPath(cfg.Voice.YTDLPPath))
	}
	if cfg.Voice.FFmpegPath != "" {
		mediaOpts = append(mediaOpts, media.WithFFmpegPath(cfg.Voice.FFmpegPath))
	}
	tracks := media.NewSource(logger, mediaOpts...)

	classifierOpts := []voice.ClassifierOption{
		voice.WithPhoneticThreshold(cfg.Voice.PhoneticThreshold),
	}
	if len(cfg.Voice.Triggers) > 0 {
		classifierOpts = append(classifierOpts, voice.WithTriggers(cfg.Voice.Triggers))
	}
	classifier := voice.NewClassifier(cfg.Voice.WakeWord, classifierOpts...)

	b, err := bot.New(bot.Config{
		Token:       cfg.Discord.Token,
		WakeWord:    cfg.Voice.WakeWord,
		Activity:    cfg.Discord.Activity,
		SnarkUserID: cfg.Discord.SnarkUserID,
		SnarkSuffix: cfg.Discord.SnarkSuffix,
	}, bot.Deps{
		Log:     logger,
		Replier: responder,
		History: history,
		NewVoiceSession: func(session *discordgo.Session, guildID string) *voice.Session {
			return voice.NewSession(voice.SessionConfig{
				Log:            logger.With("guild_id", guildID),
				Metrics:        metrics,
				Platform:       discordaudio.New(session, guildID),
				STT:            providers.stt,
				TTS:            providers.tts,
				Replier:        responder,
				Search:         providers.search,
				Tracks:         tracks,
				Classifier:     classifier,
				SuppressMargin: cfg.Voice.SuppressMargin.Std(),
				MaxUtterance:   cfg.Voice.MaxUtterance.Std(),
			})
		},
	})
	if err != nil {
		slog.Error("failed to start Discord bot", "err", err)
		return 1
	}

	slog.Info("quackbot ready", "stt", cfg.Providers.STT.Name,
		"llm", cfg.Providers.LLM.Name, "tts", cfg.Providers.TTS.Name)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(gctx)
	})

	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	slog.Info("shutdown signal received, stopping")

	if closeErr := b.Close(); closeErr != nil {
		slog.Warn("discord bot close error", "err", closeErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if mErr := shutdownMetrics(shutdownCtx); mErr != nil {
		slog.Warn("metrics shutdown error", "err", mErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// providerSet bundles the instantiated pipeline providers.
type providerSet struct {
	stt    stt.Provider
	llm    llm.Provider
	tts    tts.Provider
	search providermedia.Provider
}

// buildProviders instantiates the configured provider for each pipeline
// stage. The media provider is optional; everything else is required.
func buildProviders(cfg *config.Config) (*providerSet, error) {
	var (
		ps  providerSet
		err error
	)

	switch entry := cfg.Providers.STT; entry.Name {
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		ps.stt, err = whisper.New(entry.BaseURL, opts...)
	case "openai":
		var opts []sttopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		ps.stt, err = sttopenai.New(entry.APIKey, entry.Model, opts...)
	default:
		err = fmt.Errorf("unknown STT provider %q", entry.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}

	switch entry := cfg.Providers.LLM; entry.Name {
	case "openai":
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		ps.llm, err = llmopenai.New(entry.APIKey, entry.Model, opts...)
	default:
		err = fmt.Errorf("unknown LLM provider %q", entry.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	switch entry := cfg.Providers.TTS; entry.Name {
	case "openai":
		var opts []ttsopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		ps.tts, err = ttsopenai.New(entry.APIKey, entry.Model, entry.Voice, opts...)
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		ps.tts, err = elevenlabs.New(entry.APIKey, entry.Voice, opts...)
	default:
		err = fmt.Errorf("unknown TTS provider %q", entry.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}

	if entry := cfg.Providers.Media; entry.Name != "" {
		switch entry.Name {
		case "youtube":
			var opts []youtube.Option
			if entry.BaseURL != "" {
				opts = append(opts, youtube.WithBaseURL(entry.BaseURL))
			}
			ps.search, err = youtube.New(entry.APIKey, opts...)
		default:
			err = fmt.Errorf("unknown media provider %q", entry.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("media: %w", err)
		}
	}

	return &ps, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
