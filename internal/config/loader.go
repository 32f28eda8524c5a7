package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the provider implementations this binary ships
// with, per pipeline stage. Unknown names are warned about rather than
// rejected so configs can reference providers added in newer builds.
var ValidProviderNames = map[string]map[string]bool{
	"stt":   {"whisper": true, "openai": true},
	"llm":   {"openai": true},
	"tts":   {"openai": true, "elevenlabs": true},
	"media": {"youtube": true},
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes YAML configuration from r, applies defaults and
// validates the result. Unknown fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// defaultSystemPrompt is the persona used when the config does not supply one.
const defaultSystemPrompt = "You are Adam, a sarcastic duck hanging out in a Discord server. " +
	"Reply in short lowercase messages, one or two sentences at most. " +
	"Never admit to being a bot."

func (c *Config) applyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Chat.SystemPrompt == "" {
		c.Chat.SystemPrompt = defaultSystemPrompt
	}
	if c.Chat.HistorySize == 0 {
		c.Chat.HistorySize = 50
	}
	if c.Chat.HistoryMaxAge == 0 {
		c.Chat.HistoryMaxAge = Duration(time.Hour)
	}
	if c.Voice.WakeWord == "" {
		c.Voice.WakeWord = "adam"
	}
	if c.Voice.PhoneticThreshold == 0 {
		c.Voice.PhoneticThreshold = 0.70
	}
	if c.Voice.SuppressMargin == 0 {
		c.Voice.SuppressMargin = Duration(500 * time.Millisecond)
	}
	if c.Voice.MaxUtterance == 0 {
		c.Voice.MaxUtterance = Duration(30 * time.Second)
	}
}

// Validate checks the configuration for errors. All problems found are
// reported together via errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if !c.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level: unknown level %q", c.Server.LogLevel))
	}
	if c.Chat.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("chat.history_size: must not be negative, got %d", c.Chat.HistorySize))
	}
	if c.Voice.PhoneticThreshold <= 0 || c.Voice.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("voice.phonetic_threshold: must be in (0, 1], got %v", c.Voice.PhoneticThreshold))
	}
	if c.Voice.SuppressMargin < 0 {
		errs = append(errs, errors.New("voice.suppress_margin: must not be negative"))
	}
	if c.Voice.MaxUtterance <= 0 {
		errs = append(errs, errors.New("voice.max_utterance: must be positive"))
	}
	for _, stage := range []struct {
		kind     string
		entry    ProviderEntry
		required bool
	}{
		{"stt", c.Providers.STT, true},
		{"llm", c.Providers.LLM, true},
		{"tts", c.Providers.TTS, true},
		{"media", c.Providers.Media, false},
	} {
		if stage.entry.Name == "" {
			if stage.required {
				errs = append(errs, fmt.Errorf("providers.%s.name is required", stage.kind))
			}
			continue
		}
		validateProviderName(stage.kind, stage.entry.Name)
	}

	return errors.Join(errs...)
}

func validateProviderName(kind, name string) {
	if !ValidProviderNames[kind][name] {
		slog.Warn("unrecognized provider name, wiring may fail",
			slog.String("kind", kind),
			slog.String("name", name))
	}
}
