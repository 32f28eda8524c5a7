// Package config provides the configuration schema and loader for quackbot.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration so YAML values like "500ms" or "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration structure for quackbot. It is typically
// loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Chat      ChatConfig      `yaml:"chat"`
	Voice     VoiceConfig     `yaml:"voice"`
}

// DiscordConfig holds gateway credentials and presence settings.
type DiscordConfig struct {
	// Token is the bot token used to authenticate with the gateway.
	Token string `yaml:"token"`

	// Activity is the "listening to ..." presence text shown while the bot
	// is in a voice channel.
	Activity string `yaml:"activity"`

	// SnarkUserID selects a user whose direct messages get SnarkSuffix
	// appended to the persona prompt. Both optional.
	SnarkUserID string `yaml:"snark_user_id"`
	SnarkSuffix string `yaml:"snark_suffix"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// MetricsAddr is the TCP address the /metrics endpoint listens on
	// (e.g., ":9090"). Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	STT   ProviderEntry `yaml:"stt"`
	LLM   ProviderEntry `yaml:"llm"`
	TTS   ProviderEntry `yaml:"tts"`
	Media ProviderEntry `yaml:"media"`
}

// ProviderEntry is the common configuration block shared by all provider
// types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "whisper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. Leave empty to
	// use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini",
	// "whisper-1").
	Model string `yaml:"model"`

	// Voice is the provider-specific voice identifier for TTS providers.
	Voice string `yaml:"voice"`
}

// ChatConfig holds settings for the conversational responder.
type ChatConfig struct {
	// SystemPrompt is the persona injected into every reply generation.
	SystemPrompt string `yaml:"system_prompt"`

	// HistorySize caps the number of remembered messages. Default 50.
	HistorySize int `yaml:"history_size"`

	// HistoryMaxAge evicts messages older than this. Default 1h.
	HistoryMaxAge Duration `yaml:"history_max_age"`
}

// VoiceConfig holds tuning knobs for the voice pipeline.
type VoiceConfig struct {
	// WakeWord triggers conversational handling when heard. Default "adam".
	WakeWord string `yaml:"wake_word"`

	// Triggers are additional words or phrases that address the bot.
	Triggers []string `yaml:"triggers"`

	// PhoneticThreshold is the minimum Jaro-Winkler score for a wake-word
	// mis-hearing to still trigger. Range (0, 1]. Default 0.70.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// SuppressMargin pads each reply's self-capture suppression window.
	// Default 500ms.
	SuppressMargin Duration `yaml:"suppress_margin"`

	// MaxUtterance caps continuous speech per speaker before a forced flush.
	// Default 30s.
	MaxUtterance Duration `yaml:"max_utterance"`

	// YTDLPPath and FFmpegPath override the binaries used to stream music.
	// Defaults look the binaries up on PATH.
	YTDLPPath  string `yaml:"ytdlp_path"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}
