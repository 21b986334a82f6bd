package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load environment variables and handle errors

func LoadEnv() {
	err := godotenv.Load()

	if err != nil {
		Logger.Warn("Error loading .env file, will use environment variables instead:", err)
		// Don't call Fatal here - continue execution
	}
}

// Settings is the application configuration. Values come from defaults,
// then an optional YAML file, then environment variables.
type Settings struct {
	Listen   string `yaml:"listen"`
	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`

	// Store selects the backing record store: "sqlite" or "supabase".
	Store       string `yaml:"store"`
	SQLitePath  string `yaml:"sqlite_path"`
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`

	// LLMProvider selects the completion service: "openai" or "gemini".
	LLMProvider    string        `yaml:"llm_provider"`
	OpenAIAPIKey   string        `yaml:"openai_api_key"`
	OpenAIModel    string        `yaml:"openai_model"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	LookaheadDays        int  `yaml:"lookahead_days"`
	DigestLimit          int  `yaml:"digest_limit"`
	ResolveRelativeDates bool `yaml:"resolve_relative_dates"`

	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`

	SessionIdle time.Duration `yaml:"session_idle"`
}

// DefaultSettings returns the in-memory defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Listen:               ":8080",
		Timezone:             "Europe/Stockholm",
		LogLevel:             "info",
		Store:                "sqlite",
		SQLitePath:           "calendai.db",
		LLMProvider:          "openai",
		OpenAIModel:          "gpt-4o",
		GeminiModel:          "gemini-2.0-flash",
		RequestTimeout:       30 * time.Second,
		LookaheadDays:        DefaultLookaheadDays,
		DigestLimit:          DefaultDigestLimit,
		ResolveRelativeDates: true,
		TokenTTL:             364 * 24 * time.Hour,
		RedisChannel:         "calendar_events",
		SessionIdle:          2 * time.Hour,
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.Listen == "" {
		s.Listen = def.Listen
	}
	if s.Timezone == "" {
		s.Timezone = def.Timezone
	}
	if s.LogLevel == "" {
		s.LogLevel = def.LogLevel
	}
	switch s.Store {
	case "sqlite", "supabase":
	default:
		s.Store = def.Store
	}
	if s.SQLitePath == "" {
		s.SQLitePath = def.SQLitePath
	}
	switch s.LLMProvider {
	case "openai", "gemini":
	default:
		s.LLMProvider = def.LLMProvider
	}
	if s.OpenAIModel == "" {
		s.OpenAIModel = def.OpenAIModel
	}
	if s.GeminiModel == "" {
		s.GeminiModel = def.GeminiModel
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = def.RequestTimeout
	}
	if s.LookaheadDays <= 0 {
		s.LookaheadDays = def.LookaheadDays
	}
	if s.DigestLimit <= 0 {
		s.DigestLimit = def.DigestLimit
	}
	if s.TokenTTL <= 0 {
		s.TokenTTL = def.TokenTTL
	}
	if s.RedisChannel == "" {
		s.RedisChannel = def.RedisChannel
	}
	if s.SessionIdle <= 0 {
		s.SessionIdle = def.SessionIdle
	}
}

// Location resolves the configured IANA timezone.
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Load builds the settings. path may be empty, and a missing file is not an error.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			Logger.Warn("Config file not found, using defaults:", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, settings); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(settings); err != nil {
		return nil, err
	}
	settings.Normalize()

	if _, err := settings.Location(); err != nil {
		return nil, err
	}
	return settings, nil
}

func applyEnv(s *Settings) error {
	setString(&s.Listen, "LISTEN_ADDR")
	setString(&s.Timezone, "CALENDAI_TIMEZONE")
	setString(&s.LogLevel, "LOG_LEVEL")
	setString(&s.Store, "CALENDAI_STORE")
	setString(&s.SQLitePath, "SQLITE_PATH")
	setString(&s.SupabaseURL, "SUPABASE_URL")
	setString(&s.SupabaseKey, "SUPABASE_KEY")
	setString(&s.LLMProvider, "LLM_PROVIDER")
	setString(&s.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&s.OpenAIModel, "OPENAI_MODEL")
	setString(&s.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&s.GeminiModel, "GEMINI_MODEL")
	setString(&s.TokenSecret, "TOKEN_SECRET_KEY")
	setString(&s.RedisAddr, "REDIS_ADDR")
	setString(&s.RedisChannel, "REDIS_CHANNEL")

	if err := setInt(&s.LookaheadDays, "LOOKAHEAD_DAYS"); err != nil {
		return err
	}
	if err := setInt(&s.DigestLimit, "DIGEST_LIMIT"); err != nil {
		return err
	}
	if err := setDuration(&s.RequestTimeout, "LLM_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&s.TokenTTL, "TOKEN_TTL"); err != nil {
		return err
	}
	if err := setDuration(&s.SessionIdle, "SESSION_IDLE"); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("RESOLVE_RELATIVE_DATES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RESOLVE_RELATIVE_DATES: %w", err)
		}
		s.ResolveRelativeDates = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
