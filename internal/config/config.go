package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Addr string

	// Server-side key used to mint ephemeral credentials. Never sent to clients.
	APIKey string

	RealtimeModel   string
	RealtimeVoice   string
	TranscribeModel string
	SessionsURL     string
	RealtimeURL     string
	// If set, credentials are fetched from this endpoint instead of being
	// minted in-process.
	CredentialURL string

	SettleWindow  time.Duration
	EndedDelay    time.Duration
	GatherTimeout time.Duration
	HTTPTimeout   time.Duration
	ICEServers    []string

	CaptureFile string
	RecordFile  string
	StaticDir   string

	LogLevel  zerolog.Level
	LogPretty bool
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:            envOr("CALLSIM_ADDR", ":8080"),
		APIKey:          firstEnv("CALLSIM_OPENAI_API_KEY", "OPENAI_API_KEY", "VITE_OPENAI_API_KEY"),
		RealtimeModel:   envOr("CALLSIM_REALTIME_MODEL", "gpt-4o-realtime-preview"),
		RealtimeVoice:   envOr("CALLSIM_REALTIME_VOICE", "coral"),
		TranscribeModel: envOr("CALLSIM_TRANSCRIBE_MODEL", "gpt-4o-mini-transcribe"),
		SessionsURL:     envOr("CALLSIM_SESSIONS_URL", "https://api.openai.com/v1/realtime/sessions"),
		RealtimeURL:     envOr("CALLSIM_REALTIME_URL", "https://api.openai.com/v1/realtime"),
		CredentialURL:   envOr("CALLSIM_CREDENTIAL_URL", ""),
		SettleWindow:    envDurationOr("CALLSIM_SETTLE_WINDOW", 500*time.Millisecond),
		EndedDelay:      envDurationOr("CALLSIM_ENDED_DELAY", 2*time.Second),
		GatherTimeout:   envDurationOr("CALLSIM_GATHER_TIMEOUT", 3*time.Second),
		HTTPTimeout:     envDurationOr("CALLSIM_HTTP_TIMEOUT", 10*time.Second),
		ICEServers:      splitCSV(envOr("CALLSIM_ICE_SERVERS", "stun:stun.l.google.com:19302")),
		CaptureFile:     envOr("CALLSIM_CAPTURE_FILE", ""),
		RecordFile:      envOr("CALLSIM_RECORD_FILE", ""),
		StaticDir:       envOr("CALLSIM_STATIC_DIR", "./static"),
		LogPretty:       envBoolOr("CALLSIM_LOG_PRETTY", false),
	}

	level, err := zerolog.ParseLevel(envOr("CALLSIM_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("CALLSIM_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.RealtimeModel == "" {
		return Config{}, fmt.Errorf("CALLSIM_REALTIME_MODEL must not be empty")
	}
	if cfg.RealtimeVoice == "" {
		return Config{}, fmt.Errorf("CALLSIM_REALTIME_VOICE must not be empty")
	}
	if cfg.SettleWindow <= 0 {
		return Config{}, fmt.Errorf("CALLSIM_SETTLE_WINDOW must be > 0")
	}
	if cfg.EndedDelay <= 0 {
		return Config{}, fmt.Errorf("CALLSIM_ENDED_DELAY must be > 0")
	}
	if cfg.GatherTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLSIM_GATHER_TIMEOUT must be > 0")
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLSIM_HTTP_TIMEOUT must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
