package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var callsimEnvKeys = []string{
	"CALLSIM_ADDR",
	"CALLSIM_OPENAI_API_KEY",
	"OPENAI_API_KEY",
	"VITE_OPENAI_API_KEY",
	"CALLSIM_REALTIME_MODEL",
	"CALLSIM_REALTIME_VOICE",
	"CALLSIM_TRANSCRIBE_MODEL",
	"CALLSIM_SESSIONS_URL",
	"CALLSIM_REALTIME_URL",
	"CALLSIM_CREDENTIAL_URL",
	"CALLSIM_SETTLE_WINDOW",
	"CALLSIM_ENDED_DELAY",
	"CALLSIM_GATHER_TIMEOUT",
	"CALLSIM_HTTP_TIMEOUT",
	"CALLSIM_ICE_SERVERS",
	"CALLSIM_CAPTURE_FILE",
	"CALLSIM_RECORD_FILE",
	"CALLSIM_STATIC_DIR",
	"CALLSIM_LOG_LEVEL",
	"CALLSIM_LOG_PRETTY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range callsimEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr=%q", cfg.Addr)
	}
	if cfg.RealtimeModel != "gpt-4o-realtime-preview" || cfg.RealtimeVoice != "coral" {
		t.Fatalf("model=%q voice=%q", cfg.RealtimeModel, cfg.RealtimeVoice)
	}
	if cfg.TranscribeModel != "gpt-4o-mini-transcribe" {
		t.Fatalf("TranscribeModel=%q", cfg.TranscribeModel)
	}
	if cfg.SettleWindow != 500*time.Millisecond || cfg.EndedDelay != 2*time.Second {
		t.Fatalf("settle=%v ended=%v", cfg.SettleWindow, cfg.EndedDelay)
	}
	if cfg.GatherTimeout != 3*time.Second || cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("gather=%v http=%v", cfg.GatherTimeout, cfg.HTTPTimeout)
	}
	if !reflect.DeepEqual(cfg.ICEServers, []string{"stun:stun.l.google.com:19302"}) {
		t.Fatalf("ICEServers=%v", cfg.ICEServers)
	}
	if cfg.CredentialURL != "" || cfg.APIKey != "" {
		t.Fatalf("credential url=%q key set=%v", cfg.CredentialURL, cfg.APIKey != "")
	}
	if cfg.LogLevel != zerolog.InfoLevel || cfg.LogPretty {
		t.Fatalf("level=%v pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALLSIM_ADDR", "127.0.0.1:9000")
	t.Setenv("CALLSIM_SETTLE_WINDOW", "250ms")
	t.Setenv("CALLSIM_ICE_SERVERS", "stun:a.example:3478, ,stun:b.example:3478")
	t.Setenv("CALLSIM_LOG_LEVEL", "debug")
	t.Setenv("CALLSIM_LOG_PRETTY", "true")
	t.Setenv("CALLSIM_CREDENTIAL_URL", "http://localhost:3000/api/session")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.SettleWindow != 250*time.Millisecond {
		t.Fatalf("addr=%q settle=%v", cfg.Addr, cfg.SettleWindow)
	}
	if !reflect.DeepEqual(cfg.ICEServers, []string{"stun:a.example:3478", "stun:b.example:3478"}) {
		t.Fatalf("ICEServers=%v", cfg.ICEServers)
	}
	if cfg.LogLevel != zerolog.DebugLevel || !cfg.LogPretty {
		t.Fatalf("level=%v pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
	if cfg.CredentialURL != "http://localhost:3000/api/session" {
		t.Fatalf("CredentialURL=%q", cfg.CredentialURL)
	}
}

func TestLoadFromEnv_APIKeyFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("VITE_OPENAI_API_KEY", "sk-vite")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIKey != "sk-vite" {
		t.Fatal("VITE_OPENAI_API_KEY not used")
	}

	t.Setenv("OPENAI_API_KEY", "sk-plain")
	cfg, _ = LoadFromEnv()
	if cfg.APIKey != "sk-plain" {
		t.Fatal("OPENAI_API_KEY should win over VITE_OPENAI_API_KEY")
	}

	t.Setenv("CALLSIM_OPENAI_API_KEY", "sk-callsim")
	cfg, _ = LoadFromEnv()
	if cfg.APIKey != "sk-callsim" {
		t.Fatal("CALLSIM_OPENAI_API_KEY should win")
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"CALLSIM_SETTLE_WINDOW", "-1s", "CALLSIM_SETTLE_WINDOW"},
		{"CALLSIM_ENDED_DELAY", "0s", "CALLSIM_ENDED_DELAY"},
		{"CALLSIM_GATHER_TIMEOUT", "-5ms", "CALLSIM_GATHER_TIMEOUT"},
		{"CALLSIM_HTTP_TIMEOUT", "0", "CALLSIM_HTTP_TIMEOUT"},
		{"CALLSIM_LOG_LEVEL", "chatty", "CALLSIM_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err=%v, want mention of %s", err, tt.want)
			}
		})
	}
}
