package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transcription.Mode != "mock" {
		t.Fatalf("expected default mode mock, got %q", cfg.Transcription.Mode)
	}
	if cfg.Controls.BasicKey != "shift_r" || cfg.Controls.EnhancedKey != "ctrl_l" {
		t.Fatalf("unexpected default controls: %+v", cfg.Controls)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if !cfg.Paste.Enabled {
		t.Fatal("expected auto-paste enabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voicerec.yaml")
	data := []byte(`
transcription:
  mode: cloud
  openai:
    api_key: sk-test
controls:
  basic_key: f13
  enhanced_key: f14
paste:
  enabled: false
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transcription.Mode != "cloud" {
		t.Fatalf("expected mode cloud, got %q", cfg.Transcription.Mode)
	}
	if cfg.Transcription.OpenAI.APIKey != "sk-test" {
		t.Fatalf("expected api key from file")
	}
	if cfg.Controls.BasicKey != "f13" || cfg.Controls.EnhancedKey != "f14" {
		t.Fatalf("expected controls from file, got %+v", cfg.Controls)
	}
	if cfg.Paste.Enabled {
		t.Fatal("expected paste disabled")
	}
	if cfg.Transcription.OpenAI.WhisperModel != "whisper-1" {
		t.Fatalf("expected default whisper model to survive partial file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOICEREC_TRANSCRIPTION_MODE", "local")
	t.Setenv("VOICEREC_LOCAL_WHISPER_COMMAND", "whisper-cli --json")
	t.Setenv("VOICEREC_LOCAL_OLLAMA_MODEL", "llama3.2")
	t.Setenv("VOICEREC_CONTROLS_BASIC_KEY", "f5")
	t.Setenv("VOICEREC_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("VOICEREC_PASTE_ENABLED", "false")
	t.Setenv("VOICEREC_HISTORY_RETENTION_DAYS", "7")
	t.Setenv("VOICEREC_BUS_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transcription.Mode != "local" {
		t.Fatalf("expected mode override, got %q", cfg.Transcription.Mode)
	}
	if cfg.Transcription.Local.WhisperCommand != "whisper-cli --json" {
		t.Fatalf("expected whisper command override")
	}
	if cfg.Transcription.Local.OllamaModel != "llama3.2" {
		t.Fatalf("expected ollama model override")
	}
	if cfg.Controls.BasicKey != "f5" {
		t.Fatalf("expected basic key override")
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("expected sample rate override, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Paste.Enabled {
		t.Fatal("expected paste override false")
	}
	if cfg.History.RetentionDays != 7 {
		t.Fatalf("expected retention days override, got %d", cfg.History.RetentionDays)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	t.Setenv("VOICEREC_TRANSCRIPTION_MODE", "telepathy")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown transcription mode")
	}
}

func TestValidateCloudRequiresAPIKey(t *testing.T) {
	t.Setenv("VOICEREC_TRANSCRIPTION_MODE", "cloud")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for cloud mode without api key")
	}
}

func TestValidateLocalRequiresWhisperCommand(t *testing.T) {
	t.Setenv("VOICEREC_TRANSCRIPTION_MODE", "local")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for local mode without whisper command")
	}
}

func TestValidateRejectsSameKeys(t *testing.T) {
	t.Setenv("VOICEREC_CONTROLS_BASIC_KEY", "f5")
	t.Setenv("VOICEREC_CONTROLS_ENHANCED_KEY", "f5")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for identical trigger keys")
	}
}
