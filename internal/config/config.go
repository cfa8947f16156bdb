package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// ControlsConfig names the two push-to-talk triggers as published by edge
// key listeners.
type ControlsConfig struct {
	BasicKey    string `yaml:"basic_key"`
	EnhancedKey string `yaml:"enhanced_key"`
}

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// RecorderConfig drives the external capture command. The command is started
// on key press and must write a WAV file to the path given on stop.
type RecorderConfig struct {
	Command string `yaml:"command"`
	TempDir string `yaml:"temp_dir"`
}

type OpenAIConfig struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	WhisperModel string  `yaml:"whisper_model"`
	ChatModel    string  `yaml:"chat_model"`
	Temperature  float64 `yaml:"temperature"`
	TimeoutMS    int     `yaml:"timeout_ms"`
}

type LocalConfig struct {
	WhisperCommand string `yaml:"whisper_command"`
	ModelPath      string `yaml:"model_path"`
	Language       string `yaml:"language"`
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
}

// TranscriptionConfig selects the provider pair once at startup.
// Mode is one of cloud|local|mock.
type TranscriptionConfig struct {
	Mode   string       `yaml:"mode"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Local  LocalConfig  `yaml:"local"`
}

type EnhancementConfig struct {
	Prompt      string  `yaml:"prompt"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type PasteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
}

type FeedbackConfig struct {
	Enabled      bool   `yaml:"enabled"`
	StartCommand string `yaml:"start_command"`
	StopCommand  string `yaml:"stop_command"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
}

type Config struct {
	RuntimeName   string              `yaml:"runtime_name"`
	Environment   string              `yaml:"environment"`
	HTTP          HTTPConfig          `yaml:"http"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Bus           BusConfig           `yaml:"bus"`
	Controls      ControlsConfig      `yaml:"controls"`
	Audio         AudioConfig         `yaml:"audio"`
	Recorder      RecorderConfig      `yaml:"recorder"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Enhancement   EnhancementConfig   `yaml:"enhancement"`
	Paste         PasteConfig         `yaml:"paste"`
	Feedback      FeedbackConfig      `yaml:"feedback"`
	History       HistoryConfig       `yaml:"history"`
}

const defaultEnhancementPrompt = "Improve the following transcribed text by fixing grammar and punctuation while preserving the original meaning. Return only the improved text."

func Default() Config {
	return Config{
		RuntimeName: "voice-recorder",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8090,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Controls: ControlsConfig{
			BasicKey:    "shift_r",
			EnhancedKey: "ctrl_l",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Recorder: RecorderConfig{
			Command: "",
			TempDir: "",
		},
		Transcription: TranscriptionConfig{
			Mode: "mock",
			OpenAI: OpenAIConfig{
				BaseURL:      "https://api.openai.com/v1",
				WhisperModel: "whisper-1",
				ChatModel:    "gpt-3.5-turbo",
				Temperature:  0.3,
				TimeoutMS:    45000,
			},
			Local: LocalConfig{
				OllamaEndpoint: "http://localhost:11434",
				OllamaModel:    "llama3.1",
				Language:       "en",
			},
		},
		Enhancement: EnhancementConfig{
			Prompt:      defaultEnhancementPrompt,
			Temperature: 0.3,
			MaxTokens:   500,
		},
		Paste: PasteConfig{
			Enabled: true,
			Command: "",
		},
		Feedback: FeedbackConfig{
			Enabled: false,
		},
		History: HistoryConfig{
			Path:          "./data/sessions.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "VOICEREC_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VOICEREC_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VOICEREC_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOICEREC_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VOICEREC_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOICEREC_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOICEREC_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "VOICEREC_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "VOICEREC_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOICEREC_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VOICEREC_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOICEREC_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOICEREC_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOICEREC_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOICEREC_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOICEREC_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Controls.BasicKey, "VOICEREC_CONTROLS_BASIC_KEY")
	overrideString(&cfg.Controls.EnhancedKey, "VOICEREC_CONTROLS_ENHANCED_KEY")
	overrideInt(&cfg.Audio.SampleRate, "VOICEREC_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "VOICEREC_AUDIO_CHANNELS")
	overrideString(&cfg.Recorder.Command, "VOICEREC_RECORDER_COMMAND")
	overrideString(&cfg.Recorder.TempDir, "VOICEREC_RECORDER_TEMP_DIR")
	overrideString(&cfg.Transcription.Mode, "VOICEREC_TRANSCRIPTION_MODE")
	overrideString(&cfg.Transcription.OpenAI.APIKey, "VOICEREC_OPENAI_API_KEY")
	overrideString(&cfg.Transcription.OpenAI.BaseURL, "VOICEREC_OPENAI_BASE_URL")
	overrideString(&cfg.Transcription.OpenAI.WhisperModel, "VOICEREC_OPENAI_WHISPER_MODEL")
	overrideString(&cfg.Transcription.OpenAI.ChatModel, "VOICEREC_OPENAI_CHAT_MODEL")
	overrideFloat(&cfg.Transcription.OpenAI.Temperature, "VOICEREC_OPENAI_TEMPERATURE")
	overrideInt(&cfg.Transcription.OpenAI.TimeoutMS, "VOICEREC_OPENAI_TIMEOUT_MS")
	overrideString(&cfg.Transcription.Local.WhisperCommand, "VOICEREC_LOCAL_WHISPER_COMMAND")
	overrideString(&cfg.Transcription.Local.ModelPath, "VOICEREC_LOCAL_MODEL_PATH")
	overrideString(&cfg.Transcription.Local.Language, "VOICEREC_LOCAL_LANGUAGE")
	overrideString(&cfg.Transcription.Local.OllamaEndpoint, "VOICEREC_LOCAL_OLLAMA_ENDPOINT")
	overrideString(&cfg.Transcription.Local.OllamaModel, "VOICEREC_LOCAL_OLLAMA_MODEL")
	overrideString(&cfg.Enhancement.Prompt, "VOICEREC_ENHANCEMENT_PROMPT")
	overrideFloat(&cfg.Enhancement.Temperature, "VOICEREC_ENHANCEMENT_TEMPERATURE")
	overrideInt(&cfg.Enhancement.MaxTokens, "VOICEREC_ENHANCEMENT_MAX_TOKENS")
	overrideBool(&cfg.Paste.Enabled, "VOICEREC_PASTE_ENABLED")
	overrideString(&cfg.Paste.Command, "VOICEREC_PASTE_COMMAND")
	overrideBool(&cfg.Feedback.Enabled, "VOICEREC_FEEDBACK_ENABLED")
	overrideString(&cfg.Feedback.StartCommand, "VOICEREC_FEEDBACK_START_COMMAND")
	overrideString(&cfg.Feedback.StopCommand, "VOICEREC_FEEDBACK_STOP_COMMAND")
	overrideString(&cfg.History.Path, "VOICEREC_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "VOICEREC_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "VOICEREC_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxSessions, "VOICEREC_HISTORY_MAX_SESSIONS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Controls.BasicKey == "" || cfg.Controls.EnhancedKey == "" {
		return errors.New("controls.basic_key and controls.enhanced_key must not be empty")
	}
	if cfg.Controls.BasicKey == cfg.Controls.EnhancedKey {
		return errors.New("controls.basic_key and controls.enhanced_key must differ")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	switch cfg.Transcription.Mode {
	case "cloud", "local", "mock":
	default:
		return errors.New("transcription.mode must be one of cloud|local|mock")
	}
	if cfg.Transcription.Mode == "cloud" && cfg.Transcription.OpenAI.APIKey == "" {
		return errors.New("transcription.openai.api_key must be set when mode=cloud")
	}
	if cfg.Transcription.Mode == "local" {
		if cfg.Transcription.Local.WhisperCommand == "" {
			return errors.New("transcription.local.whisper_command must be set when mode=local")
		}
		if cfg.Transcription.Local.OllamaEndpoint == "" {
			return errors.New("transcription.local.ollama_endpoint must be set when mode=local")
		}
	}
	if cfg.Enhancement.MaxTokens < 0 {
		return errors.New("enhancement.max_tokens must be >= 0")
	}
	if cfg.Enhancement.Temperature < 0 || cfg.Enhancement.Temperature > 2 {
		return errors.New("enhancement.temperature must be between 0 and 2")
	}
	if cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}
