package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIKey     = "HUGGINGFACE_API_KEY"
	EnvPhishModel = "HF_PHISH_MODEL"
	EnvChatModel  = "HF_CHAT_MODEL"
	EnvOCRURL     = "OCR_SERVICE_URL"
)

// Config holds FinGuard configuration.
type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Model       ModelConfig      `yaml:"model"`
	OCR         OCRConfig        `yaml:"ocr"`
	Chat        ChatConfig       `yaml:"chat"`
	CatalogPath string           `yaml:"catalog_path"`
	Activation  ActivationConfig `yaml:"activation"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr                     string `yaml:"addr"` // e.g. ":8080"
	MaxRequestBodyBytes      int64  `yaml:"max_request_body_bytes"`
	ReadHeaderTimeoutSeconds int    `yaml:"read_header_timeout_seconds"`
	ReadTimeoutSeconds       int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds      int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds       int    `yaml:"idle_timeout_seconds"`
}

type ModelConfig struct {
	Backend              string `yaml:"backend"` // http | onnx | none
	BaseURL              string `yaml:"base_url"`
	ModelID              string `yaml:"model_id"`
	APIKeyEnv            string `yaml:"api_key_env"`
	APIKey               string `yaml:"-"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	MaxResponseBytes     int64  `yaml:"max_response_bytes"`
	BundleDir            string `yaml:"bundle_dir"`
	SeqLen               int    `yaml:"seq_len"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

type OCRConfig struct {
	Backend              string   `yaml:"backend"` // tesseract (in-process) | http
	URL                  string   `yaml:"url"`
	TimeoutSeconds       int      `yaml:"timeout_seconds"`
	Languages            []string `yaml:"languages"`
	AllowPrivateNetworks bool     `yaml:"allow_private_networks"`
}

type ChatConfig struct {
	Provider             string          `yaml:"provider"` // huggingface | openai
	BaseURL              string          `yaml:"base_url"`
	Model                string          `yaml:"model"`
	APIKeyEnv            string          `yaml:"api_key_env"`
	APIKey               string          `yaml:"-"`
	TimeoutSeconds       int             `yaml:"timeout_seconds"`
	MaxResponseBytes     int64           `yaml:"max_response_bytes"`
	AllowPrivateNetworks bool            `yaml:"allow_private_networks"`
	Citations            CitationsConfig `yaml:"citations"`
}

type CitationsConfig struct {
	Enabled              *bool  `yaml:"enabled"`
	SearchBaseURL        string `yaml:"search_base_url"`
	MaxKeywords          int    `yaml:"max_keywords"`
	MaxCitations         int    `yaml:"max_citations"`
	LookupTimeoutSeconds int    `yaml:"lookup_timeout_seconds"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

// On reports whether citation lookups run. Unset means on.
func (c CitationsConfig) On() bool {
	return c.Enabled == nil || *c.Enabled
}

type ActivationConfig struct {
	Enabled                bool         `yaml:"enabled"`
	QueueSize              int          `yaml:"queue_size"`
	Workers                int          `yaml:"workers"`
	ShutdownTimeoutSeconds int          `yaml:"shutdown_timeout_seconds"`
	Sinks                  []SinkConfig `yaml:"sinks"`
}

type SinkConfig struct {
	Type           string            `yaml:"type"` // stdout | webhook
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
	Service  string `yaml:"service"`
}

// Defaults.
const (
	DefaultAddr                = ":8080"
	DefaultMaxRequestBodyBytes = 8 << 20
	DefaultModelBaseURL        = "https://api-inference.huggingface.co"
	DefaultModelID             = "r3ddkahili/final-complete-malicious-url-model"
	DefaultChatModel           = "meta-llama/Llama-2-7b-chat-hf"
	DefaultSearchBaseURL       = "https://en.wikipedia.org"
)

// writeTimeoutMarginSeconds leaves room to write the response once the chat
// path has used its whole budget.
const writeTimeoutMarginSeconds = 15

// ChatBudgetSeconds is the longest a chat request can spend upstream: the
// completion plus one sequential lookup per keyword.
func ChatBudgetSeconds(c ChatConfig) int {
	budget := c.TimeoutSeconds
	if c.Citations.On() {
		budget += c.Citations.MaxKeywords * c.Citations.LookupTimeoutSeconds
	}
	return budget
}

// Load reads configuration from a YAML file and applies defaults and
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	applyDefaults(cfg)
	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

// Default returns the configuration used when no file exists, without
// environment overrides.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.MaxRequestBodyBytes == 0 {
		s.MaxRequestBodyBytes = DefaultMaxRequestBodyBytes
	}
	if s.ReadHeaderTimeoutSeconds == 0 {
		s.ReadHeaderTimeoutSeconds = 10
	}
	if s.ReadTimeoutSeconds == 0 {
		s.ReadTimeoutSeconds = 30
	}
	if s.IdleTimeoutSeconds == 0 {
		s.IdleTimeoutSeconds = 120
	}

	m := &cfg.Model
	if m.Backend == "" {
		m.Backend = "http"
	}
	if m.BaseURL == "" {
		m.BaseURL = DefaultModelBaseURL
	}
	if m.ModelID == "" {
		m.ModelID = DefaultModelID
	}
	if m.APIKeyEnv == "" {
		m.APIKeyEnv = EnvAPIKey
	}
	if m.TimeoutSeconds == 0 {
		m.TimeoutSeconds = 15
	}
	if m.MaxResponseBytes == 0 {
		m.MaxResponseBytes = 1 << 20
	}
	if m.SeqLen == 0 {
		m.SeqLen = 128
	}

	o := &cfg.OCR
	if o.Backend == "" {
		o.Backend = "tesseract"
		if o.URL != "" {
			o.Backend = "http"
		}
	}
	if o.TimeoutSeconds == 0 {
		o.TimeoutSeconds = 30
	}
	if len(o.Languages) == 0 {
		o.Languages = []string{"eng"}
	}

	c := &cfg.Chat
	if c.Provider == "" {
		c.Provider = "huggingface"
	}
	if c.BaseURL == "" && strings.EqualFold(c.Provider, "huggingface") {
		c.BaseURL = DefaultModelBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultChatModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = EnvAPIKey
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 60
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = 1 << 20
	}
	ct := &c.Citations
	if ct.SearchBaseURL == "" {
		ct.SearchBaseURL = DefaultSearchBaseURL
	}
	if ct.MaxKeywords == 0 {
		ct.MaxKeywords = 6
	}
	if ct.MaxCitations == 0 {
		ct.MaxCitations = 3
	}
	if ct.LookupTimeoutSeconds == 0 {
		ct.LookupTimeoutSeconds = 5
	}

	a := &cfg.Activation
	if a.QueueSize == 0 {
		a.QueueSize = 1000
	}
	if a.Workers == 0 {
		a.Workers = 1
	}
	if a.ShutdownTimeoutSeconds == 0 {
		a.ShutdownTimeoutSeconds = 2
	}

	if s.WriteTimeoutSeconds == 0 {
		s.WriteTimeoutSeconds = ChatBudgetSeconds(*c) + writeTimeoutMarginSeconds
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "finguard"
	}
}

// applyEnv resolves API keys and lets the environment override the model ids
// and OCR endpoint. Setting OCR_SERVICE_URL switches OCR to the HTTP backend.
func applyEnv(cfg *Config, getenv func(string) string) {
	cfg.Model.APIKey = strings.TrimSpace(getenv(cfg.Model.APIKeyEnv))
	cfg.Chat.APIKey = strings.TrimSpace(getenv(cfg.Chat.APIKeyEnv))

	if v := strings.TrimSpace(getenv(EnvPhishModel)); v != "" {
		cfg.Model.ModelID = v
	}
	if v := strings.TrimSpace(getenv(EnvChatModel)); v != "" {
		cfg.Chat.Model = v
	}
	if v := strings.TrimSpace(getenv(EnvOCRURL)); v != "" {
		cfg.OCR.URL = v
		cfg.OCR.Backend = "http"
	}
}
