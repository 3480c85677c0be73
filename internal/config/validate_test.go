package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"negative body limit", func(c *Config) { c.Server.MaxRequestBodyBytes = -1 }, "max_request_body_bytes"},
		{"unknown model backend", func(c *Config) { c.Model.Backend = "gpu" }, "model.backend"},
		{"invalid model url", func(c *Config) { c.Model.BaseURL = "::://bad" }, "model.base_url"},
		{"model url blocked private", func(c *Config) { c.Model.BaseURL = "http://127.0.0.1:8081" }, "SSRF"},
		{"model url blocked localhost", func(c *Config) { c.Model.BaseURL = "http://localhost:8081" }, "SSRF"},
		{"onnx without bundle", func(c *Config) { c.Model.Backend = "onnx" }, "bundle_dir"},
		{"zero model timeout", func(c *Config) { c.Model.TimeoutSeconds = -5 }, "model.timeout_seconds"},
		{"unknown ocr backend", func(c *Config) { c.OCR.Backend = "cloud" }, "ocr.backend"},
		{"http ocr without url", func(c *Config) { c.OCR.Backend = "http" }, "ocr.url"},
		{"unknown chat provider", func(c *Config) { c.Chat.Provider = "echo" }, "chat.provider"},
		{"bad search url", func(c *Config) { c.Chat.Citations.SearchBaseURL = "ftp://wiki" }, "search_base_url"},
		{"unknown sink", func(c *Config) { c.Activation.Sinks = []SinkConfig{{Type: "file_jsonl"}} }, "unknown type"},
		{"webhook without url", func(c *Config) { c.Activation.Sinks = []SinkConfig{{Type: "webhook"}} }, "missing url"},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled = true }, "endpoint"},
		{"telemetry bad protocol", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "otel:4317", Protocol: "udp"}
		}, "telemetry.protocol"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			} else if !contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	loopbackOK := Default()
	loopbackOK.Model.BaseURL = "http://127.0.0.1:18080"
	loopbackOK.Model.AllowPrivateNetworks = true
	loopbackOK.Activation.Sinks = []SinkConfig{{Type: "stdout"}, {Type: "webhook", URL: "http://127.0.0.1:9000/hook"}}
	if err := Validate(loopbackOK); err != nil {
		t.Fatalf("expected loopback allowed when allow_private_networks=true, got %v", err)
	}

	disabled := Default()
	disabled.Model.Backend = "none"
	disabled.Model.BaseURL = "::://ignored"
	off := false
	disabled.Chat.Citations.Enabled = &off
	disabled.Chat.Citations.SearchBaseURL = "ftp://ignored"
	if err := Validate(disabled); err != nil {
		t.Fatalf("disabled components should not be validated, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvPhishModel, "")
	t.Setenv(EnvChatModel, "")
	t.Setenv(EnvOCRURL, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr || cfg.Server.MaxRequestBodyBytes != DefaultMaxRequestBodyBytes {
		t.Fatalf("server defaults %+v", cfg.Server)
	}
	if cfg.Model.ModelID != DefaultModelID || cfg.Model.TimeoutSeconds != 15 {
		t.Fatalf("model defaults %+v", cfg.Model)
	}
	if cfg.OCR.Backend != "tesseract" {
		t.Fatalf("ocr backend = %q", cfg.OCR.Backend)
	}
	ct := cfg.Chat.Citations
	if !ct.On() || ct.MaxKeywords != 6 || ct.MaxCitations != 3 || ct.LookupTimeoutSeconds != 5 {
		t.Fatalf("citation defaults %+v", ct)
	}
}

func TestWriteTimeoutCoversChatBudget(t *testing.T) {
	cfg := Default()
	// 60s completion plus 6 lookups of 5s each.
	if got := ChatBudgetSeconds(cfg.Chat); got != 90 {
		t.Fatalf("chat budget = %d", got)
	}
	if cfg.Server.WriteTimeoutSeconds <= ChatBudgetSeconds(cfg.Chat) {
		t.Fatalf("write timeout %ds does not cover chat budget %ds", cfg.Server.WriteTimeoutSeconds, ChatBudgetSeconds(cfg.Chat))
	}

	off := false
	custom := &Config{Chat: ChatConfig{TimeoutSeconds: 10, Citations: CitationsConfig{Enabled: &off}}}
	applyDefaults(custom)
	if custom.Server.WriteTimeoutSeconds != 10+writeTimeoutMarginSeconds {
		t.Fatalf("write timeout = %d", custom.Server.WriteTimeoutSeconds)
	}

	explicit := &Config{Server: ServerConfig{WriteTimeoutSeconds: 30}}
	applyDefaults(explicit)
	if explicit.Server.WriteTimeoutSeconds != 30 {
		t.Fatalf("explicit write timeout overwritten: %d", explicit.Server.WriteTimeoutSeconds)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finguard.yaml")
	yaml := `
server:
  addr: ":9090"
model:
  backend: http
  model_id: acme/from-file
  api_key_env: ACME_KEY
chat:
  provider: openai
  base_url: https://api.openai.com/v1
  model: gpt-4o-mini
  citations:
    enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ACME_KEY", " hf_filekey ")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvPhishModel, "acme/from-env")
	t.Setenv(EnvChatModel, "")
	t.Setenv(EnvOCRURL, "http://ocr.internal:3000/api/ocr")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Model.APIKey != "hf_filekey" {
		t.Fatalf("model api key = %q", cfg.Model.APIKey)
	}
	if cfg.Model.ModelID != "acme/from-env" {
		t.Fatalf("env should override model id, got %q", cfg.Model.ModelID)
	}
	if cfg.Chat.Model != "gpt-4o-mini" || cfg.Chat.Citations.On() {
		t.Fatalf("chat %+v", cfg.Chat)
	}
	if cfg.OCR.Backend != "http" || cfg.OCR.URL != "http://ocr.internal:3000/api/ocr" {
		t.Fatalf("ocr %+v", cfg.OCR)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func contains(s, sub string) bool {
	return s != "" && sub != "" && strings.Contains(s, sub)
}
