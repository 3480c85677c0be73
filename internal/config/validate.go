package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validateServerConfig(cfg.Server); err != nil {
		return err
	}
	if err := validateModelConfig(cfg.Model); err != nil {
		return err
	}
	if err := validateOCRConfig(cfg.OCR); err != nil {
		return err
	}
	if err := validateChatConfig(cfg.Chat); err != nil {
		return err
	}
	if err := validateActivationConfig(cfg.Activation); err != nil {
		return err
	}
	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}
	return nil
}

func validateServerConfig(s ServerConfig) error {
	if strings.TrimSpace(s.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if s.MaxRequestBodyBytes <= 0 {
		return errors.New("server.max_request_body_bytes must be positive")
	}
	for field, v := range map[string]int{
		"read_header_timeout_seconds": s.ReadHeaderTimeoutSeconds,
		"read_timeout_seconds":        s.ReadTimeoutSeconds,
		"write_timeout_seconds":       s.WriteTimeoutSeconds,
		"idle_timeout_seconds":        s.IdleTimeoutSeconds,
	} {
		if v <= 0 {
			return fmt.Errorf("server.%s must be positive", field)
		}
	}
	return nil
}

func validateModelConfig(m ModelConfig) error {
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "none":
		return nil
	case "http":
		if err := validateEndpoint("model.base_url", m.BaseURL, m.AllowPrivateNetworks); err != nil {
			return err
		}
		if strings.TrimSpace(m.ModelID) == "" {
			return errors.New("model.model_id must be set")
		}
	case "onnx":
		if strings.TrimSpace(m.BundleDir) == "" {
			return errors.New("model.bundle_dir must be set for the onnx backend")
		}
		if m.SeqLen <= 0 {
			return errors.New("model.seq_len must be positive")
		}
	default:
		return fmt.Errorf("model.backend must be http, onnx or none, got %q", m.Backend)
	}
	if m.TimeoutSeconds <= 0 {
		return errors.New("model.timeout_seconds must be positive")
	}
	if m.MaxResponseBytes <= 0 {
		return errors.New("model.max_response_bytes must be positive")
	}
	return nil
}

func validateOCRConfig(o OCRConfig) error {
	switch strings.ToLower(strings.TrimSpace(o.Backend)) {
	case "tesseract":
		if len(o.Languages) == 0 {
			return errors.New("ocr.languages must not be empty")
		}
	case "http":
		if err := validateEndpoint("ocr.url", o.URL, o.AllowPrivateNetworks); err != nil {
			return err
		}
	default:
		return fmt.Errorf("ocr.backend must be tesseract or http, got %q", o.Backend)
	}
	if o.TimeoutSeconds <= 0 {
		return errors.New("ocr.timeout_seconds must be positive")
	}
	return nil
}

func validateChatConfig(c ChatConfig) error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "huggingface", "openai":
	default:
		return fmt.Errorf("chat.provider must be huggingface or openai, got %q", c.Provider)
	}
	if c.BaseURL != "" {
		if err := validateEndpoint("chat.base_url", c.BaseURL, c.AllowPrivateNetworks); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("chat.model must be set")
	}
	if c.TimeoutSeconds <= 0 {
		return errors.New("chat.timeout_seconds must be positive")
	}
	if c.MaxResponseBytes <= 0 {
		return errors.New("chat.max_response_bytes must be positive")
	}

	ct := c.Citations
	if !ct.On() {
		return nil
	}
	if err := validateEndpoint("chat.citations.search_base_url", ct.SearchBaseURL, ct.AllowPrivateNetworks); err != nil {
		return err
	}
	if ct.MaxKeywords <= 0 || ct.MaxCitations <= 0 || ct.LookupTimeoutSeconds <= 0 {
		return errors.New("chat.citations limits must be positive")
	}
	return nil
}

func validateActivationConfig(a ActivationConfig) error {
	if a.QueueSize <= 0 || a.Workers <= 0 {
		return errors.New("activation.queue_size and activation.workers must be positive")
	}
	for i, s := range a.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "stdout":
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("activation sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("activation sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("activation sink %d (webhook) url must be http or https", i)
			}
		default:
			return fmt.Errorf("activation sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
	}
	return nil
}

// validateEndpoint requires an absolute http(s) URL and, unless allowed,
// rejects loopback and private hosts.
func validateEndpoint(field, raw string, allowPrivate bool) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is invalid", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be http or https", field)
	}
	if err := blockPrivateHost(u.Host, allowPrivate); err != nil {
		return fmt.Errorf("%s blocked: %w", field, err)
	}
	return nil
}

func blockPrivateHost(hostport string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(strings.TrimSpace(host), "localhost") {
		return errors.New("private network host localhost blocked for SSRF safety")
	}
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("private network IP %s blocked for SSRF safety", ip.String())
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
