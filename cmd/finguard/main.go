package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/finguard-ai/finguard/internal/activation"
	"github.com/finguard-ai/finguard/internal/catalog"
	"github.com/finguard-ai/finguard/internal/chat"
	"github.com/finguard-ai/finguard/internal/classify"
	"github.com/finguard-ai/finguard/internal/config"
	"github.com/finguard-ai/finguard/internal/model"
	"github.com/finguard-ai/finguard/internal/ocr"
	"github.com/finguard-ai/finguard/internal/provider"
	"github.com/finguard-ai/finguard/internal/redact"
	"github.com/finguard-ai/finguard/internal/server"
	"github.com/finguard-ai/finguard/internal/telemetry"
)

var version = "dev"

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "finguard.yaml", "Path to FinGuard config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	ctx := context.Background()
	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.Service,
		Version:  version,
	})
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}

	screenshotOCR := buildOCR(cfg.OCR)
	opts := []classify.Option{classify.WithOCR(screenshotOCR)}
	classifier, closeModel := buildModel(cfg.Model)
	if classifier != nil {
		opts = append(opts, classify.WithModel(classifier))
	}
	dispatcher := classify.New(cat, opts...)

	assistant, err := buildAssistant(cfg.Chat)
	if err != nil {
		log.Fatalf("failed to init chat: %v", err)
	}

	var emitter *activation.Emitter
	if cfg.Activation.Enabled {
		emitter, err = buildEmitter(cfg.Activation, tel)
		if err != nil {
			log.Fatalf("failed to init activation: %v", err)
		}
	}

	srv := server.New(cfg, server.Deps{
		Dispatcher: dispatcher,
		OCR:        ocr.NewLocal(ocr.NewTesseract(cfg.OCR.Languages...)),
		Assistant:  assistant,
		Emitter:    emitter,
		Telemetry:  tel,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case s := <-sig:
		redact.Logf("received %s, shutting down", s)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		redact.Logf("server shutdown: %v", err)
	}
	if emitter != nil {
		emitter.Close(shutdownCtx)
	}
	if closeModel != nil {
		closeModel()
	}
	tel.Shutdown(shutdownCtx)
}

// buildModel returns nil when classification should rely on rules alone.
func buildModel(mc config.ModelConfig) (model.Classifier, func()) {
	switch strings.ToLower(strings.TrimSpace(mc.Backend)) {
	case "none":
		redact.Logf("model: disabled, using rule-based analysis")
		return nil, nil
	case "onnx":
		m, err := model.LoadONNX(mc.BundleDir, mc.SeqLen)
		if err != nil {
			redact.Logf("model: onnx bundle %s unavailable, using rule-based analysis: %v", mc.BundleDir, err)
			return nil, nil
		}
		redact.Logf("model: onnx bundle loaded from %s", mc.BundleDir)
		return m, func() { _ = m.Close() }
	default:
		c := model.NewHTTP(model.HTTPOptions{
			BaseURL:          mc.BaseURL,
			ModelID:          mc.ModelID,
			APIKey:           mc.APIKey,
			Timeout:          time.Duration(mc.TimeoutSeconds) * time.Second,
			MaxResponseBytes: mc.MaxResponseBytes,
		})
		if !c.Available() {
			redact.Logf("model: no usable %s, URL checks will use rule-based analysis", mc.APIKeyEnv)
		}
		return c, nil
	}
}

func buildOCR(oc config.OCRConfig) ocr.Extractor {
	if strings.EqualFold(strings.TrimSpace(oc.Backend), "http") {
		return ocr.NewHTTP(oc.URL, time.Duration(oc.TimeoutSeconds)*time.Second)
	}
	return ocr.NewLocal(ocr.NewTesseract(oc.Languages...))
}

func buildAssistant(cc config.ChatConfig) (*chat.Assistant, error) {
	p, err := provider.New(provider.Options{
		Type:             cc.Provider,
		BaseURL:          cc.BaseURL,
		APIKey:           cc.APIKey,
		Timeout:          time.Duration(cc.TimeoutSeconds) * time.Second,
		MaxResponseBytes: cc.MaxResponseBytes,
	})
	if err != nil {
		return nil, err
	}
	ct := cc.Citations
	var searcher chat.Searcher
	if ct.On() {
		searcher = chat.NewWikipedia(ct.SearchBaseURL, time.Duration(ct.LookupTimeoutSeconds)*time.Second)
	}
	return chat.New(p, searcher, chat.Options{
		Model:            cc.Model,
		CitationsEnabled: ct.On(),
		MaxKeywords:      ct.MaxKeywords,
		MaxCitations:     ct.MaxCitations,
		LookupTimeout:    time.Duration(ct.LookupTimeoutSeconds) * time.Second,
	}), nil
}

func buildEmitter(ac config.ActivationConfig, tel *telemetry.Provider) (*activation.Emitter, error) {
	var sinks []activation.Sink
	for _, sc := range ac.Sinks {
		switch strings.ToLower(strings.TrimSpace(sc.Type)) {
		case "stdout":
			sinks = append(sinks, activation.NewStdoutSink())
		case "webhook":
			s, err := activation.NewWebhookSink(sc.URL, sc.Headers, time.Duration(sc.TimeoutSeconds)*time.Second)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		default:
			return nil, errors.New("unknown activation sink type " + sc.Type)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, activation.NewStdoutSink())
	}
	return activation.NewEmitter(activation.EmitterConfig{
		QueueSize:       ac.QueueSize,
		Workers:         ac.Workers,
		ShutdownTimeout: time.Duration(ac.ShutdownTimeoutSeconds) * time.Second,
		OnDeliver:       tel.RecordActivationDelivery,
	}, sinks), nil
}
