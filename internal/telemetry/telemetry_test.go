package telemetry

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSafeAttributesFiltersUserContent(t *testing.T) {
	kvs := map[string]interface{}{
		"url":              "http://paypa1.tk/login",
		"email_body":       "drop",
		"screenshot":       "data:image/png;base64,AAAA",
		"api_key":          "hf_123",
		"authorization":    "secret",
		"finguard.channel": "url",
		"finguard.domain":  "paypa1.tk",
		"long_label":       string(make([]byte, 600)),
		"indicators":       3,
		"model_used":       true,
	}

	attrs := SafeAttributes(kvs)
	got := map[string]bool{}
	for _, a := range attrs {
		got[string(a.Key)] = true
	}
	for _, k := range []string{"url", "email_body", "screenshot", "api_key", "authorization", "long_label"} {
		if got[k] {
			t.Fatalf("unexpected unsafe attribute %s", k)
		}
	}
	for _, k := range []string{"finguard.channel", "finguard.domain", "indicators", "model_used"} {
		if !got[k] {
			t.Fatalf("expected attribute %s to be kept", k)
		}
	}
}

func TestNoopProviderIsSafe(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("noop provider: %v", err)
	}
	p.RecordClassification(context.Background(), "url", "rules", "Safe", "", 1)
	p.RecordChat(context.Background(), "huggingface", false, 1, 2)
	_, span := p.StartSpan(context.Background(), "test", map[string]interface{}{"url": "x"})
	span.End()
	p.Shutdown(context.Background())

	var nilProvider *Provider
	nilProvider.RecordOCR(context.Background(), true, 1)
	nilProvider.RecordActivationDelivery("stdout", nil)
}

func TestUnsupportedProtocol(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Enabled: true, Protocol: "udp"}); err == nil {
		t.Fatalf("expected error for unsupported protocol")
	}
}

func TestRecordClassificationCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	p := NewWithMeter(mp.Meter("test"))
	ctx := context.Background()
	p.RecordClassification(ctx, "url", "model", "Unsafe", "classified", 12)
	p.RecordClassification(ctx, "email", "rules", "Safe", "", 3)
	p.RecordActivationDelivery("webhook:https://collector.example/hook", errors.New("status 500"))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
					if m.Name == "finguard_activation_deliveries_total" {
						if v, _ := dp.Attributes.Value("finguard.sink"); v.AsString() != "webhook" {
							t.Fatalf("sink label = %q", v.AsString())
						}
					}
				}
			}
		}
	}
	if sums["finguard_classifications_total"] != 2 {
		t.Fatalf("classifications = %d", sums["finguard_classifications_total"])
	}
	if sums["finguard_model_outcomes_total"] != 1 {
		t.Fatalf("model outcomes = %d", sums["finguard_model_outcomes_total"])
	}
	if sums["finguard_activation_deliveries_total"] != 1 {
		t.Fatalf("deliveries = %d", sums["finguard_activation_deliveries_total"])
	}
}
