package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/finguard-ai/finguard/internal/catalog"
	"github.com/finguard-ai/finguard/internal/classify"
	"github.com/finguard-ai/finguard/internal/config"
	"github.com/finguard-ai/finguard/internal/model"
)

var defaultCorpus = []string{
	"https://www.example.com/",
	"http://192.168.1.1/login",
	"https://secure-paypal.com.verify-account.tk/signin",
	"https://bit.ly/3xYz",
	"https://accounts.google.com/ServiceLogin",
	"http://xn--pypal-4ve.com/",
}

func main() {
	cfgPath := flag.String("config", "", "path to config yaml (optional)")
	n := flag.Int("n", 200, "number of passes over the corpus")
	corpusPath := flag.String("urls", "", "file with one URL per line (defaults to a built-in corpus)")
	useModel := flag.Bool("model", false, "include the configured onnx model instead of rules only")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	var opts []classify.Option
	backend := "rules"
	if *useModel {
		m, err := model.LoadONNX(cfg.Model.BundleDir, cfg.Model.SeqLen)
		if err != nil {
			log.Fatalf("load onnx model: %v", err)
		}
		defer m.Close()
		opts = append(opts, classify.WithModel(m))
		backend = "onnx"
	}
	d := classify.New(cat, opts...)

	corpus := defaultCorpus
	if *corpusPath != "" {
		corpus, err = readCorpus(*corpusPath)
		if err != nil {
			log.Fatalf("read corpus: %v", err)
		}
	}
	if len(corpus) == 0 {
		log.Fatalf("corpus is empty")
	}

	ctx := context.Background()
	// Warmup
	for _, u := range corpus {
		d.Classify(ctx, classify.Input{URL: u})
	}

	if *n <= 0 {
		*n = 1
	}

	durations := make([]time.Duration, 0, *n*len(corpus))
	unsafe := 0
	for i := 0; i < *n; i++ {
		for _, u := range corpus {
			start := time.Now()
			dec := d.Classify(ctx, classify.Input{URL: u})
			durations = append(durations, time.Since(start))
			if i == 0 && strings.HasPrefix(dec.Result.Label, "Unsafe") {
				unsafe++
			}
		}
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	avg := float64(total.Microseconds()) / 1000.0 / float64(len(durations))
	p50 := float64(durations[len(durations)/2].Microseconds()) / 1000.0
	p95 := float64(durations[int(float64(len(durations))*0.95)].Microseconds()) / 1000.0

	fmt.Printf("bench: n=%d urls=%d unsafe=%d avg_ms=%.3f p50_ms=%.3f p95_ms=%.3f backend=%s\n",
		len(durations),
		len(corpus),
		unsafe,
		avg,
		p50,
		p95,
		backend,
	)
}

func readCorpus(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
