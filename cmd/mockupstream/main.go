package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finguard-ai/finguard/internal/mockupstream"
)

func main() {
	addr := flag.String("addr", "", "listen address (defaults to 127.0.0.1:$MOCK_UPSTREAM_PORT or 127.0.0.1:18080)")
	flag.Parse()

	shutdown, baseURL, err := mockupstream.Start(*addr)
	if err != nil {
		log.Fatalf("mock upstream: %v", err)
	}
	log.Printf("point model.base_url and chat.base_url at %s, ocr.url at %s/api/ocr", baseURL, baseURL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
