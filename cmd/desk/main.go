package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"visitor-desk/internal/config"
	"visitor-desk/internal/metrics"
	"visitor-desk/internal/registry"
	"visitor-desk/internal/server"
	"visitor-desk/internal/session"
	"visitor-desk/internal/sheets"
	"visitor-desk/internal/store"
	"visitor-desk/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if cfg.InMemoryStore() {
		log.Printf("store: in-memory, registrations are lost on exit")
		st = store.NewMemory()
	} else {
		db, err := store.Open(cfg.StorePath)
		if err != nil {
			log.Fatalf("store: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("store close: %v", err)
			}
		}()
		st = db
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	repo := registry.Open(ctx, st, registry.WithMetrics(metrics.New(reg)))

	auth, err := session.NewCredentialTable(cfg.Credentials()...)
	if err != nil {
		log.Fatalf("credentials: %v", err)
	}

	var exporter tgbot.Exporter
	if cfg.SheetsEnabled() {
		sheetsClient, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID)
		if err != nil {
			log.Fatalf("sheets: %v", err)
		}
		log.Printf("sheets mirror: spreadsheet %s", sheetsClient.SpreadsheetID())
		exporter = sheetsClient
	}

	botApp, err := tgbot.New(cfg, repo, auth, exporter)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	httpSrv := server.New(cfg, repo, reg)

	// Start HTTP server
	go func() {
		log.Printf("HTTP listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Start Telegram
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := botApp.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("bot stopped: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-stopped:
	}
	log.Println("shutting down...")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)
	<-stopped

	log.Println("bye")
}
