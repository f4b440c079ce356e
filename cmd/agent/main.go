/**
 * Extractext Agent - Main Entry Point
 *
 * Privileged daemon of the extraction pipeline.
 *
 * Architecture:
 * - Redis pub/sub transport for the cross-context protocol
 * - Tesseract engine behind a single-flight lifecycle manager
 * - Redis-backed user settings, PostgreSQL-backed extraction statistics
 * - System clipboard writes on behalf of the page context
 */

package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/extractext/extractext/internal/agent"
	"github.com/extractext/extractext/internal/clipboard"
	"github.com/extractext/extractext/internal/config"
	"github.com/extractext/extractext/internal/notify"
	"github.com/extractext/extractext/internal/ocr"
	"github.com/extractext/extractext/internal/protocol"
	"github.com/extractext/extractext/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(".env.extractext"); err != nil {
		log.Printf("Warning: .env.extractext not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Extractext agent starting...")
	log.Printf("Configuration loaded: Redis=%s, Channel=%s, Languages=%s",
		cfg.RedisURL, cfg.AgentChannel, cfg.EngineLanguages)

	// Connect the cross-context transport
	transport, err := protocol.NewRedisTransport(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect transport: %v", err)
	}
	defer transport.Close()

	// Settings store shares the Redis instance with the transport
	settings, err := store.NewSettingsStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to open settings store: %v", err)
	}
	defer settings.Close()

	// Statistics persistence is optional; without a database the agent still
	// serves extractions, it just keeps no counters.
	var stats *store.StatsStore
	if cfg.DatabaseURL != "" {
		stats, err = store.NewStatsStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open statistics store: %v", err)
		}
		defer stats.Close()
		log.Printf("Statistics store connected")
	} else {
		log.Printf("DATABASE_URL not set, statistics disabled")
	}

	// OCR engine and orchestrator
	manager := ocr.NewManager(func() (ocr.Engine, error) {
		return ocr.NewGosseractEngine(), nil
	})
	orchestrator := ocr.NewOrchestrator(manager, ocr.OrchestratorConfig{
		Languages:         splitLanguages(cfg.EngineLanguages),
		EnhanceTargetEdge: cfg.EnhanceTargetEdge,
	})

	opts := agent.Options{
		Conn:         protocol.NewConn(cfg.AgentChannel, transport),
		Orchestrator: orchestrator,
		Clipboard:    clipboard.System{},
		Settings:     settings,
		Notifier:     notify.NewLogPresenter(),
	}
	if stats != nil {
		opts.Stats = stats
	}
	service, err := agent.New(opts)
	if err != nil {
		log.Fatalf("Failed to build agent service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := service.Start(ctx); err != nil {
		log.Fatalf("Failed to start agent service: %v", err)
	}
	log.Printf("Agent listening on channel %q", cfg.AgentChannel)

	// Health and statistics HTTP endpoint
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: newRouter(settings, stats),
	}
	go func() {
		log.Printf("HTTP endpoint listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP endpoint failed: %v", err)
		}
	}()

	log.Printf("===========================================")
	log.Printf("Extractext agent is READY")
	log.Printf("===========================================")
	log.Printf("Channel: %s", cfg.AgentChannel)
	log.Printf("Languages: %s", cfg.EngineLanguages)
	log.Printf("Enhance target edge: %dpx", cfg.EnhanceTargetEdge)
	log.Printf("===========================================")
	log.Printf("Waiting for requests...")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping HTTP endpoint: %v", err)
	}

	log.Printf("Stopping agent service...")
	service.Shutdown()
	log.Printf("Shutdown complete")
}

func splitLanguages(list string) []string {
	var langs []string
	for _, lang := range strings.Split(list, "+") {
		if lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}

func newRouter(settings *store.SettingsStore, stats *store.StatsStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]interface{}{"status": "ok"}
		code := http.StatusOK
		if stats != nil {
			if err := stats.Ping(req.Context()); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, status)
	})

	r.Get("/settings", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, settings.Get(req.Context()))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		if stats == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "statistics disabled"})
			return
		}
		snapshot, err := stats.Snapshot(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
