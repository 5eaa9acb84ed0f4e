package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MerlinD690/dashsac/internal/agentstate"
	"github.com/MerlinD690/dashsac/internal/api"
	"github.com/MerlinD690/dashsac/internal/config"
	"github.com/MerlinD690/dashsac/internal/metrics"
	"github.com/MerlinD690/dashsac/internal/reconcile"
	"github.com/MerlinD690/dashsac/internal/report"
	"github.com/MerlinD690/dashsac/internal/seed"
	"github.com/MerlinD690/dashsac/internal/snapshot"
	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/tomticket"
	"github.com/MerlinD690/dashsac/internal/websocket"
	"github.com/MerlinD690/dashsac/pkg/middleware"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Msg("starting dashsac server")

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create store
	baseStore, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	store := storage.WithNotify(baseStore, log.Logger)

	// Seed the default roster on first boot
	seeded, err := seed.EnsureSeeded(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed agents")
	}
	if seeded > 0 {
		log.Info().Int("agents", seeded).Msg("default roster seeded")
	}

	// Create WebSocket hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	// Create WebSocket handler
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)

	// Create state machine
	machine := agentstate.NewMachine(store, store, log.Logger)

	// Create TomTicket client and reconciliation loop
	ticketClient := tomticket.NewClient(tomticket.Options{
		BaseURL:         cfg.TomTicketBaseURL,
		Token:           cfg.TomTicketToken,
		PageConcurrency: cfg.PageConcurrency,
		BatchDelay:      cfg.BatchDelay,
		PageTimeout:     cfg.PageTimeout,
		SituationFilter: cfg.SituationFilter,
	}, log.Logger)
	syncEngine := reconcile.NewEngine(store, ticketClient, cfg.SyncBumpHandled, log.Logger)
	syncLoop := reconcile.NewLoop(syncEngine, cfg.SyncInterval, cfg.SyncCycleTimeout, cfg.SyncMaxBackoff, log.Logger)
	if cfg.TomTicketToken != "" {
		go syncLoop.Start(ctx)
	} else {
		log.Warn().Msg("TOMTICKET_TOKEN not set, chat reconciliation disabled")
	}

	// Push a fresh snapshot to dashboards after every confirmed change
	publisher := snapshot.NewPublisher(hub, syncLoop, log.Logger)
	store.Subscribe(publisher.OnAgentsChanged)

	// Create report accumulator with optional narrative engine
	var narrative report.NarrativeEngine
	if cfg.AnthropicAPIKey != "" {
		narrative = report.NewAnthropicEngine(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY not set, reports will use computed summaries")
	}
	accumulator := report.NewAccumulator(store, store, store, narrative, cfg.ReportHistory, log.Logger)

	scheduler, err := report.NewScheduler(accumulator, cfg.ReportSchedule, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReportSchedule).Msg("invalid report schedule")
	}
	scheduler.Start()

	// Create HTTP handlers
	rosterHandler := api.NewRosterHandler(store, log.Logger)
	actionsHandler := api.NewActionsHandler(machine, log.Logger)
	syncHandler := api.NewSyncHandler(syncLoop, log.Logger)
	reportsHandler := api.NewReportsHandler(accumulator, store, store, log.Logger)
	adminHandler := api.NewAdminHandler(store, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", rosterHandler.GetAgents)
		r.Get("/agents/next", rosterHandler.GetNextAgent)
		r.Post("/agents/{agentId}/clients", actionsHandler.SetActiveClients)
		r.Post("/agents/{agentId}/availability", actionsHandler.SetAvailability)
		r.Post("/agents/{agentId}/pause", actionsHandler.TogglePause)

		r.Get("/sync/status", syncHandler.GetStatus)
		r.Post("/sync/run", syncHandler.RunNow)

		r.Get("/reports", reportsHandler.List)
		r.Post("/reports/generate", reportsHandler.Generate)
		r.Get("/pauses", reportsHandler.GetPauseLogs)

		r.Post("/admin/reseed", adminHandler.Reseed)
		r.Post("/admin/wipe", adminHandler.Wipe)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop background services
	cancel()
	scheduler.Stop()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"dashsac"}`)
}
