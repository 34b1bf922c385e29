package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/api"
	"github.com/section-speed/backend/internal/config"
	"github.com/section-speed/backend/internal/logging"
	"github.com/section-speed/backend/internal/session"
	"github.com/section-speed/backend/internal/storage"

	_ "time/tzdata"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	logging.Setup(os.Stdout, "")

	configPath := flag.String("config", "", "path to the XML configuration file")
	flag.Parse()

	if *configPath == "" {
		// Default to a config next to the executable
		exePath, err := os.Executable()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get executable path")
		}
		*configPath = filepath.Join(filepath.Dir(exePath), "SectionSpeed.config.xml")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}
	logging.Setup(os.Stdout, cfg.Advanced.LogLevel)

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create directories")
	}

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir(), cfg.MaxUploadBytes())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	sessionMgr := session.NewManager(fileStore, session.Options{
		TempDir:     cfg.Storage.TempDirectory,
		MaxSessions: cfg.Processing.MaxSessions,
		Workers:     cfg.Processing.ExtractWorkers,
	})
	defer sessionMgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go runCleanup(ctx, sessionMgr, cfg.Processing)

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   api.SplitOrigins(cfg.Server.AllowOrigins),
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		BodyLimit:      cfg.Server.BodyLimit,
		RequestTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:      fileStore,
		SessionMgr: sessionMgr,
		Defaults:   cfg.Analysis.AnalysisConfig,
		Version:    Version,
	}))

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info().
		Str("version", Version).
		Str("buildTime", BuildTime).
		Str("config", *configPath).
		Str("listen", fmt.Sprintf("http://%s", cfg.GetServerAddr())).
		Str("dataDir", cfg.Storage.DataDirectory).
		Float64("sectionKm", cfg.Analysis.SectionLengthKm).
		Str("mergePolicy", string(cfg.Analysis.MergePolicy)).
		Msg("Section speed analyzer starting")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func runCleanup(ctx context.Context, sessionMgr *session.Manager, cfg config.ProcessingConfig) {
	interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	maxAge := time.Duration(cfg.SessionTimeoutMinutes) * time.Minute
	if maxAge <= 0 {
		maxAge = session.SessionMaxAge
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessionMgr.CleanupOldSessions(maxAge); n > 0 {
				log.Info().Int("removed", n).Msg("Session cleanup")
			}
		}
	}
}
