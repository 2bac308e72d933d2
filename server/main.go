package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/halverson/ccspend/internal/logscan"
	"github.com/halverson/ccspend/internal/metrics"
	"github.com/halverson/ccspend/internal/store"
	"github.com/halverson/ccspend/server/internal/config"
	"github.com/halverson/ccspend/server/internal/database"
	"github.com/halverson/ccspend/server/internal/handlers"
	"github.com/halverson/ccspend/server/internal/middleware"
	"github.com/halverson/ccspend/server/internal/watcher"
)

func main() {
	// Check for service commands before parsing flags
	var svcCommand string
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "install", "start", "stop", "uninstall", "status", "run":
			svcCommand = args[0]
			args = args[1:]
		}
	}

	fs := flag.NewFlagSet("ccspend-server", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "Path to config file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ccspend-server [command] [options]

Commands:
  (none)      Run the server in the foreground
  install     Install as a background service
  start       Start the background service
  stop        Stop the background service
  uninstall   Remove the background service
  status      Show service status

Options:
`)
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// First run: write the defaults so there is a file to edit
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		if err := config.Save(cfg, *configPath); err != nil {
			log.Printf("Could not write default config: %v", err)
		}
	}

	if svcCommand == "" {
		if err := runServer(cfg); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	runService(svcCommand, cfg, *configPath)
}

// serverProgram implements service.Interface for background operation
type serverProgram struct {
	cfg    *config.Config
	logger service.Logger
}

func (p *serverProgram) Start(svc service.Service) error {
	go func() {
		if err := runServer(p.cfg); err != nil && p.logger != nil {
			p.logger.Error(err)
		}
	}()
	return nil
}

func (p *serverProgram) Stop(svc service.Service) error {
	return nil
}

func runService(command string, cfg *config.Config, configPath string) {
	svcConfig := &service.Config{
		Name:        "ccspend-server",
		DisplayName: "ccspend Server",
		Description: "Serves aggregated Claude Code usage and cost data",
		Arguments:   []string{"run", fmt.Sprintf("--config=%s", configPath)},
	}

	prog := &serverProgram{cfg: cfg}
	s, err := service.New(prog, svcConfig)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	switch command {
	case "install":
		if err := s.Install(); err != nil {
			log.Fatalf("Failed to install service: %v", err)
		}
		if err := s.Start(); err != nil {
			log.Fatalf("Service installed but failed to start: %v", err)
		}
		fmt.Println("Service installed and started.")

	case "start":
		if err := s.Start(); err != nil {
			log.Fatalf("Failed to start service: %v", err)
		}
		fmt.Println("Service started.")

	case "stop":
		if err := s.Stop(); err != nil {
			log.Fatalf("Failed to stop service: %v", err)
		}
		fmt.Println("Service stopped.")

	case "uninstall":
		s.Stop() // ignore error
		if err := s.Uninstall(); err != nil {
			log.Fatalf("Failed to uninstall service: %v", err)
		}
		fmt.Println("Service uninstalled.")

	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Printf("Service status: not installed or error (%v)\n", err)
			return
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service status: running")
		case service.StatusStopped:
			fmt.Println("Service status: stopped")
		default:
			fmt.Println("Service status: unknown")
		}

	case "run":
		// Running under the service manager
		logger, err := s.Logger(nil)
		if err == nil {
			prog.logger = logger
		} else {
			logger = nil
		}
		if err := s.Run(); err != nil {
			logServiceError(logger, err)
		}
	}
}

// logServiceError reports a failure through the service logger when one
// could be obtained, stderr otherwise.
func logServiceError(logger service.Logger, err error) {
	if logger != nil {
		logger.Error(err)
		return
	}
	log.Printf("Service failed: %v", err)
}

func runServer(cfg *config.Config) error {
	logger := setupLogger(cfg)

	// Optional SQLite sink
	var db *database.DB
	if cfg.DatabasePath != "" {
		var err error
		db, err = database.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Str("path", cfg.DatabasePath).Msg("sink database ready")
	}

	collector := metrics.New()
	scanner := logscan.NewScanner(cfg.ClaudeDir, logger)
	st := store.New(scanner.Load, logger, collector)

	h := handlers.New(st, db, logger, cfg.ClaudeDir, cfg.AutoImport, cfg.RetentionDays)
	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst)

	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLogger(logger, collector))
	r.Use(limiter.Limit)

	r.Get("/api/overview", h.Overview)
	r.Get("/api/timeseries", h.Timeseries)
	r.Get("/api/sessions", h.Sessions)
	r.Get("/api/projects", h.Projects)
	r.Get("/api/events", h.Events)
	r.Get("/api/models", h.Models)
	r.Post("/api/refresh", h.Refresh)
	r.Get("/api/settings", h.GetSettings)
	r.Put("/api/settings", h.PutSettings)
	r.Get("/api/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Watch {
		debouncer := handlers.NewRefreshDebouncer(h.RefreshSnapshot, 2*time.Second)
		w := watcher.New(cfg.ClaudeDir, debouncer.Schedule, logger)
		if err := w.Start(); err != nil {
			logger.Warn().Err(err).Msg("file watching disabled")
		} else {
			defer w.Stop()
		}
	}

	logger.Info().Str("addr", cfg.Listen).Str("claude_dir", cfg.ClaudeDir).Msg("starting ccspend-server")
	return http.ListenAndServe(cfg.Listen, r)
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
