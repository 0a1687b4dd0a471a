package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"media-filter/internal/database"
	"media-filter/internal/filesystem"
	"media-filter/internal/handlers"
	"media-filter/internal/logging"
	"media-filter/internal/media"
	"media-filter/internal/memory"
	"media-filter/internal/metrics"
	"media-filter/internal/middleware"
	"media-filter/internal/notify"
	"media-filter/internal/session"
	"media-filter/internal/startup"
	"media-filter/internal/transcoder"

	"github.com/gorilla/mux"
)

const (
	sessionSweepInterval = time.Minute
	metricsInterval      = time.Minute
	memoryInterval       = 15 * time.Second
	shutdownTimeout      = 30 * time.Second
)

// services are the long-running components stopped on shutdown.
type services struct {
	server        *http.Server
	metricsServer *http.Server
	transcoder    *transcoder.Transcoder
	sessions      *session.Manager
	collector     *metrics.Collector
	monitor       *memory.Monitor
	stopHub       context.CancelFunc
	db            *database.Database
}

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"uploads":   config.UploadDir,
		"processed": config.OutputDir,
		"database":  config.DatabaseDir,
	}))

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, falling back to Go decoders: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := notify.NewHub(config.AllowedOrigins...)
	go hub.Run(hubCtx)

	startup.LogTranscoderInit(config.ProcessingEnabled)
	trans := transcoder.New(transcoder.Config{
		OutputDir:    config.OutputDir,
		PublicPrefix: "/uploads/",
		Enabled:      config.ProcessingEnabled,
	}, db, hub)

	startup.LogSessionInit(config.Profile, config.SessionTTL)
	sessions := session.NewManager(session.NewRegistry("/api/handles/"), config.Profile, config.SessionTTL)
	sessions.StartJanitor(sessionSweepInterval)

	outputDir := ""
	if config.ProcessingEnabled {
		outputDir = config.OutputDir
	}
	collector := metrics.NewCollector(db, config.DatabasePath, outputDir, metricsInterval)
	collector.Start()

	memMonitor := memory.NewMonitor(memoryInterval)
	memMonitor.Start()

	h := handlers.New(db, trans, sessions, hub, config)

	router := setupRouter(h, hub, config.OutputDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           wrapMiddleware(router, config),
		ReadHeaderTimeout: 15 * time.Second,
		// Uploads and transcodes can take minutes
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(h, config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(&services{
		server:        srv,
		metricsServer: metricsSrv,
		transcoder:    trans,
		sessions:      sessions,
		collector:     collector,
		monitor:       memMonitor,
		stopHub:       stopHub,
		db:            db,
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, hub *notify.Hub, outputDir string) *mux.Router {
	r := mux.NewRouter()

	// Health and version
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// One-shot processing
	api.HandleFunc("/process", h.ProcessUpload).Methods("POST")
	api.HandleFunc("/image/process", h.ProcessImage).Methods("POST")
	api.HandleFunc("/video/process", h.ProcessVideo).Methods("POST")

	// Editing sessions
	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/asset", h.ReplaceAsset).Methods("PUT")
	api.HandleFunc("/sessions/{id}/filters", h.UpdateFilters).Methods("PUT")
	api.HandleFunc("/sessions/{id}/split", h.UpdateSplit).Methods("PUT")
	api.HandleFunc("/sessions/{id}/preview", h.GetPreview).Methods("GET")
	api.HandleFunc("/sessions/{id}/transcode", h.TranscodeSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/export", h.ExportSession).Methods("GET")

	api.HandleFunc("/effect", h.GetEffect).Methods("GET")
	api.HandleFunc("/profile", h.GetProfile).Methods("GET")
	api.HandleFunc("/handles/{token}", h.GetHandle).Methods("GET", "HEAD")
	api.HandleFunc("/uploads", h.ListUploads).Methods("GET")
	api.HandleFunc("/outputs/clear", h.ClearOutputs).Methods("POST")

	// Push channel
	r.HandleFunc("/ws", hub.ServeWS).Methods("GET")

	// Processed files
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(outputDir)))).Methods("GET", "HEAD")

	return r
}

// wrapMiddleware applies metrics, logging and compression, outermost last.
func wrapMiddleware(router http.Handler, config *startup.Config) http.Handler {
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	return middleware.Compression(middleware.DefaultCompressionConfig())(handler)
}

func newMetricsServer(h *handlers.Handlers, port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())
	metricsMux.HandleFunc("/health", h.LivenessCheck)

	return &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func handleShutdown(s *services) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	shutdown(s)
}

func shutdown(s *services) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if s.metricsServer != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping metrics collector")
	s.collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if s.monitor != nil {
		s.monitor.Stop()
	}

	startup.LogShutdownStep("Cleaning up transcoder")
	s.transcoder.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Closing sessions")
	s.sessions.Stop()
	startup.LogShutdownStepComplete("Sessions closed")

	startup.LogShutdownStep("Stopping push channel")
	s.stopHub()
	startup.LogShutdownStepComplete("Push channel stopped")

	startup.LogShutdownStep("Closing database")
	if err := s.db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	media.ShutdownVips()
	startup.LogShutdownComplete()
}
