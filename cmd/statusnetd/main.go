// Command statusnetd is the StatusNet dashboard daemon. It keeps the device,
// log and system status views of the monitoring backend fresh, falls back to
// demonstration data when the backend is unreachable, and serves the
// dashboard pages as a JSON API.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/api"
	"statusnet/internal/client"
	"statusnet/internal/config"
	"statusnet/internal/database"
	"statusnet/internal/logging"
	"statusnet/internal/maintenance"
	"statusnet/internal/mockdata"
	"statusnet/internal/models"
	"statusnet/internal/notify"
	"statusnet/internal/poller"
	"statusnet/internal/store"
)

// Global variables for command line flags
var (
	logLevelFlag    string
	envFileFlag     string
	writeConfigFlag string
)

// parseFlags parses command line flags and returns the config path
func parseFlags() string {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error), overrides the configuration")
	flag.StringVar(&envFileFlag, "env-file", ".env", "Path to an optional .env file")
	flag.StringVar(&writeConfigFlag, "write-config", "", "Write the effective configuration to this path and exit")
	flag.Parse()
	return *configPath
}

// app holds every long lived component of the daemon
type app struct {
	cfg      *config.Config
	db       *database.DB
	client   *client.Client
	devices  *poller.Devices
	logs     *poller.Logs
	system   *poller.System
	settings *api.SettingsHandler
	maint    *maintenance.Scheduler
	handler  http.Handler
}

// newApp wires the components from cfg over an open database
func newApp(cfg *config.Config, db *database.DB) (*app, error) {
	settings, found, err := db.LoadSettings(cfg.Settings())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if theme, err := db.LoadTheme(); err == nil && theme != "" {
		settings.Theme = theme
	}
	log.Info().
		Bool("stored", found).
		Str("apiUrl", settings.APIURL).
		Bool("useMock", settings.UseMock).
		Int64("pollInterval", settings.PollInterval).
		Msg("Settings loaded")

	var gen *mockdata.Generator
	if cfg.Mock.Seed != 0 {
		gen = mockdata.New(mockdata.DefaultFixtures(), rand.New(rand.NewSource(cfg.Mock.Seed)))
	}
	c := client.New(client.Options{
		BaseURL:        settings.APIURL,
		UseMock:        settings.UseMock,
		FallbackToMock: cfg.Backend.FallbackToMock,
		Timeout:        cfg.GetBackendTimeout(),
		CheckRate:      cfg.Backend.CheckRate,
		CheckBurst:     cfg.Backend.CheckBurst,
		Generator:      gen,
	})
	c.Mock().SetLatency(cfg.GetMockLatency())

	st := store.NewDevices()
	notes := notify.NewCenter(0)

	devices := poller.NewDevices(c, st, db, poller.Options{
		Interval:    settings.PollDuration(),
		AutoRefresh: settings.AutoRefresh,
		InitialLoad: true,
		Notifier:    notes,
	})
	logs := poller.NewLogs(c, 0, cfg.Polling.LogLimit, db, poller.Options{
		Interval:    settings.PollDuration(),
		AutoRefresh: settings.AutoRefresh,
		InitialLoad: true,
		Notifier:    notes,
	})
	overview := mockdata.Default().Generate(time.Now()).Stats.Overview
	demo := models.DeviceSummary{
		Total:   overview.TotalDevices,
		Online:  overview.OnlineDevices,
		Offline: overview.OfflineDevices,
		Slow:    overview.SlowDevices,
	}
	system := poller.NewSystem(c, demo, poller.Options{
		Interval:    cfg.GetSystemInterval(),
		AutoRefresh: true,
		InitialLoad: true,
		Notifier:    notes,
	})

	// show the last known state until the first load completes
	if cached, err := db.LoadDevices(); err == nil && len(cached) > 0 {
		devices.Warm(cached)
	}
	if cached, err := db.LoadLogs(); err == nil && len(cached) > 0 {
		logs.Warm(cached)
	}

	settingsHandler := api.NewSettingsHandler(db, notes, cfg.Settings(), settings)

	maint := maintenance.New(db, func() int { return settingsHandler.Current().DataRetention }, maintenance.Options{
		Schedule:       cfg.Maintenance.Schedule,
		CleanupOldData: cfg.Maintenance.CleanupOldData,
		Optimize:       cfg.Maintenance.DatabaseOptimize,
	})

	router := mux.NewRouter()
	api.NewDashboardHandler(system, devices, logs, st, c).RegisterRoutes(router)
	api.NewDeviceHandler(devices, logs, notes).RegisterRoutes(router)
	api.NewLogHandler(logs, st, c, notes).RegisterRoutes(router)
	api.NewStatusHandler(system, c, notes).RegisterRoutes(router)
	settingsHandler.RegisterRoutes(router)
	api.NewStorageHandler(db, maint, c, notes, devices, logs).RegisterRoutes(router)
	api.NewNotificationHandler(notes).RegisterRoutes(router)
	api.NewReferenceHandler().RegisterRoutes(router)

	corsMiddleware := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	return &app{
		cfg:      cfg,
		db:       db,
		client:   c,
		devices:  devices,
		logs:     logs,
		system:   system,
		settings: settingsHandler,
		maint:    maint,
		handler:  api.Middleware(corsMiddleware(router)),
	}, nil
}

// reloadConfig reads the configuration file and the environment again. The
// log level applies at once, other values on the next start.
func reloadConfig(cfg *config.Config) error {
	if err := cfg.Reload(); err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	level := cfg.GetLogLevel()
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	log.Info().Str("level", logging.SetLevel(level).String()).Msg("Configuration reloaded")
	return nil
}

// start launches the pollers and the maintenance schedule
func (a *app) start(ctx context.Context) error {
	a.system.Start(ctx)
	a.devices.Start(ctx)
	a.logs.Start(ctx)

	if err := a.maint.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}
	if next, ok := a.maint.Next(); ok {
		log.Info().Time("next", next).Msg("Maintenance scheduled")
	}
	return nil
}

// stop ends the pollers and the maintenance schedule
func (a *app) stop() {
	a.maint.Stop()
	a.logs.Stop()
	a.devices.Stop()
	a.system.Stop()
}

func main() {
	// Parse command line flags
	configPath := parseFlags()

	// Bootstrap logging until the configuration is known
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.LoadDotEnv(envFileFlag); err != nil {
		log.Warn().Err(err).Msg("Ignoring environment file")
	}

	// Load configuration
	cfg := config.GetConfig()
	if err := cfg.LoadConfig(configPath); err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("Using default configuration")
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal().Err(err).Msg("Invalid environment")
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}

	if writeConfigFlag != "" {
		if err := cfg.SaveConfig(writeConfigFlag); err != nil {
			log.Fatal().Err(err).Msg("Failed to write configuration")
		}
		log.Info().Str("path", writeConfigFlag).Msg("Configuration written")
		return
	}

	logFile, err := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer logFile.Close()

	log.Info().Msg("Starting StatusNet dashboard daemon")

	// Initialize database
	log.Info().Str("path", cfg.Database.Path).Msg("Initializing database")
	db, err := database.Open(cfg.Database.Path, database.Options{
		JournalMode:     cfg.Database.JournalMode,
		SynchronousMode: cfg.Database.SynchronousMode,
		MaxConnections:  cfg.Database.MaxConnections,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	a, err := newApp(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start dashboard")
	}

	// Set up HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for termination signal, reloading the configuration on SIGHUP
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range signalChan {
		if sig == syscall.SIGHUP {
			if err := reloadConfig(cfg); err != nil {
				log.Error().Err(err).Msg("Configuration reload failed, keeping the current one")
			}
			continue
		}
		log.Info().Str("signal", sig.String()).Msg("Received termination signal")
		break
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("Shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Stopping pollers")
	cancel()
	a.stop()

	if a.settings.RestartRequired() {
		log.Info().Msg("Saved settings differ from the running ones and apply on next start")
	}

	// Optimize database before exit
	log.Info().Msg("Optimizing database before exit")
	if err := db.OptimizeDatabase(); err != nil {
		log.Error().Err(err).Msg("Database optimization failed")
	}

	log.Info().Msg("StatusNet has been shut down gracefully")
}
