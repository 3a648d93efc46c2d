package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/auth"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/events"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/farming"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/ingest"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/records"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/logging"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/mirror"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/router"
	"github.com/smartfarm/farm-mgmt/internal/pkg/presentation/api"
	"gopkg.in/yaml.v2"
	"gorm.io/gorm"
)

const serviceName string = "farm-mgmt"

var serviceVersion string = "dev"

// appConfig is the optional YAML side of the configuration: the seed
// device set and alert thresholds. Thresholds are parsed and logged
// only; no evaluation engine runs in this service.
type appConfig struct {
	Devices []database.SeedDevice `yaml:"devices"`
	Alerts  map[string]float64    `yaml:"alerts"`
}

func main() {
	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion)
	logger.Info().Msg("starting up ...")

	cfg := loadAppConfig(logger, env("FARM_CONFIG_FILE", ""))

	db := setupDatabaseOrDie(logger)

	reconciler := database.NewReconciler(db, logger, cfg.Devices)
	messages := reconciler.Reconcile(ctx)
	logger.Info().Int("steps", len(messages)).Msg("database reconciled")

	users := database.NewUserRepository(db)
	plots := database.NewPlotRepository(db)
	devices := database.NewDeviceRepository(db)
	sensors := database.NewSensorRepository(db)
	predictions := database.NewPredictionRepository(db)

	mirrorStore := setupMirror(logger)
	defer mirrorStore.Close()

	publisher := setupEvents(logger)
	defer publisher.Close()

	tokens := auth.NewTokens(
		env("FARM_JWT_SECRET", "dev-secret-change-me"),
		envDuration("FARM_ACCESS_TOKEN_TTL", 30*time.Minute),
		envDuration("FARM_REFRESH_TOKEN_TTL", 7*24*time.Hour),
	)
	authSvc := auth.New(users, tokens)

	farmSvc := farming.New(plots, devices, sensors, predictions, mirrorStore, publisher, logger)
	registry := records.NewRegistry(db, mirrorStore, publisher, logger)

	feed := ingest.NewFeedClient(
		env("FARM_FEED_BASE_URL", "https://api.thingspeak.com"),
		env("FARM_FEED_CHANNEL_ID", ""),
		env("FARM_FEED_READ_KEY", ""),
		envInt("FARM_FEED_RESULTS", 1000),
	)
	importer := ingest.NewImporter(feed, sensors, mirrorStore, envInt("FARM_FEED_PLOT_ID", 1), logger)

	watchdog := ingest.NewWatchdog(importer, envDuration("FARM_FEED_POLL_INTERVAL", 5*time.Minute), logger)
	if env("FARM_FEED_CHANNEL_ID", "") != "" {
		watchdog.Start(ctx)
		defer watchdog.Stop(ctx)
	}

	origins := strings.Split(env("FARM_CORS_ALLOWED_ORIGINS", "*"), ",")
	r := router.New(serviceName, origins, logger)
	api.RegisterHandlers(logger, r, farmSvc, authSvc, registry, reconciler, importer)

	port := env("SERVICE_PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Msg("listening for incoming connections")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start request router")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down ...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupDatabaseOrDie(logger zerolog.Logger) *gorm.DB {
	var connect database.ConnectorFunc

	if env("FARM_DB_HOST", "") == "" {
		logger.Info().Msg("no database host configured, using in-memory database")
		connect = database.NewSQLiteConnector()
	} else {
		connect = database.NewPostgreSQLConnector(logger, database.ConnectorConfig{
			Host:     env("FARM_DB_HOST", ""),
			Port:     env("FARM_DB_PORT", "5432"),
			Username: env("FARM_DB_USER", "postgres"),
			DbName:   env("FARM_DB_NAME", "farm"),
			Password: env("FARM_DB_PASSWORD", ""),
			SslMode:  env("FARM_DB_SSLMODE", "disable"),
		})
	}

	db, err := connect()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	return db
}

func setupMirror(logger zerolog.Logger) mirror.Store {
	dataDir := env("FARM_MIRROR_DATA_DIR", "")
	if dataDir == "" {
		logger.Info().Msg("no mirror data directory configured, mirroring disabled")
		return mirror.Disabled()
	}

	store, err := mirror.NewBadger(dataDir, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open mirror store, mirroring disabled")
		return mirror.Disabled()
	}

	return store
}

func setupEvents(logger zerolog.Logger) events.Publisher {
	url := env("FARM_AMQP_URL", "")
	if url == "" {
		logger.Info().Msg("no broker configured, event publishing disabled")
		return events.Noop()
	}

	publisher, err := events.NewAMQPPublisher(url, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to broker, event publishing disabled")
		return events.Noop()
	}

	return publisher
}

func loadAppConfig(logger zerolog.Logger, path string) appConfig {
	cfg := appConfig{}

	if path == "" {
		return cfg
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to read configuration file")
		return cfg
	}

	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to parse configuration file")
		return appConfig{}
	}

	if len(cfg.Alerts) > 0 {
		logger.Info().Int("thresholds", len(cfg.Alerts)).Msg("alert thresholds loaded")
	}

	return cfg
}

func env(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(env(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(env(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func init() {
	if v := env("SERVICE_VERSION", ""); v != "" {
		serviceVersion = v
	}
}
