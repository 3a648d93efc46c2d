package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConnectorConfig struct {
	Host     string
	Port     string
	Username string
	DbName   string
	Password string
	SslMode  string
}

type ConnectorFunc func() (*gorm.DB, error)

// NewSQLiteConnector returns a connector backed by an in-memory
// database. Used by tests and dev mode.
func NewSQLiteConnector() ConnectorFunc {
	return func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			Logger:          logger.Default.LogMode(logger.Silent),
			CreateBatchSize: 1000,
		})

		if err == nil {
			db.Exec("PRAGMA foreign_keys = ON")
			sqldb, _ := db.DB()
			sqldb.SetMaxOpenConns(1)
		}

		return db, err
	}
}

func NewPostgreSQLConnector(log zerolog.Logger, cfg ConnectorConfig) ConnectorFunc {
	dbURI := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s password=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.DbName, cfg.SslMode, cfg.Password)

	return func() (*gorm.DB, error) {
		sublogger := log.With().Str("host", cfg.Host).Str("database", cfg.DbName).Logger()
		sublogger.Info().Msg("connecting to database host")

		db, err := gorm.Open(postgres.Open(dbURI), &gorm.Config{
			Logger: logger.New(
				&logadapter{logger: sublogger},
				logger.Config{
					SlowThreshold:             time.Second,
					LogLevel:                  logger.Warn,
					IgnoreRecordNotFoundError: true,
					Colorful:                  false,
				},
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		sqldb, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(10)
		sqldb.SetConnMaxLifetime(time.Hour)

		return db, nil
	}
}

// logadapter provides a Printf interface to the gorm logger
// so that we can forward the log data to zerolog
type logadapter struct {
	logger zerolog.Logger
}

func (adapter *logadapter) Printf(format string, args ...interface{}) {
	adapter.logger.Info().Msgf(format, args...)
}
