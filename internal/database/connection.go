package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/customeros/maildigest/config"
	mderrors "github.com/customeros/maildigest/internal/errors"
)

var logLevels = map[string]logger.LogLevel{
	"SILENT": logger.Silent,
	"ERROR":  logger.Error,
	"WARN":   logger.Warn,
	"INFO":   logger.Info,
}

func NewConnection(dbConfig *config.DatabaseConfig) (*gorm.DB, error) {
	if err := validateConfig(dbConfig); err != nil {
		return nil, err
	}

	portInt, err := strconv.Atoi(dbConfig.Port)
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ErrValidation, err, "invalid port number")
	}

	db, err := gorm.Open(postgres.Open(BuildDSN(dbConfig, portInt)), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(dbConfig.LogLevel)),
	})
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ErrConnection, err, "failed to connect to postgres")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql db")
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return db, nil
}

func BuildDSN(dbConfig *config.DatabaseConfig, port int) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, port, dbConfig.User, dbConfig.Password, dbConfig.DBName, dbConfig.SSLMode,
	)
}

func gormLogLevel(level string) logger.LogLevel {
	if l, ok := logLevels[strings.ToUpper(level)]; ok {
		return l
	}
	return logger.Warn
}

func validateConfig(cfg *config.DatabaseConfig) error {
	var missing string
	switch {
	case cfg == nil:
		missing = "config"
	case cfg.Host == "":
		missing = "host"
	case cfg.Port == "":
		missing = "port"
	case cfg.User == "":
		missing = "user"
	case cfg.DBName == "":
		missing = "name"
	case cfg.SSLMode == "":
		missing = "SSLMode"
	}
	if missing != "" {
		return mderrors.New(mderrors.ErrValidation, fmt.Sprintf("database %s config is empty", missing))
	}
	return nil
}
