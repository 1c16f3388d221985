package repository

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/models"
)

type Repositories struct {
	ProcessedEmailRepository interfaces.ProcessedEmailRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ProcessedEmailRepository: NewProcessedEmailRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, gormDB *gorm.DB) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = gormDB.AutoMigrate(
		&models.ProcessedEmail{},
	)

	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return errors.Wrap(err, "failed to migrate")
}
