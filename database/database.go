package database

import (
	"fmt"

	"refmart/config"
	"refmart/logger"
	"refmart/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect(cfg *config.DBConfig) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database: ", err)
	}

	DB = db
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			logger.Fatal("failed to auto-migrate database: ", err)
		}
		logger.Info("auto migration completed")
	}
}

// OpenSQLite opens a sqlite database with the same gorm configuration as
// Connect. Package tests run the whole engine against a per-test in-memory
// instance.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.MatrixAccount{},
		&models.MatrixProgress{},
		&models.RegionAssignment{},
		&models.DistributionRecord{},
		&models.CommissionPolicy{},
	)
}

func Set(db *gorm.DB) { DB = db }
