package database

import (
	"fmt"
	"time"

	"coursehub/config"
	"coursehub/models"
	"coursehub/utils"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// registeredModels is the full schema. Migrate registers it once at startup.
var registeredModels = []interface{}{
	&models.Student{},
	&models.Course{},
	&models.Batch{},
	&models.PurchaseRecord{},
	&models.Lesson{},
	&models.ProgressRecord{},
	&models.Enrollment{},
}

// ConnectDb opens the configured database, runs migrations and stores the
// handle in Database.
func ConnectDb() {
	cfg := config.AppConfig

	var dsn string
	switch cfg.DBDriver {
	case "sqlite":
		dsn = cfg.SQLitePath
	default:
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)
	}

	db, err := Open(cfg.DBDriver, dsn)
	if err != nil {
		utils.Log.Fatal("failed to connect to database", "driver", cfg.DBDriver, "error", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		utils.Log.Fatal("failed to get database instance", "error", err)
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(db); err != nil {
		utils.Log.Fatal("migration failed", "error", err)
	}

	Database = DbInstance{Db: db}
	utils.Log.Info("database connected", "driver", cfg.DBDriver)
}

// Open returns a gorm handle for driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	return gorm.Open(dialector, gormCfg)
}

// Migrate performs database migrations
func Migrate(db *gorm.DB) error {
	utils.Log.Info("running migrations")
	if err := db.AutoMigrate(registeredModels...); err != nil {
		return err
	}
	utils.Log.Info("migrations completed")
	return nil
}
