package database

import (
	"log"
	"time"

	"academictracker/internal/config"
	"academictracker/internal/model"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the record store, in migration order.
var Models = []interface{}{&model.Student{}, &model.Subject{}, &model.Grade{}}

// InitDB opens the configured database and migrates the schema, exiting on failure.
func InitDB(cfg *config.Config) *gorm.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize the database:", err)
	}
	return db
}

func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err = OpenSQLite(cfg.SQLitePath, gormCfg)
	default:
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN()), gormCfg)
		if err == nil {
			err = tunePool(db, 25, 5)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "connect to the database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced. SQLite allows a
// single writer, and an in-memory database lives only as long as its
// connection, so the pool is pinned to one connection.
func OpenSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)}
	}
	db, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, err
	}
	if err := tunePool(db, 1, 1); err != nil {
		return nil, err
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, errors.Wrap(err, "enable sqlite foreign keys")
	}
	return db, nil
}

// Migrate auto-migrates the Student, Subject and Grade tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return errors.Wrap(err, "auto-migrate the database")
	}
	return nil
}

func tunePool(db *gorm.DB, maxOpen, maxIdle int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if maxOpen > 1 {
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return nil
}
