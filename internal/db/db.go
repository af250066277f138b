package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devwebtn/facturation/internal/models"
)

var passwordRe = regexp.MustCompile(`(password=)([^\s]+)`)

// ConnectAndMigrate opens the database named by dsn and brings the schema
// up to date. Postgres DSNs go through golang-migrate when MIGRATIONS=1;
// everything else (and the dev default) uses AutoMigrate. sqlite is picked
// for file:/:memory: DSNs, which is also what the tests use.
func ConnectAndMigrate(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = open(dsn, cfg)
		if err == nil {
			break
		}
		log.WithError(err).Warn("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	log.WithField("dsn", passwordRe.ReplaceAllString(dsn, `${1}***`)).Info("database connected")

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, err
		}
	}

	for _, table := range []string{"clients", "quotes", "invoices", "payments"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}

	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(conn, log)
	}
	return conn, nil
}

// AutoMigrate creates/updates every table of the schema. Exported so tests
// can migrate their in-memory databases with the same list.
func AutoMigrate(conn *gorm.DB) error {
	toMigrate := []interface{}{
		&models.Client{}, &models.Quote{}, &models.ProductDetail{},
		&models.Invoice{}, &models.LineItem{}, &models.Payment{},
		&models.HistoryEntry{},
	}
	for _, m := range toMigrate {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func open(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || passwordRe.MatchString(dsn) || strings.Contains(lower, "host=") {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}

// runSQLMigrations executes migrations in ./migrations using the
// golang-migrate file source (postgres only).
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
