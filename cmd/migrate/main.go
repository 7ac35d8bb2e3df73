// Command migrate applies the embedded SQL migrations to the Postgres schema.
package main

import (
	"errors"
	"flag"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	"github.com/atelielash/agenda-api/migrations"
	"github.com/atelielash/agenda-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	var down bool
	flag.BoolVar(&down, "down", false, "roll back one migration instead of applying all")
	flag.Parse()

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	// golang-migrate selects the driver by URL scheme; route postgres URLs
	// through the pgx v5 driver the rest of the service uses.
	if strings.HasPrefix(databaseURL, "postgres://") {
		databaseURL = "pgx5://" + strings.TrimPrefix(databaseURL, "postgres://")
	} else if strings.HasPrefix(databaseURL, "postgresql://") {
		databaseURL = "pgx5://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}

	source, err := iofs.New(migrations.Files, ".")
	if err != nil {
		logger.Error("loading embedded migrations failed", "error", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		logger.Error("migrate init failed", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema already up to date")
			return
		}
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")
}
