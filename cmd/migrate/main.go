package main

import (
	"database/sql"
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hackgods/dental-clinic-booking/internal/config"
	"github.com/hackgods/dental-clinic-booking/internal/logging"
	appmigrations "github.com/hackgods/dental-clinic-booking/migrations"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger := logging.New(cfg.LogLevel).WithComponent("migrate")

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		logger.WithError(err).Fatal("open db")
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("ping db")
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.WithError(err).Fatal("db driver")
	}

	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		logger.WithError(err).Fatal("source driver")
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		logger.WithError(err).Fatal("create migrator")
	}
	defer func() { _, _ = m.Close() }()

	// migrate force <version>
	if len(os.Args) >= 3 && os.Args[1] == "force" {
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			logger.WithError(err).Fatal("invalid version")
		}
		if err := m.Force(version); err != nil {
			logger.WithError(err).Fatal("force version")
		}
		logger.WithField("version", version).Info("forced migration version")
		return
	}

	if len(os.Args) >= 2 && os.Args[1] == "down" {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.WithError(err).Fatal("migrate down")
		}
		logger.Info("migrations rolled back")
		return
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.WithError(err).Fatal("migrate up")
	}

	version, dirty, _ := m.Version()
	logger.WithField("version", version).WithField("dirty", dirty).Info("migrations complete")
}
