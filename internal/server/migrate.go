package server

import (
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
)

// Migrate applies database migrations from the given directory.
// dir example: file://migrations
func Migrate(dir string, dsn string, direction string, steps int) error {
	if dir == "" {
		dir = "file://migrations"
	}
	if dsn == "" {
		var err error
		dsn, err = envDSN()
		if err != nil {
			return err
		}
	}

	m, err := migrate.New(dir, dsn)
	if err != nil {
		return err
	}
	switch direction {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	default:
		return fmt.Errorf("unknown direction: %s", direction)
	}
}

// envDSN resolves a Postgres DSN from the environment when no config is
// loaded: DATABASE_URL wins, otherwise the MEDIPLAN_STORAGE_POSTGRES_*
// variables the config layer reads.
func envDSN() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	pg := config.PostgresConfig{
		URL:      os.Getenv("MEDIPLAN_STORAGE_POSTGRES_URL"),
		Host:     os.Getenv("MEDIPLAN_STORAGE_POSTGRES_HOST"),
		Port:     os.Getenv("MEDIPLAN_STORAGE_POSTGRES_PORT"),
		User:     os.Getenv("MEDIPLAN_STORAGE_POSTGRES_USER"),
		Password: os.Getenv("MEDIPLAN_STORAGE_POSTGRES_PASSWORD"),
		DBName:   os.Getenv("MEDIPLAN_STORAGE_POSTGRES_DBNAME"),
		SSLMode:  os.Getenv("MEDIPLAN_STORAGE_POSTGRES_SSLMODE"),
	}
	return pg.DSN()
}
