package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/af-corp/aegis-admin/internal/config"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	dbURL := flag.String("db-url", "", "database URL (overrides env and config)")
	configDir := flag.String("config", "configs", "configuration directory holding admin.yaml")
	migrationsPath := flag.String("path", "migrations", "path to migrations directory")
	flag.Parse()

	dsn, err := resolveDSN(*dbURL, *configDir)
	if err != nil {
		log.Fatalf("failed to resolve database URL: %v", err)
	}

	m, err := migrate.New("file://"+*migrationsPath, dsn)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		log.Fatalf("invalid direction: %s (use 'up' or 'down')", *direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	v, dirty, _ := m.Version()
	fmt.Printf("migration %s complete (version: %d, dirty: %v)\n", *direction, v, dirty)
}

// resolveDSN prefers the flag, then AEGIS_ADMIN_DATABASE_URL, then the
// database section of admin.yaml.
func resolveDSN(flagURL, configDir string) (string, error) {
	if flagURL != "" {
		return flagURL, nil
	}
	if v := os.Getenv("AEGIS_ADMIN_DATABASE_URL"); v != "" {
		return v, nil
	}
	cfg := config.DefaultConfig()
	path := filepath.Join(configDir, "admin.yaml")
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadFile(path, cfg); err != nil {
			return "", err
		}
	}
	return cfg.Database.DSN(), nil
}
