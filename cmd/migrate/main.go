// Command migrate applies the schema migrations against the configured
// database. Supports stepped up/down runs and printing the current version.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cory-johannsen/dungeonmud/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("source", "file://migrations", "migration source URL")
	direction := flag.String("direction", "up", "up, down, or version")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	m, err := migrate.New(*source, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "version":
		report(m, "current")
		return
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
		log.Fatalf("invalid direction %q: must be 'up', 'down', or 'version'", *direction)
	}

	if err == migrate.ErrNoChange {
		report(m, "no change")
		return
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	report(m, *direction)
}

func report(m *migrate.Migrate, what string) {
	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		fmt.Fprintf(os.Stdout, "%s: no migrations applied\n", what)
		return
	}
	if err != nil {
		log.Fatalf("reading version: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s: version=%d dirty=%v\n", what, version, dirty)
}
