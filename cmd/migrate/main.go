package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/logger"
	"github.com/Rrens/rag-tutor/internal/repository/postgres"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if _, err := logger.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Driver != "" && cfg.Database.Driver != "postgres" {
		log.Info().Str("driver", cfg.Database.Driver).Msg("Nothing to migrate, schema is created on open")
		return
	}

	log.Info().Str("host", cfg.Database.Host).Int("port", cfg.Database.Port).Msg("Connecting to database")

	if *down > 0 {
		err = postgres.RollbackMigrations(cfg.Database.DSN(), cfg.Database.Migrations, *down)
	} else {
		err = postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.Migrations)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
