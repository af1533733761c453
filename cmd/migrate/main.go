package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/jobboard-messaging/internal/bootstrap"
	"github.com/jwalitptl/jobboard-messaging/internal/config"
	"github.com/jwalitptl/jobboard-messaging/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	printOnly := flag.Bool("print", false, "print the schema instead of applying it")
	flag.Parse()

	if *printOnly {
		fmt.Print(postgres.Schema())
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := bootstrap.NewLogger(cfg.Log)

	// Policies and triggers need the elevated credential when one is set.
	dsn := cfg.Secrets.ServiceDatabaseURL
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal(err, "migration failed")
	}
	logger.Info("schema applied", "database", cfg.Database.Name)
}
