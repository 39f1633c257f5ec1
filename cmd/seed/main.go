package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"surveyengine/internal/config"
	"surveyengine/internal/repository/postgres"
	"surveyengine/internal/repository/postgres/templatestore"
	"surveyengine/internal/seeddata"
	"surveyengine/internal/template"
)

func main() {
	useMemoryDump := flag.Bool("print", false, "print the loaded seed data instead of writing it anywhere")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	templates, hosts, err := seeddata.Load()
	if err != nil {
		log.Fatalf("load embedded seed data: %v", err)
	}

	if *useMemoryDump {
		store := template.NewMemoryStore(templates, hosts)
		ctx := context.Background()
		for _, t := range templates {
			loaded, err := store.GetTemplate(ctx, t.ID)
			if err != nil {
				log.Fatalf("roundtrip template %s: %v", t.ID, err)
			}
			log.Printf("template %s: %d steps, max_turns=%d", loaded.ID, len(loaded.Steps), loaded.MaxTurns)
		}
		return
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("seed requires DATABASE_URL (or --print to just validate the embedded data)")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	store := templatestore.New(pool, tables, logger)

	for _, h := range hosts {
		if err := store.UpsertHost(ctx, h); err != nil {
			log.Fatalf("seed host %s: %v", h.ID, err)
		}
		logger.Info("seeded host", "id", h.ID)
	}

	for _, t := range templates {
		if err := store.UpsertTemplate(ctx, t); err != nil {
			log.Fatalf("seed template %s: %v", t.ID, err)
		}
		logger.Info("seeded template", "id", t.ID, "steps", len(t.Steps))
	}

	logger.Info("seed complete", "templates", len(templates), "hosts", len(hosts))
}
