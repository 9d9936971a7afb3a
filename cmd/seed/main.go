// Package main loads the YAML tour catalog into PostgreSQL so the service can
// run with TOUR_SOURCE=postgres. Existing tours are updated in place; their
// reviews are left untouched.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/TourGo/internal/catalog"
	"github.com/utafrali/TourGo/internal/config"
	"github.com/utafrali/TourGo/internal/repository"
	"github.com/utafrali/TourGo/internal/repository/postgres"
	"github.com/utafrali/TourGo/internal/repository/postgres/migrations"
	"github.com/utafrali/TourGo/pkg/database"
	"github.com/utafrali/TourGo/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("tour-seed", cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogPath, log)
	if err != nil {
		return err
	}

	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.DBHost
	dbCfg.Port = cfg.DBPort
	dbCfg.User = cfg.DBUser
	dbCfg.Password = cfg.DBPassword
	dbCfg.DBName = cfg.DBName
	dbCfg.SSLMode = cfg.DBSSLMode

	pool, err := database.NewPostgresPoolWithLogger(ctx, &dbCfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	tours, _, err := cat.List(ctx, repository.TourFilter{PerPage: cat.Len()})
	if err != nil {
		return err
	}

	repo := postgres.NewTourRepository(pool)
	var created, updated int
	for _, t := range tours {
		inserted, err := repo.Upsert(ctx, t)
		if err != nil {
			return err
		}
		if inserted {
			created++
		} else {
			updated++
		}
		log.Info("seeded tour",
			slog.String("tour_id", t.ID),
			slog.Bool("created", inserted),
			slog.Int("reviews", len(t.Reviews)),
		)
	}

	log.Info("seed complete",
		slog.String("catalog", cfg.CatalogPath),
		slog.Int("created", created),
		slog.Int("updated", updated),
	)
	return nil
}
