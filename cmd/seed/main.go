package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-volunteering/internal/config"
	"ms-volunteering/internal/database"
	"ms-volunteering/internal/database/migrations"
	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/seeds"
	userdb "ms-volunteering/internal/users/db"
	userservice "ms-volunteering/internal/users/service"
)

// Rebuilds the schema and loads the sample users and events.
func main() {
	keep := flag.Bool("keep", false, "keep existing tables and only add missing sample users")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := logger.NewLogger(logger.Options{Level: cfg.Log.Level})
	defer logger.Close()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	if err := rebuildSchema(ctx, cfg.Database.Driver, db, !*keep, logger); err != nil {
		logger.Fatal("SEED", err.Error())
	}

	logger.Info("SEED", "Seeding sample data...")
	userService := userservice.NewUserService(&userdb.DB{Bun: db}, logger)
	created, err := seeds.Run(ctx, userService, time.Now(), logger)
	if err != nil {
		logger.Fatal("SEED", err.Error())
	}

	logger.Info("SEED", fmt.Sprintf("✅ Done. %d users created.", created))
}

// rebuildSchema drops (when asked) and recreates the tables. Postgres goes
// through the migrations so that their version table stays in step.
func rebuildSchema(ctx context.Context, driver string, db *bun.DB, drop bool, logger *logger.Logger) error {
	if driver == database.DriverSQLite {
		if drop {
			logger.Info("SEED", "Dropping tables...")
			if err := database.DropSchema(ctx, db); err != nil {
				return err
			}
		}
		logger.Info("SEED", "Creating tables...")
		return database.CreateSchema(ctx, db)
	}

	runner := migrations.NewRunner(db, logger)
	defer runner.Close()
	if drop {
		logger.Info("SEED", "Rolling back migrations...")
		if err := runner.MigrateDown(); err != nil {
			return err
		}
	}
	logger.Info("SEED", "Applying migrations...")
	return runner.MigrateUp()
}
