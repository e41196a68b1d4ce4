// Package main seeds an administrative account. The accounts API is
// superadmin-gated, so the very first account has to come from outside the
// HTTP surface. Run once against a reachable database:
//
//	SEED_EMAIL=admin@example.org SEED_PASSWORD=... go run ./cmd/seed
//
// SEED_NAME and SEED_ROLE are optional (defaults: "Administrator",
// "superadmin"). Safe to re-run: a duplicate email fails the insert and the
// command exits non-zero without touching the existing account.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/tesfahiwot/portal/internal/auth"
	"github.com/tesfahiwot/portal/internal/config"
	"github.com/tesfahiwot/portal/internal/database"
	"github.com/tesfahiwot/portal/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	if email == "" || password == "" {
		slog.Error("SEED_EMAIL and SEED_PASSWORD are required")
		os.Exit(1)
	}

	name := os.Getenv("SEED_NAME")
	if name == "" {
		name = "Administrator"
	}
	role := os.Getenv("SEED_ROLE")
	if role == "" {
		role = "superadmin"
	}

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	repo := auth.NewAccountRepository(db)
	codec := token.NewCodec(cfg.Auth.SecretKey)
	svc := auth.NewService(repo, codec, nil, cfg.Auth.SessionTTL, cfg.Auth.RememberTTL)

	acct, err := svc.CreateAccount(context.Background(), auth.CreateAccountInput{
		Email:       email,
		DisplayName: name,
		Password:    password,
		Role:        role,
	})
	if err != nil {
		slog.Error("failed to seed account", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("account seeded",
		slog.String("account_id", acct.ID),
		slog.String("email", acct.Email),
		slog.String("role", acct.Role.String()),
	)
}
