package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/F1veStar3/postboard/config"
	"github.com/F1veStar3/postboard/internal/domain/entity"
	repo "github.com/F1veStar3/postboard/internal/domain/repository"
	pginfra "github.com/F1veStar3/postboard/internal/infrastructure/postgres"
	"github.com/F1veStar3/postboard/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	users := pginfra.NewUserRepository(pool)
	posts := pginfra.NewPostRepository(pool)
	hasher := helpers.NewPasswordHasher(cfg.BcryptCost)

	email := "demo@postboard.local"
	password := "password123"

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		hash, hErr := hasher.Hash(password)
		if hErr != nil {
			log.Fatalf("failed to hash password: %v", hErr)
		}
		u = &entity.User{Email: email, PasswordHash: hash}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("failed to seed user: %v", err)
		}
		fmt.Printf("seeded user: id=%d email=%s password=%s\n", u.ID, email, password)
	case err != nil:
		log.Fatalf("failed to look up demo user: %v", err)
	default:
		fmt.Printf("demo user already present: id=%d email=%s\n", u.ID, email)
	}

	existing, err := posts.ListByUser(ctx, u.ID)
	if err != nil {
		log.Fatalf("failed to list posts: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("demo user already has %d posts\n", len(existing))
		return
	}
	for _, content := range []string{
		"Hello from the seed script.",
		"Posts are private to their author.",
		"Delete me with DELETE /api/posts/:id.",
	} {
		p := &entity.Post{UserID: u.ID, Content: content}
		if err := posts.Create(ctx, p); err != nil {
			log.Fatalf("failed to seed post: %v", err)
		}
		fmt.Printf("seeded post: id=%d\n", p.ID)
	}
}
