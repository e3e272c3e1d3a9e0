// seed inserts development accounts for local testing.
// Idempotent: skips inserts if the dev account (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	accountdomain "asset-console/backend/internal/account/domain"
	accountrepo "asset-console/backend/internal/account/repository"
	"asset-console/backend/internal/config"
	"asset-console/backend/internal/db"
	"asset-console/backend/internal/rank"
	"asset-console/backend/internal/security"
)

const devPassword = "password-dev-only"

var devAccounts = []struct {
	email string
	rank  rank.Rank
}{
	{"dev@example.com", rank.Developer},
	{"admin@example.com", rank.Admin},
	{"moderator@example.com", rank.Moderator},
	{"werknemer@example.com", rank.Werknemer},
	{"gebruiker@example.com", rank.Gebruiker},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	accounts := accountrepo.NewPostgresRepository(conn)
	existing, err := accounts.GetByEmail(ctx, devAccounts[0].email)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Println("seed: dev accounts already present, nothing to do")
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash: %v", err)
	}

	now := time.Now().UTC()
	for _, a := range devAccounts {
		acct := &accountdomain.Account{
			ID:           uuid.New().String(),
			Email:        a.email,
			PasswordHash: hash,
			Rank:         a.rank,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := accounts.Create(ctx, acct); err != nil {
			log.Fatalf("seed: create %s: %v", a.email, err)
		}
		log.Printf("seed: created %s (%s)", a.email, a.rank)
	}
}
