package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/storage/postgres"
)

type userJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func main() {
	var (
		databaseURL  string
		usersFile    string
		apiKey       string
		apiKeyUser   string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&usersFile, "users-file", "db/seed/users.json", "path to users JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyUser, "api-key-user", "", "user ID the seeded API key acts as")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or STORE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, usersFile, apiKey, apiKeyUser, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, usersFile, apiKey, apiKeyUser, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	users, err := seedUsers(ctx, pool, usersFile)
	if err != nil {
		return errors.Wrap(err, "seed users")
	}

	if apiKeyUser == "" && len(users) > 0 {
		apiKeyUser = users[0].ID
		slog.Info("no --api-key-user given, binding key to first seeded user", slog.String("user_id", apiKeyUser))
	}
	if apiKeyUser == "" {
		return errors.New("no user to bind the API key to: set --api-key-user or provide a users file")
	}

	if err := seedAPIKey(ctx, pool, apiKey, apiKeyUser, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, usersFile string) ([]userJSON, error) {
	slog.Info("reading users file", slog.String("path", usersFile))

	data, err := os.ReadFile(usersFile)
	if err != nil {
		return nil, errors.Wrap(err, "read users file")
	}

	var users []userJSON
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, errors.Wrap(err, "parse users JSON")
	}

	slog.Info("upserting users", slog.Int("count", len(users)))

	const upsertUser = `
INSERT INTO users (id, name, email)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`

	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUser, u.ID, u.Name, u.Email); err != nil {
			return nil, errors.Wrapf(err, "upsert user %s", u.ID)
		}

		slog.Info("upserted user", slog.String("id", u.ID), slog.String("email", u.Email))
	}

	return users, nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, userID, pepper string) error {
	slog.Info("seeding default API key", slog.String("user_id", userID))

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	const upsertKey = `
INSERT INTO api_keys (id, key_hash, name, user_id, active)
VALUES ($1, $2, $3, $4, true)
ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, user_id = EXCLUDED.user_id, active = true`

	if _, err := pool.Exec(ctx, upsertKey, "default", keyHash, "Default test key", userID); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("user_id", userID))

	return nil
}
