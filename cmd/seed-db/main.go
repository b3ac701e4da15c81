// Command seed-db prepares a fresh database for local development: it runs
// migrations, creates an admin account with an API key, and loads the product
// catalog from a CSV file.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/crypto/bcrypt"

	"github.com/sebastiaan36/louman/internal/csvio"
	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/storage/postgres"
)

var defaultCategories = []string{
	"Worst",
	"Vleeswaren",
	"Snacks",
	"Overig",
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminName     string
		adminPassword string
		apiKey        string
		apiKeyPepper  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.csv", "path to product catalog CSV (optionally gzipped)")
	flag.StringVar(&adminEmail, "admin-email", "admin@example.com", "email for the admin account")
	flag.StringVar(&adminName, "admin-name", "Admin", "display name for the admin account")
	flag.StringVar(&adminPassword, "admin-password", "", "password for the admin account (or LOUMAN_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or LOUMAN_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or LOUMAN_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("LOUMAN_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or LOUMAN_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("LOUMAN_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or LOUMAN_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("LOUMAN_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminName, adminPassword, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminName, adminPassword, apiKey, pepper string) error {
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

	if err := seedAdmin(ctx, pool, adminEmail, adminName, adminPassword, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed admin account")
	}

	if err := seedCategories(ctx, pool); err != nil {
		return errors.Wrap(err, "seed categories")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

// seedAdmin creates the admin user and attaches the given API key. Both
// statements are upserts so re-running the tool is safe.
func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, name, password, apiKey, pepper string) error {
	slog.Info("seeding admin account", slog.String("email", email))

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	var userID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = 'admin'
		RETURNING id`,
		name, email, string(passwordHash),
	).Scan(&userID)
	if err != nil {
		return errors.Wrap(err, "upsert admin user")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO api_keys (user_id, key_hash, name, active)
		VALUES ($1, $2, 'Seeded admin key', TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET active = TRUE`,
		userID, auth.HashKey(apiKey, []byte(pepper)),
	)
	if err != nil {
		return errors.Wrap(err, "upsert admin api key")
	}

	slog.Info("seeded admin account", slog.Int64("user_id", userID))
	return nil
}

func seedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding categories", slog.Int("count", len(defaultCategories)))

	for i, name := range defaultCategories {
		_, err := pool.Exec(ctx, `
			INSERT INTO categories (name, sort_order)
			SELECT $1, $2
			WHERE NOT EXISTS (SELECT 1 FROM categories WHERE name = $1)`,
			name, i+1,
		)
		if err != nil {
			return errors.Wrapf(err, "insert category %s", name)
		}
	}

	return nil
}

// seedProducts loads the catalog through the same CSV importer the admin API
// uses, so the seed file follows the documented import format.
func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	if path == "" {
		slog.Info("no products file given, skipping catalog")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("products file not found, skipping catalog", slog.String("path", path))
			return nil
		}
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	slog.Info("importing products", slog.String("path", path))

	report, err := csvio.NewProductCSV(postgres.NewProductRepository(pool)).Import(ctx, r)
	if err != nil {
		return errors.Wrap(err, "import products")
	}

	slog.Info("imported products",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", len(report.Skipped)),
	)
	for _, s := range report.Skipped {
		slog.Warn("skipped row", slog.Int("line", s.Line), slog.String("reason", s.Reason))
	}

	return nil
}
