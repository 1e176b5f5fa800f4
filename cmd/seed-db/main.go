package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/restaurant-orders/internal/domain/auth"
	"github.com/xenking/restaurant-orders/internal/handler"
	"github.com/xenking/restaurant-orders/internal/storage/postgres"
)

const demoRestaurant = "Demo Bistro"

type seedItem struct {
	Name     string
	Category string
	Price    string
}

var demoMenu = []seedItem{
	{Name: "Paneer Tikka", Category: "Starters", Price: "180.00"},
	{Name: "Tomato Soup", Category: "Starters", Price: "90.00"},
	{Name: "Butter Chicken", Category: "Mains", Price: "320.00"},
	{Name: "Dal Makhani", Category: "Mains", Price: "240.00"},
	{Name: "Garlic Naan", Category: "Breads", Price: "60.00"},
	{Name: "Gulab Jamun", Category: "Desserts", Price: "110.00"},
	{Name: "Masala Chai", Category: "Drinks", Price: "40.00"},
}

var demoTables = []string{"T1", "T2", "T3", "T4", "Patio 1"}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or RESTO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or RESTO_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("RESTO_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or RESTO_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("RESTO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, apiKey, apiKeyPepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, apiKey, pepper string) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL, postgres.PoolConfig{MaxConns: 2})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		staffID, err := seedStaff(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "seed staff")
		}
		restaurantID, created, err := seedRestaurant(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "seed restaurant")
		}
		if created {
			if err := seedCatalog(ctx, tx, restaurantID); err != nil {
				return errors.Wrap(err, "seed catalog")
			}
			lg.Info("Seeded restaurant",
				zap.Int64("restaurant_id", restaurantID),
				zap.Int("menu_items", len(demoMenu)),
				zap.Int("tables", len(demoTables)),
			)
		} else {
			lg.Info("Restaurant already seeded", zap.Int64("restaurant_id", restaurantID))
		}
		if err := seedAPIKey(ctx, tx, staffID, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
		return nil
	})
}

func seedStaff(ctx context.Context, tx pgx.Tx) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO users (name, email, role) VALUES ('Demo Staff', 'staff@demo.local', 'staff')
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`).Scan(&id)
	return id, err
}

func seedRestaurant(ctx context.Context, tx pgx.Tx) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM restaurants WHERE name = $1 ORDER BY id LIMIT 1`, demoRestaurant).Scan(&id)
	switch {
	case err == nil:
		return id, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, false, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO restaurants (name, tax_rate, service_charge_rate) VALUES ($1, $2, $3)
		RETURNING id`,
		demoRestaurant, decimal.NewFromInt(10), decimal.NewFromInt(5),
	).Scan(&id)
	return id, true, err
}

func seedCatalog(ctx context.Context, tx pgx.Tx, restaurantID int64) error {
	categories := map[string]int64{}
	for _, it := range demoMenu {
		if _, ok := categories[it.Category]; ok {
			continue
		}
		var id int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO item_categories (restaurant_id, name) VALUES ($1, $2) RETURNING id`,
			restaurantID, it.Category,
		).Scan(&id); err != nil {
			return errors.Wrapf(err, "insert category %q", it.Category)
		}
		categories[it.Category] = id
	}

	batch := &pgx.Batch{}
	for _, it := range demoMenu {
		batch.Queue(
			`INSERT INTO menu_items (restaurant_id, category_id, name, price) VALUES ($1, $2, $3, $4)`,
			restaurantID, categories[it.Category], it.Name, decimal.RequireFromString(it.Price),
		)
	}
	for _, name := range demoTables {
		batch.Queue(`INSERT INTO tables (restaurant_id, name) VALUES ($1, $2)`, restaurantID, name)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func seedAPIKey(ctx context.Context, tx pgx.Tx, staffID int64, apiKey, pepper string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, name, staff_id, scopes) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key_hash) DO NOTHING`,
		uuid.NewString(),
		handler.HashAPIKey([]byte(pepper), apiKey),
		"demo till",
		staffID,
		[]string{auth.ScopeOrdersRead, auth.ScopeOrdersWrite},
	)
	return err
}
