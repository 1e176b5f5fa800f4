// Package postgres implements the repository ports on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/xenking/restaurant-orders/db"
	"github.com/xenking/restaurant-orders/internal/domain/order"
)

// PoolConfig tunes the connection pool. Zero values keep the pgx defaults.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations applies the embedded migrations that are not applied yet.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	src, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("opening migration source: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	driver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	lg := zctx.From(ctx)
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			lg.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("running migrations: %w", err)
	}
	version, _, _ := m.Version()
	lg.Info("Migrations applied", zap.Uint("version", version))
	return nil
}

// fkEntities maps foreign key constraints to the entity they reference.
var fkEntities = map[string]string{
	"orders_restaurant_id_fkey":       "restaurant",
	"orders_table_id_fkey":            "table",
	"orders_created_by_staff_id_fkey": "user",
	"order_events_actor_id_fkey":      "user",
	"order_items_menu_item_id_fkey":   "menu_item",
	"order_items_order_id_fkey":       "order",
	"order_payments_order_id_fkey":    "order",
	"order_events_order_id_fkey":      "order",
}

// keyValue extracts the offending id from a constraint violation detail such
// as `Key (table_id)=(5) is not present in table "tables".`
var keyValue = regexp.MustCompile(`\)=\((-?\d+)\)`)

// mapError converts constraint violations into domain errors. Other errors
// are returned unchanged.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ForeignKeyViolation:
		entity, ok := fkEntities[pgErr.ConstraintName]
		if !ok {
			return err
		}
		var id int64
		if m := keyValue.FindStringSubmatch(pgErr.Detail); m != nil {
			id, _ = strconv.ParseInt(m[1], 10, 64)
		}
		return &order.NotFoundError{Entity: entity, ID: id}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		return &order.ValidationError{Field: field, Reason: pgErr.Message}
	default:
		return err
	}
}
