package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
)

var validIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// pgClient implementa Client sobre una tabla:
//
//	key text primary key, value jsonb, expires_at timestamptz null
//
// Las filas expiradas se ignoran en lectura; Set las purga como mucho una
// vez por purgeInterval.
type pgClient struct {
	pool  *pgxpool.Pool
	table string

	purgeInterval time.Duration
	lastPurge     atomic.Int64 // unix nanos
}

const defaultPurgeInterval = time.Minute

// NewPostgres abre el pool, verifica la conexión y crea la tabla si falta.
func NewPostgres(ctx context.Context, cfg Config) (*pgClient, error) {
	table := cfg.PostgresTable
	if table == "" {
		table = "kv_store"
	}
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("kv: invalid table name %q", table)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("kv: parse DSN: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("kv: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("kv: pg ping failed: %w", err)
	}

	c := &pgClient{pool: pool, table: table, purgeInterval: defaultPurgeInterval}
	if err := c.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *pgClient) ensureSchema(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	key        text PRIMARY KEY,
	value      jsonb NOT NULL,
	expires_at timestamptz NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_expires_at_idx ON %[1]s (expires_at) WHERE expires_at IS NOT NULL;`, c.table))
	if err != nil {
		return fmt.Errorf("kv: ensure schema: %w", err)
	}
	return nil
}

const live = `(expires_at IS NULL OR expires_at > now())`

func (c *pgClient) Get(ctx context.Context, key string) ([]byte, error) {
	var v string
	err := c.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT value::text FROM %s WHERE key = $1 AND %s`, c.table, live), key,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (c *pgClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl).UTC()
		expires = &t
	}
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (key, value, expires_at) VALUES ($1, $2::jsonb, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, c.table),
		key, string(value), expires)
	if err != nil {
		return err
	}
	if c.purgeDue(time.Now()) {
		c.purgeExpired(ctx)
	}
	return nil
}

// purgeDue reserva el turno de purga: entre escritores concurrentes solo uno
// gana por intervalo.
func (c *pgClient) purgeDue(now time.Time) bool {
	last := c.lastPurge.Load()
	if last != 0 && now.Sub(time.Unix(0, last)) < c.purgeInterval {
		return false
	}
	return c.lastPurge.CompareAndSwap(last, now.UnixNano())
}

// purgeExpired loguea los errores sin propagarlos.
func (c *pgClient) purgeExpired(ctx context.Context) {
	tag, err := c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= now()`, c.table))
	log := logger.From(ctx).With(logger.Layer("store"), logger.Component("kv.postgres"), logger.Op("purgeExpired"))
	if err != nil {
		log.Warn("purge expired rows failed", logger.Err(err))
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Debug("expired rows purged", logger.Count(int(n)))
	}
}

func (c *pgClient) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, c.table), key)
	return err
}

// Take usa DELETE ... RETURNING: la fila solo puede ser borrada por una transacción.
func (c *pgClient) Take(ctx context.Context, key string) ([]byte, error) {
	var (
		v       string
		expires *time.Time
	)
	err := c.pool.QueryRow(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE key = $1 RETURNING value::text, expires_at`, c.table), key,
	).Scan(&v, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expires != nil && !expires.After(time.Now()) {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (c *pgClient) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		fmt.Sprintf(`SELECT key FROM %s WHERE starts_with(key, $1) AND %s`, c.table, live), prefix)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (c *pgClient) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgClient) Close() error {
	c.pool.Close()
	return nil
}

func (c *pgClient) Stats(ctx context.Context) (Stats, error) {
	var n int64
	if err := c.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, c.table, live)).Scan(&n); err != nil {
		return Stats{}, err
	}
	return Stats{Driver: "postgres", Keys: n}, nil
}
