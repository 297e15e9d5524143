package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 5 * time.Second

const columnsQuery = `SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = current_schema()
ORDER BY table_name, ordinal_position`

// Querier is the part of a pgx pool the catalog reads columns through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPool opens the pool LoadPostgresCatalog reads from.
var NewPool = func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}

// LoadPostgresCatalog snapshots the current schema of the database at dsn.
func LoadPostgresCatalog(ctx context.Context, dsn string) (*MapCatalog, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return QueryCatalog(ctx, pool)
}

// QueryCatalog reads every column of the current schema, keeping each
// table's columns in ordinal order.
func QueryCatalog(ctx context.Context, q Querier) (*MapCatalog, error) {
	rows, err := q.Query(ctx, columnsQuery)
	if err != nil {
		return nil, fmt.Errorf("listing columns: %w", err)
	}
	defer rows.Close()

	cat := NewMapCatalog()
	for rows.Next() {
		var table string
		var col Column
		if err := rows.Scan(&table, &col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		cat.Add(table, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing columns: %w", err)
	}
	return cat, nil
}
