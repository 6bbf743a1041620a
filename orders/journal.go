package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Journal records simulated orders in an in-memory SQLite database. The
// data lives only as long as the process.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens a private in-memory database and creates the schema.
func OpenJournal() (*Journal, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    exchange         TEXT NOT NULL,
    tradingsymbol    TEXT NOT NULL,
    transaction_type TEXT NOT NULL CHECK(transaction_type IN ('BUY','SELL')),
    quantity         INTEGER NOT NULL CHECK(quantity > 0),
    product          TEXT NOT NULL,
    order_type       TEXT NOT NULL,
    price            REAL NOT NULL,
    placed_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_placed_at ON orders(placed_at);`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Journal{db: db}, nil
}

// Save inserts an order.
func (j *Journal) Save(ctx context.Context, o Order) error {
	_, err := j.db.ExecContext(ctx, `INSERT INTO orders
		(id, exchange, tradingsymbol, transaction_type, quantity, product, order_type, price, placed_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		o.ID, o.Exchange, o.Tradingsymbol, o.Side, o.Qty, o.Product, o.OrderType,
		o.Price, o.PlacedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// Recent returns up to limit orders, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Order, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id, exchange, tradingsymbol, transaction_type,
		quantity, product, order_type, price, placed_at
		FROM orders ORDER BY placed_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var (
			o        Order
			placedAt string
		)
		if err := rows.Scan(&o.ID, &o.Exchange, &o.Tradingsymbol, &o.Side, &o.Qty,
			&o.Product, &o.OrderType, &o.Price, &placedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.PlacedAt, err = time.Parse(time.RFC3339Nano, placedAt)
		if err != nil {
			return nil, fmt.Errorf("parse placed_at: %w", err)
		}
		o.Symbol = o.Exchange + ":" + o.Tradingsymbol
		out = append(out, o)
	}
	return out, rows.Err()
}

// Count returns the number of journaled orders.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// Close closes the underlying database; its contents are discarded.
func (j *Journal) Close() error {
	return j.db.Close()
}
