package db

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(20) NOT NULL,
		name VARCHAR(64) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_users_username (username),
		INDEX idx_users_name (name)
	) DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS sales_receipts (
		id INT AUTO_INCREMENT PRIMARY KEY,
		created_at DATETIME(6) NOT NULL,
		user_id INT NOT NULL,
		total_amount DECIMAL(24,5) NOT NULL,
		payment_type VARCHAR(16) NOT NULL,
		payment_amount DECIMAL(24,5) NOT NULL,
		INDEX idx_sales_receipts_user_created (user_id, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id)
	) DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS sales_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		sales_receipt_id INT NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		quantity DECIMAL(20,3) NOT NULL,
		price DECIMAL(20,2) NOT NULL,
		INDEX idx_sales_items_receipt (sales_receipt_id),
		FOREIGN KEY (sales_receipt_id) REFERENCES sales_receipts(id) ON DELETE CASCADE
	) DEFAULT CHARSET=utf8mb4;`,
}

// SQLite amounts are TEXT: DECIMAL columns get NUMERIC affinity and would be
// rounded through REAL.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_name ON users (name)`,
	`CREATE TABLE IF NOT EXISTS sales_receipts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id),
		total_amount TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		payment_amount TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_receipts_user_created ON sales_receipts (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS sales_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sales_receipt_id INTEGER NOT NULL REFERENCES sales_receipts(id) ON DELETE CASCADE,
		product_name TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_items_receipt ON sales_items (sales_receipt_id)`,
}

func RunMigrations(ctx context.Context, d *Database) error {
	queries := sqliteSchema
	if d.Dialect == MySQL {
		queries = mysqlSchema
	}

	for _, q := range queries {
		if _, err := d.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
