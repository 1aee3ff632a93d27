package store

import (
	"context"
	"fmt"

	"go-db-replicator/internal/model"
)

// Seed loads a small demo dataset (users, products, orders) into the store.
// Intended for the demo config path and tests.
func Seed(ctx context.Context, d *DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (id BIGINT, name TEXT, email TEXT)`,
		`CREATE TABLE IF NOT EXISTS products (id BIGINT, name TEXT, price DOUBLE PRECISION)`,
		`CREATE TABLE IF NOT EXISTS orders (id BIGINT, user_id BIGINT, product_id BIGINT)`,
	}
	if d.driver != model.DriverPostgres {
		ddl[1] = `CREATE TABLE IF NOT EXISTS products (id BIGINT, name TEXT, price DOUBLE)`
	}
	for _, q := range ddl {
		if err := d.Exec(ctx, q); err != nil {
			return fmt.Errorf("seed ddl failed: %w", err)
		}
	}

	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("User %d", i)
		email := fmt.Sprintf("user%d@example.com", i)
		if err := d.Exec(ctx, fmt.Sprintf("INSERT INTO users (id, name, email) VALUES (%s)", d.placeholders(3)), int64(i), name, email); err != nil {
			return fmt.Errorf("seed users failed: %w", err)
		}
		if err := d.Exec(ctx, fmt.Sprintf("INSERT INTO products (id, name, price) VALUES (%s)", d.placeholders(3)), int64(i), fmt.Sprintf("Product %d", i), float64(i)*9.99); err != nil {
			return fmt.Errorf("seed products failed: %w", err)
		}
	}
	for i := 1; i <= 6; i++ {
		if err := d.Exec(ctx, fmt.Sprintf("INSERT INTO orders (id, user_id, product_id) VALUES (%s)", d.placeholders(3)), int64(i), int64((i%5)+1), int64((i%5)+1)); err != nil {
			return fmt.Errorf("seed orders failed: %w", err)
		}
	}
	return nil
}
