package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"route-scheduling-service/internal/domain"
	"strings"
	"time"
)

// Initialize the Postgres schema: order book, generated tasks and the provider caches.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		event_date TIMESTAMPTZ,
		delivery_date TIMESTAMPTZ,
		items JSONB NOT NULL DEFAULT '[]',
		total DOUBLE PRECISION NOT NULL DEFAULT 0,
		special_instructions TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		delivery_address TEXT NOT NULL DEFAULT ''
	);
	`

	createTasksQuery := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		scheduled_at TIMESTAMPTZ,
		payment_amount DOUBLE PRECISION,
		assigned_workers JSONB NOT NULL DEFAULT '[]',
		order_ids JSONB NOT NULL DEFAULT '[]',
		delivery_point_ids JSONB NOT NULL DEFAULT '[]',
		customers JSONB NOT NULL DEFAULT '[]',
		route_session_id TEXT NOT NULL DEFAULT '',
		stop_index INTEGER,
		driver_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`

	createIndexQueries := []string{
		`CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin ON distance_cache(destination, origin);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_route_session ON tasks(route_session_id);`,
	}

	statements := append([]string{
		createOrdersQuery,
		createTasksQuery,
		createDistanceCacheQuery,
		createGeocodeCacheQuery,
	}, createIndexQueries...)

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type OrderSeed struct {
	ID                  string             `json:"id"`
	CustomerName        string             `json:"customer_name"`
	CustomerEmail       string             `json:"customer_email"`
	CustomerPhone       string             `json:"customer_phone"`
	EventDate           *time.Time         `json:"event_date"`
	DeliveryDate        *time.Time         `json:"delivery_date"`
	Items               []domain.OrderItem `json:"items"`
	Total               float64            `json:"total"`
	SpecialInstructions string             `json:"special_instructions"`
	Notes               string             `json:"notes"`
	DeliveryAddress     string             `json:"delivery_address"`
}

// ReadOrderSeeds parses and validates an order seed file.
func ReadOrderSeeds(jsonPath string) ([]domain.Order, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed orders: read %q: %w", jsonPath, err)
	}
	return parseOrderSeeds(bytes)
}

func parseOrderSeeds(bytes []byte) ([]domain.Order, error) {
	var data []OrderSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed orders: parse json: %w", err)
	}

	seen := make(map[string]struct{}, len(data))
	orders := make([]domain.Order, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("seed orders: item at index %d: id cannot be empty", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed orders: item at index %d: duplicate id %q", i+1, id)
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(item.CustomerName)
		if name == "" {
			return nil, fmt.Errorf("seed orders: item %q: customer_name cannot be empty", id)
		}
		if item.Total < 0 {
			return nil, fmt.Errorf("seed orders: item %q: negative total %.2f", id, item.Total)
		}

		orders = append(orders, domain.Order{
			ID:                  id,
			CustomerName:        name,
			CustomerEmail:       item.CustomerEmail,
			CustomerPhone:       item.CustomerPhone,
			EventDate:           item.EventDate,
			DeliveryDate:        item.DeliveryDate,
			Items:               item.Items,
			Total:               item.Total,
			SpecialInstructions: item.SpecialInstructions,
			Notes:               item.Notes,
			DeliveryAddress:     item.DeliveryAddress,
		})
	}
	return orders, nil
}

// Populate the orders table from a JSON seed file. Existing orders are replaced.
func SeedOrdersFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	orders, err := ReadOrderSeeds(jsonPath)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed orders: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO orders (
		id,
		customer_name,
		customer_email,
		customer_phone,
		event_date,
		delivery_date,
		items,
		total,
		special_instructions,
		notes,
		delivery_address
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE
	SET customer_name = EXCLUDED.customer_name,
		customer_email = EXCLUDED.customer_email,
		customer_phone = EXCLUDED.customer_phone,
		event_date = EXCLUDED.event_date,
		delivery_date = EXCLUDED.delivery_date,
		items = EXCLUDED.items,
		total = EXCLUDED.total,
		special_instructions = EXCLUDED.special_instructions,
		notes = EXCLUDED.notes,
		delivery_address = EXCLUDED.delivery_address;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("seed orders: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range orders {
		items, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("seed orders: encode items for %q: %w", o.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.EventDate, o.DeliveryDate, string(items), o.Total,
			o.SpecialInstructions, o.Notes, o.DeliveryAddress,
		); err != nil {
			return fmt.Errorf("seed orders: insert id=%q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed orders: commit tx: %w", err)
	}

	return nil
}
