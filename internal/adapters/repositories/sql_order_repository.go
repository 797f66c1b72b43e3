package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
)

// Postgres-backed implementation of the OrderRepository port.
type SQLOrderRepository struct{ DB *sql.DB }

func NewSQLOrderRepository(db *sql.DB) *SQLOrderRepository {
	return &SQLOrderRepository{DB: db}
}

func (s *SQLOrderRepository) GetOrder(ctx context.Context, id string) (_ *domain.Order, err error) {
	defer obs.Time(ctx, "orders.GetOrder")(&err)

	if s.DB == nil {
		return nil, errors.New("sql order repository: DB is nil")
	}

	query := `
	SELECT
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
	FROM orders
	WHERE id = $1;
	`

	var (
		o            domain.Order
		eventDate    sql.NullTime
		deliveryDate sql.NullTime
		items        []byte
	)
	err = s.DB.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&eventDate, &deliveryDate, &items, &o.Total,
		&o.SpecialInstructions, &o.Notes, &o.DeliveryAddress,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %q: %w", id, err)
	}

	if eventDate.Valid {
		t := eventDate.Time
		o.EventDate = &t
	}
	if deliveryDate.Valid {
		t := deliveryDate.Time
		o.DeliveryDate = &t
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("get order %q: decode items: %w", id, err)
		}
	}

	return &o, nil
}
