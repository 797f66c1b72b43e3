package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"

	"github.com/google/uuid"
)

// Postgres-backed implementation of the TaskRepository port.
type SQLTaskRepository struct{ DB *sql.DB }

func NewSQLTaskRepository(db *sql.DB) *SQLTaskRepository {
	return &SQLTaskRepository{DB: db}
}

func (s *SQLTaskRepository) CreateTask(ctx context.Context, item domain.WorkItem) (_ domain.WorkItem, err error) {
	defer obs.Time(ctx, "tasks.CreateTask")(&err)

	if s.DB == nil {
		return domain.WorkItem{}, errors.New("sql task repository: DB is nil")
	}

	lists := make([]string, 0, 4)
	for _, l := range [][]string{item.AssignedWorkers, item.OrderIDs, item.DeliveryPointIDs, item.Customers} {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return domain.WorkItem{}, fmt.Errorf("create task: encode list: %w", err)
		}
		lists = append(lists, string(b))
	}

	item.ID = uuid.NewString()

	query := `
	INSERT INTO tasks (
		id,
		title,
		description,
		scheduled_at,
		payment_amount,
		assigned_workers,
		order_ids,
		delivery_point_ids,
		customers,
		route_session_id,
		stop_index,
		driver_index
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = s.DB.ExecContext(ctx, query,
		item.ID, item.Title, item.Description, item.ScheduledAt, item.PaymentAmount,
		lists[0], lists[1], lists[2], lists[3],
		item.RouteSessionID, item.StopIndex, item.DriverIndex,
	)
	if err != nil {
		return domain.WorkItem{}, fmt.Errorf("create task %q: %w", item.Title, err)
	}

	return item, nil
}

func (s *SQLTaskRepository) DeleteTask(ctx context.Context, id string) (err error) {
	defer obs.Time(ctx, "tasks.DeleteTask")(&err)

	if s.DB == nil {
		return errors.New("sql task repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete task %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %q: rows affected: %w", id, err)
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}
