package services

import (
	"context"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"route-scheduling-service/internal/ports"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxConcurrency = 5

	EventBatchCompleted  = "tasks.batch.completed"
	EventBatchRolledBack = "tasks.batch.rolled_back"
)

type Progress struct {
	Completed  int
	Failed     int
	Total      int
	Percentage float64
}

type BatchOptions struct {
	// MaxConcurrency is both the batch size and the number of creations in flight.
	MaxConcurrency    int `validate:"min=1,max=20"`
	ContinueOnError   bool
	RollbackOnFailure bool
	OnProgress        func(Progress)
}

type BatchResult struct {
	Created           []domain.WorkItem
	Failed            []*domain.TaskCreationError
	Total             int
	RollbackPerformed bool
}

type batchEvent struct {
	Total    int      `json:"total"`
	Created  int      `json:"created"`
	Failed   int      `json:"failed"`
	TaskIDs  []string `json:"taskIds"`
	Rollback bool     `json:"rollback"`
}

// BatchTaskCreator persists work items in bounded concurrent batches.
type BatchTaskCreator struct {
	repo      ports.TaskRepository
	publisher ports.EventPublisher
	validate  *validator.Validate
}

// NewBatchTaskCreator builds a creator; publisher may be nil.
func NewBatchTaskCreator(repo ports.TaskRepository, publisher ports.EventPublisher) *BatchTaskCreator {
	return &BatchTaskCreator{repo: repo, publisher: publisher, validate: validator.New()}
}

type itemResult struct {
	created domain.WorkItem
	err     error
}

// CreateTasks persists items in batches of opts.MaxConcurrency. Batches run one
// after another; the items of a batch are created concurrently. Per-item
// failures are collected in the result. The returned error is reserved for
// invalid options and cancellation.
func (b *BatchTaskCreator) CreateTasks(ctx context.Context, items []domain.WorkItem, opts BatchOptions) (_ *BatchResult, err error) {
	defer obs.Time(ctx, "services.CreateTasks")(&err)

	if opts.MaxConcurrency == 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if err := b.validate.Struct(opts); err != nil {
		return nil, &domain.ValidationError{
			Field:  "maxConcurrency",
			Reason: fmt.Sprintf("must be between 1 and 20, got %d", opts.MaxConcurrency),
		}
	}
	if opts.ContinueOnError && opts.RollbackOnFailure {
		return nil, &domain.ValidationError{
			Field:  "rollbackOnFailure",
			Reason: "cannot be combined with continueOnError",
		}
	}

	res := &BatchResult{
		Created: []domain.WorkItem{},
		Failed:  []*domain.TaskCreationError{},
		Total:   len(items),
	}

	var cancelErr error
	for start := 0; start < len(items); start += opts.MaxConcurrency {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}

		end := min(start+opts.MaxConcurrency, len(items))
		batch := items[start:end]
		results := make([]itemResult, len(batch))

		// Each goroutine writes only its own slot. Item failures go into results
		// and never cancel siblings, so Wait reports only a recovered panic.
		var g errgroup.Group
		g.SetLimit(opts.MaxConcurrency)
		for i := range batch {
			i := i
			g.Go(func() (err error) {
				defer func() {
					if p := recover(); p != nil {
						err = fmt.Errorf("create task %q: panic: %v", batch[i].Title, p)
						results[i] = itemResult{err: err}
					}
				}()
				created, cerr := b.repo.CreateTask(ctx, batch[i])
				results[i] = itemResult{created: created, err: cerr}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int("batch_start", start).Msg("task creation panicked")
		}

		batchFailed := false
		for i, r := range results {
			if r.err != nil {
				batchFailed = true
				res.Failed = append(res.Failed, &domain.TaskCreationError{
					Index: start + i,
					Title: batch[i].Title,
					Err:   r.err,
				})
				obs.Tasks.WithLabelValues("failed").Inc()
			} else {
				res.Created = append(res.Created, r.created)
				obs.Tasks.WithLabelValues("created").Inc()
			}
			b.reportProgress(opts, res)
		}

		if batchFailed && !opts.ContinueOnError {
			break
		}
	}

	if opts.RollbackOnFailure && len(res.Failed) > 0 {
		b.rollback(ctx, res)
	}

	b.publish(ctx, res)

	if cancelErr != nil {
		return res, fmt.Errorf("create tasks: %w", cancelErr)
	}
	return res, nil
}

func (b *BatchTaskCreator) reportProgress(opts BatchOptions, res *BatchResult) {
	if opts.OnProgress == nil {
		return
	}
	done := len(res.Created) + len(res.Failed)
	pct := 100.0
	if res.Total > 0 {
		pct = float64(done) / float64(res.Total) * 100
	}
	opts.OnProgress(Progress{
		Completed:  done,
		Failed:     len(res.Failed),
		Total:      res.Total,
		Percentage: pct,
	})
}

// rollback deletes every created item. Deletion failures are logged and skipped.
func (b *BatchTaskCreator) rollback(ctx context.Context, res *BatchResult) {
	logger := zerolog.Ctx(ctx)
	rctx := context.WithoutCancel(ctx)

	for _, item := range res.Created {
		if err := b.repo.DeleteTask(rctx, item.ID); err != nil {
			logger.Error().Err(err).Str("task_id", item.ID).Msg("rollback: delete task failed")
			continue
		}
		obs.Tasks.WithLabelValues("rolled_back").Inc()
	}

	logger.Warn().
		Int("rolled_back", len(res.Created)).
		Int("failed", len(res.Failed)).
		Msg("batch rolled back")

	res.Created = []domain.WorkItem{}
	res.RollbackPerformed = true
}

func (b *BatchTaskCreator) publish(ctx context.Context, res *BatchResult) {
	if b.publisher == nil || res.Total == 0 {
		return
	}

	key := EventBatchCompleted
	if res.RollbackPerformed {
		key = EventBatchRolledBack
	}

	ids := make([]string, 0, len(res.Created))
	for _, t := range res.Created {
		ids = append(ids, t.ID)
	}

	evt := batchEvent{
		Total:    res.Total,
		Created:  len(res.Created),
		Failed:   len(res.Failed),
		TaskIDs:  ids,
		Rollback: res.RollbackPerformed,
	}
	if err := b.publisher.Publish(ctx, key, evt); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("routing_key", key).Msg("publish batch event failed")
	}
}
