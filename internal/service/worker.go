package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/metrics"
)

// TaskError accumulates the per-record failures of one ingestion run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString("multiple errors:")
	for _, err := range e.Errors {
		b.WriteString(" " + err.Error() + ";")
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error { return e.Errors }

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkIngestor writes ledger records into the lineage graph using a worker pool.
type BulkIngestor struct {
	repo    LineageRepository
	workers int
	metrics *metrics.Metrics
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(repo LineageRepository, workers int, m *metrics.Metrics) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		repo:    repo,
		workers: workers,
		metrics: m,
	}
}

// IngestProfiles upserts profile nodes concurrently.
func (bi *BulkIngestor) IngestProfiles(ctx context.Context, profiles []domain.ProfileSummary) error {
	return bi.run(ctx, len(profiles), func(idx int) error {
		return bi.observe("profile", bi.repo.UpsertProfile(ctx, profiles[idx]))
	})
}

// IngestRanks upserts held ranks concurrently. An accepted promotion keeps its
// id as the rank id, so the matching promotion node is cleared.
func (bi *BulkIngestor) IngestRanks(ctx context.Context, ranks []domain.Rank) error {
	return bi.run(ctx, len(ranks), func(idx int) error {
		rank := ranks[idx]
		if err := bi.repo.UpsertRank(ctx, rank); err != nil {
			return bi.observe("rank", err)
		}
		return bi.observe("rank", bi.repo.ClearPromotion(ctx, rank.ID))
	})
}

// IngestPromotions upserts pending promotions concurrently.
func (bi *BulkIngestor) IngestPromotions(ctx context.Context, promotions []domain.Promotion) error {
	return bi.run(ctx, len(promotions), func(idx int) error {
		return bi.observe("promotion", bi.repo.UpsertPromotion(ctx, promotions[idx]))
	})
}

func (bi *BulkIngestor) observe(kind string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	bi.metrics.ObserveSync(kind, outcome)
	return err
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
