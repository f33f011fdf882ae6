package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MartinDM/data-app/internal/domain"
	"github.com/MartinDM/data-app/internal/graph"
	"github.com/MartinDM/data-app/internal/repository"
	"github.com/MartinDM/data-app/internal/view"
)

// TaskError accumulates the batch failures of one export.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d batches failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

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

// SnapshotStore is the storage contract the exporter writes through.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, meta repository.SnapshotMeta) error
	UpsertPeople(ctx context.Context, snapshotID string, people []domain.Person) (graph.Summary, error)
}

// ExportReport describes a finished export.
type ExportReport struct {
	SnapshotID string        `json:"snapshotId"`
	People     int           `json:"people"`
	Batches    int           `json:"batches"`
	Summary    graph.Summary `json:"summary"`
	Duration   time.Duration `json:"duration"`
}

// BatchExporter pushes a snapshot into the graph store in fixed-size batches
// spread over a worker pool.
type BatchExporter struct {
	store     SnapshotStore
	workers   int
	batchSize int
	logger    *slog.Logger
}

// NewBatchExporter creates an exporter. Non-positive workers or batchSize
// fall back to 4 and 25.
func NewBatchExporter(store SnapshotStore, workers, batchSize int, logger *slog.Logger) *BatchExporter {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 25
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchExporter{
		store:     store,
		workers:   workers,
		batchSize: batchSize,
		logger:    logger.With("component", "exporter"),
	}
}

// Export writes the snapshot node and then every person batch.
func (be *BatchExporter) Export(ctx context.Context, snap view.Snapshot) (ExportReport, error) {
	start := time.Now()
	id := snap.ID.String()
	report := ExportReport{SnapshotID: id, People: snap.Len()}

	if err := be.store.UpsertSnapshot(ctx, repository.SnapshotMeta{
		ID:          id,
		GeneratedAt: snap.GeneratedAt,
		Size:        snap.Len(),
	}); err != nil {
		return report, err
	}

	batches := chunk(snap.People, be.batchSize)
	report.Batches = len(batches)

	var mu sync.Mutex
	err := be.run(ctx, len(batches), func(idx int) error {
		summary, err := be.store.UpsertPeople(ctx, id, batches[idx])
		if err != nil {
			return fmt.Errorf("batch %d: %w", idx, err)
		}
		mu.Lock()
		report.Summary = report.Summary.Add(summary)
		mu.Unlock()
		return nil
	})
	report.Duration = time.Since(start)

	if err != nil {
		be.logger.Error("snapshot export failed", "snapshot_id", id, "error", err)
		return report, err
	}
	be.logger.Info("snapshot exported",
		"snapshot_id", id,
		"people", report.People,
		"batches", report.Batches,
		"nodes_created", report.Summary.NodesCreated,
		"duration", report.Duration,
	)
	return report, nil
}

func (be *BatchExporter) run(ctx context.Context, total int, workerFn func(idx int) error) error {
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
				errCh <- err
			}
		}
	}

	for i := 0; i < min(be.workers, total); i++ {
		wg.Add(1)
		go worker()
	}

	cancelled := false
Loop:
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case indexCh <- i:
		case <-ctx.Done():
			cancelled = true
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if cancelled {
		return ctx.Err()
	}

	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}

func chunk(people []domain.Person, size int) [][]domain.Person {
	batches := make([][]domain.Person, 0, (len(people)+size-1)/size)
	for lo := 0; lo < len(people); lo += size {
		batches = append(batches, people[lo:min(lo+size, len(people))])
	}
	return batches
}
