package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MartinDM/data-app/internal/domain"
	"github.com/MartinDM/data-app/internal/view"
)

// RecordGenerator produces a fresh record set.
type RecordGenerator interface {
	Generate(ctx context.Context, count int) ([]domain.Person, error)
}

// SnapshotExporter receives every new snapshot.
type SnapshotExporter interface {
	Export(ctx context.Context, snap view.Snapshot) (ExportReport, error)
}

// RefreshObserver is told about every refresh.
type RefreshObserver interface {
	ObserveRefresh(elapsed time.Duration, size int, err error)
}

// DashboardOptions configures a DashboardService.
type DashboardOptions struct {
	Size     int
	Exporter SnapshotExporter
	Observer RefreshObserver
	Logger   *slog.Logger
	Now      func() time.Time
}

// DashboardService owns the session dataset: it regenerates records on
// refresh and hands each new snapshot to the view engine.
type DashboardService struct {
	mu        sync.Mutex
	generator RecordGenerator
	engine    *view.Engine
	size      int
	exporter  SnapshotExporter
	observer  RefreshObserver
	logger    *slog.Logger
	now       func() time.Time
}

// NewDashboardService wires the generator to the engine.
func NewDashboardService(generator RecordGenerator, engine *view.Engine, opts DashboardOptions) *DashboardService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	size := opts.Size
	if size < 0 {
		size = 0
	}
	return &DashboardService{
		generator: generator,
		engine:    engine,
		size:      size,
		exporter:  opts.Exporter,
		observer:  opts.Observer,
		logger:    logger.With("component", "dashboard"),
		now:       now,
	}
}

// Engine returns the view engine fed by the service.
func (s *DashboardService) Engine() *view.Engine {
	return s.engine
}

// Refresh generates a new snapshot and installs it. Export failures are
// logged and do not fail the refresh.
func (s *DashboardService) Refresh(ctx context.Context) (view.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	people, err := s.generator.Generate(ctx, s.size)
	if s.observer != nil {
		s.observer.ObserveRefresh(time.Since(start), len(people), err)
	}
	if err != nil {
		return view.Snapshot{}, fmt.Errorf("generate records: %w", err)
	}

	snap := view.NewSnapshot(people, s.now())
	s.engine.SetRecords(snap)
	s.logger.Info("dataset refreshed",
		"snapshot_id", snap.ID.String(),
		"records", snap.Len(),
		"duration", time.Since(start),
	)

	if s.exporter != nil {
		if _, err := s.exporter.Export(ctx, snap); err != nil {
			s.logger.Warn("snapshot export skipped", "snapshot_id", snap.ID.String(), "error", err)
		}
	}
	return snap, nil
}
