package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MartinDM/data-app/internal/config"
	"github.com/MartinDM/data-app/internal/generator"
	"github.com/MartinDM/data-app/internal/graph"
	"github.com/MartinDM/data-app/internal/logging"
	"github.com/MartinDM/data-app/internal/repository"
	"github.com/MartinDM/data-app/internal/service"
	"github.com/MartinDM/data-app/internal/view"
)

var errMissingDataset = errors.New("dataset not found")

func main() {
	var (
		datasetDir = flag.String("dataset-dir", "./data", "Directory containing people.json")
		peoplePath = flag.String("people", "", "Path to people.json (overrides dataset-dir)")
		workers    = flag.Int("workers", 0, "Concurrent export workers (0 = GRAPH_EXPORT_WORKERS)")
		batchSize  = flag.Int("batch-size", 0, "People per write (0 = GRAPH_EXPORT_BATCH_SIZE)")
		list       = flag.Bool("list", false, "List exported snapshots and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "export")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)

	if *list {
		snapshots, err := repo.ListSnapshots(ctx, 0)
		if err != nil {
			logger.Error("failed to list snapshots", "error", err)
			os.Exit(1)
		}
		for _, s := range snapshots {
			fmt.Fprintf(os.Stdout, "%s\t%s\tpeople=%d\tcities=%d\tspent=%.2f\n",
				s.SnapshotID, s.GeneratedAt.Format(time.RFC3339), s.People, s.Cities, s.TotalSpent)
		}
		return
	}

	path, err := resolveDatasetPath(*datasetDir, *peoplePath)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	people, err := generator.ReadPeople(path)
	if err != nil {
		logger.Error("failed to load people", "error", err, "path", path)
		os.Exit(1)
	}
	if len(people) == 0 {
		logger.Error("people dataset empty", "path", path)
		os.Exit(1)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("graph schema setup failed", "error", err)
		os.Exit(1)
	}

	w := cfg.Graph.Workers
	if *workers > 0 {
		w = *workers
	}
	b := cfg.Graph.BatchSize
	if *batchSize > 0 {
		b = *batchSize
	}

	snap := view.NewSnapshot(people, time.Now())
	logger.Info("exporting snapshot", "snapshot_id", snap.ID.String(), "people", snap.Len(), "workers", w, "batch_size", b)

	report, err := service.NewBatchExporter(repo, w, b, logger).Export(ctx, snap)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}

	stats, err := repo.SnapshotStats(ctx, report.SnapshotID)
	if err != nil {
		logger.Warn("failed to read snapshot stats", "error", err)
	}

	logger.Info("export complete",
		"snapshot_id", report.SnapshotID,
		"duration", report.Duration.String(),
		"batches", report.Batches,
		"nodes_created", report.Summary.NodesCreated,
		"relationships_created", report.Summary.RelationshipsCreated,
		"people", stats.People,
		"cities", stats.Cities,
		"spend_links", stats.SpendLinks,
	)
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, generator.DatasetFile)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}
