package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/MartinDM/data-app/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies graph connectivity. A nil client means export is
// disabled and always reports healthy.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// DatasetHealthService fails until the first snapshot is installed.
type DatasetHealthService struct {
	Ready func() bool
}

// Probe implements the HealthService interface.
func (s DatasetHealthService) Probe(context.Context) error {
	if s.Ready != nil && !s.Ready() {
		return errors.New("dataset not generated yet")
	}
	return nil
}

// HealthChecks runs named probes and joins their failures.
type HealthChecks map[string]HealthService

// Probe implements the HealthService interface.
func (h HealthChecks) Probe(ctx context.Context) error {
	var errs []error
	for name, probe := range h {
		if err := probe.Probe(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
