package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/beltledger/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to HealthService.
type ProbeFunc func(ctx context.Context) error

// Probe implements HealthService.
func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// GraphHealthService verifies graph connectivity as part of health checks.
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

// Checks runs every named probe and reports all failures.
type Checks map[string]HealthService

// Probe implements HealthService.
func (c Checks) Probe(ctx context.Context) error {
	var errs []error
	for name, check := range c {
		if check == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
