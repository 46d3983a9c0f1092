package main

import (
	"fmt"

	"github.com/vinayprograms/agentkit/telemetry"

	"github.com/vinayprograms/warden/internal/config"
)

// setupTelemetry creates the span exporter for a run. When telemetry is
// disabled a noop exporter keeps the span helpers valid without shipping
// anything.
func setupTelemetry(cfg *config.Config) (telemetry.Exporter, error) {
	if !cfg.Telemetry.Enabled {
		return telemetry.NewNoopExporter(), nil
	}
	telem, err := telemetry.NewExporter(cfg.Telemetry.Protocol, cfg.Telemetry.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry exporter: %w", err)
	}
	return telem, nil
}
