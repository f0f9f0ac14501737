// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/phasetrack/pkg/workflow"
)

// NewCatalog loads the phase catalog from path, or the built-in catalog when path is empty.
func NewCatalog(path string, logger *slog.Logger) (*workflow.Catalog, error) {
	if path == "" {
		logger.Info("Using built-in phase catalog")

		return workflow.DefaultCatalog()
	}

	catalog, err := workflow.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}

	logger.Info("Loaded phase catalog", "path", path)

	return catalog, nil
}
