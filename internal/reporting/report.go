// internal/reporting/report.go
// Package reporting persists run artifacts: the JSON execution report, failure
// screenshots, and the local run-history store.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/stridr-dev/stridr/api/schemas"
)

// Reporter writes one run's artifacts under a per-run directory.
type Reporter struct {
	logger *zap.Logger
	// dir is the run's artifact directory, created lazily on first write.
	dir string
}

// NewReporter creates a reporter rooted at outputDir/<runID>.
func NewReporter(logger *zap.Logger, outputDir, runID string) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if outputDir == "" {
		outputDir = "stridr-runs"
	}
	return &Reporter{
		logger: logger.Named("reporting"),
		dir:    filepath.Join(outputDir, runID),
	}
}

// Dir returns the run's artifact directory.
func (r *Reporter) Dir() string {
	return r.dir
}

func (r *Reporter) ensureDir() error {
	return os.MkdirAll(r.dir, 0o755)
}

// WriteReport serializes the execution result as indented JSON to report.json
// in the run directory and returns the written path.
func (r *Reporter) WriteReport(result *schemas.ExecutionResult) (string, error) {
	if err := r.ensureDir(); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution result: %w", err)
	}

	path := filepath.Join(r.dir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	r.logger.Info("Report written.", zap.String("path", path))
	return path, nil
}

// SaveScreenshot stores a failure screenshot for the given step and returns
// its path relative to the run directory.
func (r *Reporter) SaveScreenshot(stepIndex int, png []byte) (string, error) {
	if err := r.ensureDir(); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("step-%03d-failure.png", stepIndex)
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	r.logger.Debug("Failure screenshot saved.", zap.String("path", path), zap.Int("step", stepIndex))
	return name, nil
}
