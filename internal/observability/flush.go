package observability

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes telemetry buffers before process exit: pending spans are
// exported and the tracer provider stopped, then logs are synced. Prometheus is
// pull-based and needs no flush. Call during graceful shutdown after in-flight
// requests and fetches have drained.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	var errs []error
	if err := shutdownTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush traces: %w", err))
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("flush logs: %w", err))
		}
	}
	return errors.Join(errs...)
}
