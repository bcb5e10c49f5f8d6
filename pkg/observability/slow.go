package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// SlowRunHooks returns lifecycle hooks that warn about runs, successful or
// not, that took longer than threshold.
func SlowRunHooks(logger *slog.Logger, threshold time.Duration) domain.LifecycleHooks {
	warn := func(ctx context.Context, e *domain.RunEvent) {
		if e.Duration <= threshold {
			return
		}
		logger.WarnContext(ctx, "slow conversion",
			"run_id", e.RunID,
			"direction", string(e.Direction),
			"duration", e.Duration,
			"threshold", threshold,
			"states", e.States,
			"failed", e.Err != nil,
		)
	}
	return domain.LifecycleHooks{
		OnComplete: warn,
		OnFailure:  warn,
	}
}
