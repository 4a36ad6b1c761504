package service

import (
	"context"
	"fmt"

	"kidquest_backend/pkg/logger"
	"kidquest_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// BestEffort is the outcome of secondary bookkeeping (badges, course cascade, cache).
// It does not implement error, so it cannot be returned as the failure of the
// action that triggered it; callers can only inspect or log it.
type BestEffort struct {
	Op  string
	err error
}

func (b BestEffort) OK() bool { return b.err == nil }

// runBestEffort runs fn, converting failures and panics into a logged BestEffort.
func runBestEffort(ctx context.Context, op string, fn func(ctx context.Context) error) (out BestEffort) {
	out.Op = op
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("panic: %v", r)
		}
		if out.err != nil {
			logger.Log.Warn("Secondary bookkeeping failed",
				zap.String("op", op),
				zap.Error(out.err))
			monitoring.BestEffortFailures.WithLabelValues(op).Inc()
		}
	}()
	out.err = fn(ctx)
	return out
}
