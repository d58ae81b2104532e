package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Gate is the idempotent readiness probe checked before the projection
// subscribes. The ledger reader's Initialized call satisfies it.
type Gate interface {
	Initialized(ctx context.Context) (bool, error)
}

// WaitUntilReady blocks until the gate reports initialized, retrying with
// exponential backoff (×5 growth per attempt, unbounded attempts). Each
// retry interval is logged. Returns only on success or context cancellation.
func WaitUntilReady(ctx context.Context, gate Gate, logger *log.Logger) error {
	return waitUntilReady(ctx, gate, logger, time.Second)
}

func waitUntilReady(ctx context.Context, gate Gate, logger *log.Logger, initialInterval time.Duration) error {
	if logger == nil {
		logger = log.Default()
	}

	probe := func() (struct{}, error) {
		ok, err := gate.Initialized(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if !ok {
			return struct{}{}, fmt.Errorf("ledger not initialized")
		}
		return struct{}{}, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.Multiplier = 5

	_, err := backoff.Retry(ctx, probe,
		backoff.WithBackOff(policy),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Printf("payroll: readiness probe failed (%v), retrying in %s", err, next)
		}),
	)
	return err
}
