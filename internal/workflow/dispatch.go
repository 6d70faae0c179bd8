package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alexander-akhmetov/wbstrack/internal/debug"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/store"
)

// Notifier delivers notifications to users.
type Notifier interface {
	Notify(ctx context.Context, targets []string, kind event.Kind, payload map[string]any) error
}

// RewardDispatcher pays points to users.
type RewardDispatcher interface {
	Award(ctx context.Context, userIDs []string, points int, reason string) error
}

// RetryPolicy bounds retries of every external write: loads, saves,
// notifications and rewards.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy is three attempts one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Second}
}

// do runs fn until it succeeds, returns a permanent error, runs out of
// attempts, or ctx is done. Version conflicts and missing projects are never
// retried here.
func (rp RetryPolicy) do(ctx context.Context, what string, fn func() error) error {
	attempts := rp.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) || errors.Is(err, context.Canceled) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(rp.Delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			debug.Logf("%s failed, retrying in %s: %v", what, next, err)
		}),
	)
	return err
}

// dispatch executes effects in order. Failures are collected, never returned
// as the operation's error.
func (s *Service) dispatch(ctx context.Context, effects []event.Effect) []error {
	var errs []error
	for _, e := range effects {
		if err := s.dispatchOne(ctx, e); err != nil {
			errs = append(errs, err)
			s.log.Errorf("dispatch %s to %v: %v", e.Kind, e.Targets, err)
		}
	}
	return errs
}

func (s *Service) dispatchOne(ctx context.Context, e event.Effect) error {
	if e.Empty() {
		return nil
	}
	if e.Kind.IsReward() {
		if s.rewarder == nil {
			return nil
		}
		err := s.retry.do(ctx, "award "+string(e.Kind), func() error {
			return s.rewarder.Award(ctx, e.Targets, e.Points, e.Reason)
		})
		if err != nil {
			return &Error{Kind: ErrDispatch, Op: "award", Err: fmt.Errorf("%s: %w", e.Kind, err)}
		}
		return nil
	}
	if s.notifier == nil {
		return nil
	}
	err := s.retry.do(ctx, "notify "+string(e.Kind), func() error {
		return s.notifier.Notify(ctx, e.Targets, e.Kind, e.Payload)
	})
	if err != nil {
		return &Error{Kind: ErrDispatch, Op: "notify", Err: fmt.Errorf("%s: %w", e.Kind, err)}
	}
	return nil
}
