package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ExponentialBackoffScheduler doubles the delay per attempt and clamps it
// at Max. Attempt numbering starts at 1.
type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultReconcileInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultReconcileMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// ResolveAccount turns an account lifecycle event into a concrete account
// identifier. Invite events already carry the id and return immediately.
// Creation events only carry a request id, so the provider's creation status
// is polled with bounded backoff until it reports SUCCEEDED, reports FAILED,
// or the attempt budget runs out.
func (s *Service) ResolveAccount(ctx context.Context, event AccountEvent) (ResolvedAccount, error) {
	if s == nil {
		return ResolvedAccount{}, ErrStatusLookupNotConfigured
	}
	if err := event.Validate(); err != nil {
		return ResolvedAccount{}, err
	}

	if !event.NeedsReconciliation() {
		return ResolvedAccount{AccountID: event.AccountID}, nil
	}

	if s.statusLookup == nil {
		return ResolvedAccount{}, ErrStatusLookupNotConfigured
	}
	requestID := strings.TrimSpace(event.RequestID)
	if requestID == "" {
		return ResolvedAccount{}, MalformedEventError("creation request id is required", map[string]any{
			"event_name": event.Name,
		})
	}

	maxAttempts := s.config.Reconcile.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultReconcileMaxAttempts
	}
	scheduler := s.backoffScheduler
	if scheduler == nil {
		scheduler = ExponentialBackoffScheduler{
			Initial: s.config.Reconcile.InitialBackoff,
			Max:     s.config.Reconcile.MaxBackoff,
		}
	}

	if budget := s.config.Reconcile.Budget; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := s.statusLookup.DescribeCreationStatus(ctx, requestID)
		if err != nil {
			if isContextError(err) {
				return ResolvedAccount{}, ReconcileTimeoutError(requestID, attempt)
			}
			return ResolvedAccount{}, StatusLookupError(err, requestID)
		}
		if err := status.Validate(); err != nil {
			return ResolvedAccount{}, err
		}

		switch status.State {
		case CreationStateSucceeded:
			accountID := strings.TrimSpace(status.AccountID)
			if accountID == "" {
				return ResolvedAccount{}, MalformedEventError("creation succeeded without an account id", map[string]any{
					"request_id": requestID,
				})
			}
			s.logDebug(ctx, "account creation settled", map[string]any{
				"request_id": requestID,
				"account_id": accountID,
				"attempts":   attempt,
			})
			return ResolvedAccount{AccountID: accountID, DisplayName: status.AccountName}, nil
		case CreationStateFailed:
			return ResolvedAccount{}, CreationFailedError(requestID, status.FailureReason)
		}

		if attempt == maxAttempts {
			break
		}
		delay := scheduler.NextDelay(attempt)
		s.logDebug(ctx, "account creation still in progress", map[string]any{
			"request_id":    requestID,
			"attempt":       attempt,
			"next_delay_ms": delay.Milliseconds(),
		})
		if err := waitWithContext(ctx, delay); err != nil {
			return ResolvedAccount{}, ReconcileTimeoutError(requestID, attempt)
		}
	}

	return ResolvedAccount{}, ReconcileTimeoutError(requestID, maxAttempts)
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
