package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoffSchedulerDoublesAndClamps(t *testing.T) {
	scheduler := ExponentialBackoffScheduler{Initial: 2 * time.Second, Max: 30 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := scheduler.NextDelay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestResolveAccountInviteShortCircuits(t *testing.T) {
	lookup := &stubStatusLookup{}
	svc := newTestService(t, testConfig(), WithCreationStatusLookup(lookup))

	account, err := svc.ResolveAccount(context.Background(), inviteEvent())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if account.AccountID != "111122223333" {
		t.Fatalf("unexpected account id %q", account.AccountID)
	}
	if lookup.callCount() != 0 {
		t.Fatal("invite events must not hit the status lookup")
	}
}

func TestResolveAccountPollsUntilSucceeded(t *testing.T) {
	lookup := &stubStatusLookup{statuses: []CreationStatus{
		{State: CreationStateInProgress},
		{State: CreationStateInProgress},
		{State: CreationStateSucceeded, AccountID: "444455556666", AccountName: "workload-a"},
	}}
	svc := newTestService(t, testConfig(), WithCreationStatusLookup(lookup))

	account, err := svc.ResolveAccount(context.Background(), creationEvent())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if account.AccountID != "444455556666" {
		t.Fatalf("unexpected account id %q", account.AccountID)
	}
	if account.DisplayName != "workload-a" {
		t.Fatalf("unexpected display name %q", account.DisplayName)
	}
	if lookup.callCount() != 3 {
		t.Fatalf("expected 3 polls, got %d", lookup.callCount())
	}
}

func TestResolveAccountCreationFailedIsPermanent(t *testing.T) {
	lookup := &stubStatusLookup{statuses: []CreationStatus{
		{State: CreationStateFailed, FailureReason: "EMAIL_ALREADY_EXISTS"},
	}}
	svc := newTestService(t, testConfig(), WithCreationStatusLookup(lookup))

	_, err := svc.ResolveAccount(context.Background(), creationEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if ErrorTextCode(err) != AccountErrorCreationFailed {
		t.Fatalf("expected creation failed, got %s", ErrorTextCode(err))
	}
	if IsRetryable(err) {
		t.Fatal("a failed creation never succeeds on redelivery")
	}
	if lookup.callCount() != 1 {
		t.Fatalf("expected one poll, got %d", lookup.callCount())
	}
}

func TestResolveAccountExhaustsAttempts(t *testing.T) {
	lookup := &stubStatusLookup{}
	svc := newTestService(t, testConfig(), WithCreationStatusLookup(lookup))

	_, err := svc.ResolveAccount(context.Background(), creationEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if ErrorTextCode(err) != AccountErrorReconcileTimeout {
		t.Fatalf("expected reconcile timeout, got %s", ErrorTextCode(err))
	}
	if !IsRetryable(err) {
		t.Fatal("a reconcile timeout is retryable through redelivery")
	}
	if lookup.callCount() != testConfig().Reconcile.MaxAttempts {
		t.Fatalf("expected %d polls, got %d", testConfig().Reconcile.MaxAttempts, lookup.callCount())
	}
}

func TestResolveAccountLookupFailureIsRetryable(t *testing.T) {
	lookup := &stubStatusLookup{errs: []error{errors.New("gateway exploded")}}
	svc := newTestService(t, testConfig(), WithCreationStatusLookup(lookup))

	_, err := svc.ResolveAccount(context.Background(), creationEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Fatalf("lookup failures must be retryable: %v", err)
	}
}

func TestResolveAccountHonorsContextCancellation(t *testing.T) {
	lookup := &stubStatusLookup{errs: []error{context.Canceled}}
	svc := newTestService(t, testConfig(), WithCreationStatusLookup(lookup))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ResolveAccount(ctx, creationEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if ErrorTextCode(err) != AccountErrorReconcileTimeout {
		t.Fatalf("expected reconcile timeout, got %v", err)
	}
}

func TestResolveAccountSucceededWithoutAccountID(t *testing.T) {
	lookup := &stubStatusLookup{statuses: []CreationStatus{
		{State: CreationStateSucceeded},
	}}
	svc := newTestService(t, testConfig(), WithCreationStatusLookup(lookup))

	_, err := svc.ResolveAccount(context.Background(), creationEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if ErrorTextCode(err) != AccountErrorMalformedEvent {
		t.Fatalf("expected malformed event, got %s", ErrorTextCode(err))
	}
}

func TestResolveAccountRequiresLookupForCreationEvents(t *testing.T) {
	svc := newTestService(t, testConfig())

	_, err := svc.ResolveAccount(context.Background(), creationEvent())
	if !errors.Is(err, ErrStatusLookupNotConfigured) {
		t.Fatalf("expected ErrStatusLookupNotConfigured, got %v", err)
	}
}

func TestWaitWithContext(t *testing.T) {
	if err := waitWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero delay: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitWithContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
