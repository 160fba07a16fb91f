package inbound

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-account-support/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultClaimLease  = 30 * time.Second
	defaultMaxAttempts = 8
)

// Processor drives one invocation per notification delivery. When a ledger
// is configured, each delivery is claimed before processing so redeliveries
// of an already opened case are skipped instead of opening a second one.
type Processor struct {
	Service     core.AccountCaseService
	Normalizer  *Normalizer
	Ledger      core.CaseLedger
	RetryPolicy core.BackoffScheduler
	ClaimLease  time.Duration
	MaxAttempts int
	Now         func() time.Time
}

func NewProcessor(service core.AccountCaseService) *Processor {
	return &Processor{
		Service:     service,
		Normalizer:  NewNormalizer(),
		RetryPolicy: core.ExponentialBackoffScheduler{},
		ClaimLease:  DefaultClaimLease,
		MaxAttempts: defaultMaxAttempts,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Process normalizes a raw payload and runs the full lifecycle once.
// Unsupported events and duplicate deliveries return a Skipped result with a
// nil error; everything else follows the retryable/permanent contract of the
// underlying service.
func (p *Processor) Process(ctx context.Context, payload []byte) (core.InvocationResult, error) {
	if p == nil || p.Service == nil {
		return core.InvocationResult{}, inboundInternal("inbound: processor requires a service", nil)
	}

	normalizer := p.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	event, err := normalizer.Normalize(payload)
	if err != nil {
		if core.IsIgnorable(err) {
			return core.InvocationResult{
				Outcome: core.OutcomeSkipped,
				Reason:  err.Error(),
			}, nil
		}
		return core.InvocationResult{Outcome: core.OutcomeFailed, Reason: err.Error()}, err
	}
	return p.ProcessEvent(ctx, event, payload)
}

// ProcessEvent runs one already normalized event through the claim,
// invoke, settle cycle.
func (p *Processor) ProcessEvent(ctx context.Context, event core.AccountEvent, payload []byte) (core.InvocationResult, error) {
	if p == nil || p.Service == nil {
		return core.InvocationResult{}, inboundInternal("inbound: processor requires a service", nil)
	}

	var claimID string
	claimAttempts := 1
	if p.Ledger != nil {
		deliveryID := strings.TrimSpace(event.DeliveryID)
		if deliveryID == "" {
			return core.InvocationResult{Outcome: core.OutcomeFailed, Reason: "delivery id is required for dedupe"},
				inboundBadInput("inbound: delivery id is required for dedupe", map[string]any{
					"event_name": event.Name,
				})
		}
		record, claimed, err := p.Ledger.Claim(ctx, core.CaseClaim{
			Source:     event.Source,
			DeliveryID: deliveryID,
			EventName:  event.Name,
			AccountID:  event.AccountID,
			RequestID:  event.RequestID,
			Payload:    payload,
		}, p.claimLease())
		if err != nil {
			return core.InvocationResult{Outcome: core.OutcomeFailed, Reason: err.Error()}, err
		}
		if !claimed {
			return core.InvocationResult{
				Outcome:   core.OutcomeSkipped,
				Reason:    "delivery already claimed",
				AccountID: record.AccountID,
				CaseID:    record.CaseID,
				DisplayID: record.DisplayID,
			}, nil
		}
		claimID = record.ClaimID
		if record.Attempts > 0 {
			claimAttempts = record.Attempts
		}
	}

	result, err := p.Service.ProcessEvent(ctx, event)
	if err != nil {
		if p.Ledger != nil && claimID != "" {
			nextAttemptAt := time.Time{}
			if core.IsRetryable(err) {
				nextAttemptAt = p.now().Add(p.retryPolicy().NextDelay(claimAttempts))
			}
			if failErr := p.Ledger.Fail(ctx, claimID, err, nextAttemptAt, p.maxAttempts()); failErr != nil {
				return result, inboundWrapError(
					failErr,
					goerrors.CategoryOperation,
					"inbound: mark delivery failed",
					http.StatusInternalServerError,
					core.AccountErrorInternal,
					map[string]any{"claim_id": claimID},
				)
			}
		}
		return result, err
	}

	if p.Ledger != nil && claimID != "" {
		if completeErr := p.Ledger.Complete(ctx, claimID, result.CaseID, result.DisplayID); completeErr != nil {
			return result, inboundWrapError(
				completeErr,
				goerrors.CategoryOperation,
				"inbound: complete delivery claim",
				http.StatusInternalServerError,
				core.AccountErrorInternal,
				map[string]any{"claim_id": claimID},
			)
		}
	}
	return result, nil
}

func (p *Processor) claimLease() time.Duration {
	if p != nil && p.ClaimLease > 0 {
		return p.ClaimLease
	}
	return DefaultClaimLease
}

func (p *Processor) maxAttempts() int {
	if p != nil && p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return defaultMaxAttempts
}

func (p *Processor) retryPolicy() core.BackoffScheduler {
	if p != nil && p.RetryPolicy != nil {
		return p.RetryPolicy
	}
	return core.ExponentialBackoffScheduler{}
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
