package inbound

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-account-support/core"
)

// MemoryCaseLedger is a process-local core.CaseLedger. It is good enough for
// single-instance deployments and tests; multi-instance deployments should
// use the sql-backed ledger instead.
type MemoryCaseLedger struct {
	mu      sync.Mutex
	records map[string]core.CaseRecord
	claims  map[string]string
	nextID  int
	Now     func() time.Time
}

func NewMemoryCaseLedger() *MemoryCaseLedger {
	return &MemoryCaseLedger{
		records: map[string]core.CaseRecord{},
		claims:  map[string]string{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryCaseLedger) Claim(_ context.Context, claim core.CaseClaim, lease time.Duration) (core.CaseRecord, bool, error) {
	if l == nil {
		return core.CaseRecord{}, false, inboundInternal("inbound: case ledger is nil", nil)
	}
	key, err := ledgerKey(claim.Source, claim.DeliveryID)
	if err != nil {
		return core.CaseRecord{}, false, err
	}
	now := l.now()
	if lease <= 0 {
		lease = DefaultClaimLease
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record, exists := l.records[key]
	if !exists {
		claimID := l.nextClaimID()
		record = core.CaseRecord{
			ID:         claimID,
			ClaimID:    claimID,
			Source:     strings.TrimSpace(claim.Source),
			DeliveryID: strings.TrimSpace(claim.DeliveryID),
			EventName:  strings.TrimSpace(claim.EventName),
			AccountID:  strings.TrimSpace(claim.AccountID),
			RequestID:  strings.TrimSpace(claim.RequestID),
			Status:     core.CaseRecordStatusProcessing,
			Attempts:   1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		leaseExpiry := now.Add(lease)
		record.NextAttemptAt = &leaseExpiry
		l.records[key] = record
		l.claims[record.ClaimID] = key
		return record, true, nil
	}

	switch record.Status {
	case core.CaseRecordStatusOpened, core.CaseRecordStatusDead:
		return record, false, nil
	case core.CaseRecordStatusProcessing:
		if record.NextAttemptAt != nil && now.Before(*record.NextAttemptAt) {
			return record, false, nil
		}
	case core.CaseRecordStatusRetryReady:
		if record.NextAttemptAt != nil && now.Before(*record.NextAttemptAt) {
			return record, false, nil
		}
	}

	// Lease expired or retry window open: reclaim under a fresh claim id.
	if record.ClaimID != "" {
		delete(l.claims, record.ClaimID)
	}
	if record.Status == core.CaseRecordStatusRetryReady {
		if err := record.TransitionTo(core.CaseRecordStatusProcessing, now); err != nil {
			return core.CaseRecord{}, false, err
		}
	}
	record.ClaimID = l.nextClaimID()
	record.Attempts++
	record.Status = core.CaseRecordStatusProcessing
	leaseExpiry := now.Add(lease)
	record.NextAttemptAt = &leaseExpiry
	record.UpdatedAt = now
	l.records[key] = record
	l.claims[record.ClaimID] = key
	return record, true, nil
}

func (l *MemoryCaseLedger) Complete(_ context.Context, claimID string, caseID string, displayID string) error {
	if l == nil {
		return inboundInternal("inbound: case ledger is nil", nil)
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return inboundBadInput("inbound: claim id is required", nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	key, ok := l.claims[claimID]
	if !ok {
		return nil
	}
	record, exists := l.records[key]
	if !exists || record.ClaimID != claimID || record.Status != core.CaseRecordStatusProcessing {
		delete(l.claims, claimID)
		return nil
	}
	now := l.now()
	if err := record.TransitionTo(core.CaseRecordStatusOpened, now); err != nil {
		return err
	}
	record.CaseID = strings.TrimSpace(caseID)
	record.DisplayID = strings.TrimSpace(displayID)
	record.NextAttemptAt = nil
	l.records[key] = record
	delete(l.claims, claimID)
	return nil
}

// Fail settles a claimed delivery. A zero nextAttemptAt marks the record
// dead: the failure is permanent and redelivery must not reopen it. A future
// nextAttemptAt re-arms the record unless attempts are exhausted.
func (l *MemoryCaseLedger) Fail(_ context.Context, claimID string, cause error, nextAttemptAt time.Time, maxAttempts int) error {
	if l == nil {
		return inboundInternal("inbound: case ledger is nil", nil)
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return inboundBadInput("inbound: claim id is required", nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	key, ok := l.claims[claimID]
	if !ok {
		return nil
	}
	record, exists := l.records[key]
	if !exists || record.ClaimID != claimID || record.Status != core.CaseRecordStatusProcessing {
		delete(l.claims, claimID)
		return nil
	}
	now := l.now()
	if cause != nil {
		record.LastError = cause.Error()
	}
	exhausted := maxAttempts > 0 && record.Attempts >= maxAttempts
	if nextAttemptAt.IsZero() || exhausted {
		if err := record.TransitionTo(core.CaseRecordStatusDead, now); err != nil {
			return err
		}
		record.NextAttemptAt = nil
	} else {
		if err := record.TransitionTo(core.CaseRecordStatusRetryReady, now); err != nil {
			return err
		}
		retryAt := nextAttemptAt.UTC()
		record.NextAttemptAt = &retryAt
	}
	l.records[key] = record
	delete(l.claims, claimID)
	return nil
}

func (l *MemoryCaseLedger) Get(_ context.Context, source string, deliveryID string) (core.CaseRecord, error) {
	if l == nil {
		return core.CaseRecord{}, inboundInternal("inbound: case ledger is nil", nil)
	}
	key, err := ledgerKey(source, deliveryID)
	if err != nil {
		return core.CaseRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	record, exists := l.records[key]
	if !exists {
		return core.CaseRecord{}, core.ErrCaseRecordNotFound
	}
	return record, nil
}

func (l *MemoryCaseLedger) List(_ context.Context, filter core.CaseRecordFilter) (core.CaseRecordPage, error) {
	if l == nil {
		return core.CaseRecordPage{}, inboundInternal("inbound: case ledger is nil", nil)
	}

	l.mu.Lock()
	matched := make([]core.CaseRecord, 0, len(l.records))
	for _, record := range l.records {
		if !matchesFilter(record, filter) {
			continue
		}
		matched = append(matched, record)
	}
	l.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 25
	}
	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	return core.CaseRecordPage{
		Items:   matched[start:end],
		Page:    page,
		PerPage: perPage,
		Total:   len(matched),
		HasNext: end < len(matched),
	}, nil
}

func matchesFilter(record core.CaseRecord, filter core.CaseRecordFilter) bool {
	if source := strings.TrimSpace(filter.Source); source != "" && record.Source != source {
		return false
	}
	if eventName := strings.TrimSpace(filter.EventName); eventName != "" && record.EventName != eventName {
		return false
	}
	if accountID := strings.TrimSpace(filter.AccountID); accountID != "" && record.AccountID != accountID {
		return false
	}
	if filter.Status != "" && record.Status != filter.Status {
		return false
	}
	if filter.From != nil && record.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && record.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

func ledgerKey(source string, deliveryID string) (string, error) {
	source = strings.TrimSpace(source)
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return "", inboundBadInput("inbound: delivery id is required", nil)
	}
	if source == "" {
		source = DefaultSource
	}
	return source + ":" + deliveryID, nil
}

func (l *MemoryCaseLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *MemoryCaseLedger) nextClaimID() string {
	l.nextID++
	return fmt.Sprintf("claim_%d", l.nextID)
}

var (
	_ core.CaseLedger       = (*MemoryCaseLedger)(nil)
	_ core.CaseRecordReader = (*MemoryCaseLedger)(nil)
)
