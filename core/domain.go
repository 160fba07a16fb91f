package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidEventKind             = errors.New("core: invalid account event kind")
	ErrInvalidCaseRecordTransition  = errors.New("core: invalid case record status transition")
	ErrCaseRecordNotFound           = errors.New("core: case record not found")
	ErrInvalidCreationState         = errors.New("core: invalid creation state")
	ErrAccountIdentifierUnavailable = errors.New("core: account identifier unavailable")
)

type AccountEventKind string

const (
	EventKindInviteAccepted    AccountEventKind = "invite_accepted"
	EventKindAccountCreated    AccountEventKind = "account_created"
	EventKindCreationCompleted AccountEventKind = "creation_completed"
)

// AccountEvent is the canonical form of an account lifecycle notification.
// It is constructed once by the inbound normalizer and never mutated after.
type AccountEvent struct {
	Kind       AccountEventKind
	Name       string
	Source     string
	DeliveryID string
	OccurredAt time.Time
	// RequestID is set for account_created events and identifies the
	// asynchronous creation request to reconcile.
	RequestID string
	// AccountID is set for invite_accepted and creation_completed events,
	// where the provider already reports the concrete account.
	AccountID string
	Raw       map[string]any
}

func (e AccountEvent) Validate() error {
	switch e.Kind {
	case EventKindAccountCreated:
		if strings.TrimSpace(e.RequestID) == "" {
			return fmt.Errorf("%w: %s event requires a creation request id", ErrInvalidEventKind, e.Kind)
		}
	case EventKindInviteAccepted, EventKindCreationCompleted:
		if strings.TrimSpace(e.AccountID) == "" {
			return fmt.Errorf("%w: %s event requires an account id", ErrInvalidEventKind, e.Kind)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEventKind, e.Kind)
	}
	return nil
}

// NeedsReconciliation reports whether the event carries only a creation
// request id and must be resolved against the provider's status lookup.
func (e AccountEvent) NeedsReconciliation() bool {
	return e.Kind == EventKindAccountCreated
}

type ResolvedAccount struct {
	AccountID   string
	DisplayName string
}

func (a ResolvedAccount) Validate() error {
	if strings.TrimSpace(a.AccountID) == "" {
		return ErrAccountIdentifierUnavailable
	}
	return nil
}

type CreationState string

const (
	CreationStateInProgress CreationState = "IN_PROGRESS"
	CreationStateSucceeded  CreationState = "SUCCEEDED"
	CreationStateFailed     CreationState = "FAILED"
)

// CreationStatus is one observation of an asynchronous account creation
// request, as reported by the provider's status lookup.
type CreationStatus struct {
	State         CreationState
	AccountID     string
	AccountName   string
	FailureReason string
}

func (s CreationStatus) Validate() error {
	switch s.State {
	case CreationStateInProgress, CreationStateSucceeded, CreationStateFailed:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCreationState, s.State)
	}
}

// AccountIDToken is the only substitution token case templates understand.
// Unknown ${...} tokens are left verbatim.
const AccountIDToken = "${account_id}"

type CaseTemplate struct {
	Subject string
	Body    string
	CCList  []string
}

func (t CaseTemplate) Validate() error {
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("core: case subject template is required")
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("core: case body template is required")
	}
	if len(normalizeCCList(t.CCList)) == 0 {
		return fmt.Errorf("core: case cc list requires at least one address")
	}
	return nil
}

// CaseRequest is a fully rendered support case submission. It exists only for
// the duration of a single invocation.
type CaseRequest struct {
	Subject     string
	Body        string
	CCList      []string
	Severity    string
	Category    string
	ServiceCode string
	IssueType   string
	Language    string
}

type SupportCase struct {
	CaseID    string
	DisplayID string
	Status    string
	Subject   string
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// InvocationResult is the single structured outcome of one handler
// invocation.
type InvocationResult struct {
	Outcome   Outcome
	Reason    string
	AccountID string
	CaseID    string
	DisplayID string
}

type CaseRecordStatus string

const (
	CaseRecordStatusProcessing CaseRecordStatus = "processing"
	CaseRecordStatusOpened     CaseRecordStatus = "opened"
	CaseRecordStatusRetryReady CaseRecordStatus = "retry_ready"
	CaseRecordStatusDead       CaseRecordStatus = "dead"
)

// CaseRecord is one ledger row per claimed notification delivery. The ledger
// is optional; without one, duplicate deliveries may open duplicate cases.
type CaseRecord struct {
	ID            string
	ClaimID       string
	Source        string
	DeliveryID    string
	EventName     string
	AccountID     string
	RequestID     string
	CaseID        string
	DisplayID     string
	Status        CaseRecordStatus
	Attempts      int
	LastError     string
	NextAttemptAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *CaseRecord) TransitionTo(status CaseRecordStatus, now time.Time) error {
	if r == nil {
		return nil
	}
	if r.Status == status {
		r.UpdatedAt = now
		return nil
	}
	if !caseRecordTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidCaseRecordTransition, r.Status, status)
	}
	r.Status = status
	r.UpdatedAt = now
	return nil
}

func caseRecordTransitionAllowed(current, next CaseRecordStatus) bool {
	allowed := map[CaseRecordStatus]map[CaseRecordStatus]struct{}{
		CaseRecordStatusProcessing: {
			CaseRecordStatusOpened:     {},
			CaseRecordStatusRetryReady: {},
			CaseRecordStatusDead:       {},
		},
		CaseRecordStatusRetryReady: {
			CaseRecordStatusProcessing: {},
			CaseRecordStatusDead:       {},
		},
		CaseRecordStatusOpened: {},
		CaseRecordStatusDead:   {},
	}
	_, ok := allowed[current][next]
	return ok
}

type CaseRecordFilter struct {
	Source    string
	EventName string
	AccountID string
	Status    CaseRecordStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

type CaseRecordPage struct {
	Items   []CaseRecord
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

func normalizeCCList(addresses []string) []string {
	if len(addresses) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(addresses))
	for _, address := range addresses {
		trimmed := strings.TrimSpace(address)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
