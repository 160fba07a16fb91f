package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Case.Subject = "Additional account ${account_id} actions"
	cfg.Case.Body = "Please apply enterprise settings to account ${account_id}."
	cfg.Case.CCList = []string{"cloud-team@example.com"}
	cfg.Reconcile.MaxAttempts = 3
	cfg.Reconcile.InitialBackoff = time.Millisecond
	cfg.Reconcile.MaxBackoff = 2 * time.Millisecond
	cfg.Reconcile.Budget = time.Second
	return cfg
}

func newTestService(t *testing.T, cfg Config, options ...Option) *Service {
	t.Helper()
	svc, err := NewService(cfg, options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func inviteEvent() AccountEvent {
	return AccountEvent{
		Kind:       EventKindInviteAccepted,
		Name:       "InviteAccountToOrganization",
		Source:     "organizations",
		DeliveryID: "delivery-1",
		AccountID:  "111122223333",
	}
}

func creationEvent() AccountEvent {
	return AccountEvent{
		Kind:       EventKindAccountCreated,
		Name:       "CreateAccount",
		Source:     "organizations",
		DeliveryID: "delivery-2",
		RequestID:  "car-abc123",
	}
}

type stubStatusLookup struct {
	mu       sync.Mutex
	calls    int
	statuses []CreationStatus
	errs     []error
}

func (s *stubStatusLookup) DescribeCreationStatus(_ context.Context, _ string) (CreationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.calls
	s.calls++
	if index < len(s.errs) && s.errs[index] != nil {
		return CreationStatus{}, s.errs[index]
	}
	if index < len(s.statuses) {
		return s.statuses[index], nil
	}
	if len(s.statuses) > 0 {
		return s.statuses[len(s.statuses)-1], nil
	}
	return CreationStatus{State: CreationStateInProgress}, nil
}

func (s *stubStatusLookup) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubCaseCreator struct {
	mu        sync.Mutex
	requests  []CaseRequest
	caseID    string
	createErr error
}

func (c *stubCaseCreator) CreateCase(_ context.Context, req CaseRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.createErr != nil {
		return "", c.createErr
	}
	if c.caseID == "" {
		return "case-1", nil
	}
	return c.caseID, nil
}

func (c *stubCaseCreator) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *stubCaseCreator) lastRequest() CaseRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return CaseRequest{}
	}
	return c.requests[len(c.requests)-1]
}

type stubDescribingCreator struct {
	stubCaseCreator
	described   SupportCase
	describeErr error
}

func (c *stubDescribingCreator) DescribeCase(_ context.Context, caseID string) (SupportCase, error) {
	if c.describeErr != nil {
		return SupportCase{}, c.describeErr
	}
	described := c.described
	if described.CaseID == "" {
		described.CaseID = caseID
	}
	return described, nil
}
