package core

import (
	"errors"
	"testing"
	"time"
)

func TestAccountEventValidate(t *testing.T) {
	cases := []struct {
		name    string
		event   AccountEvent
		wantErr bool
	}{
		{name: "invite with account id", event: inviteEvent()},
		{name: "creation with request id", event: creationEvent()},
		{
			name: "completed creation with account id",
			event: AccountEvent{
				Kind:      EventKindCreationCompleted,
				Name:      "CreateAccountResult",
				AccountID: "444455556666",
			},
		},
		{
			name:    "invite missing account id",
			event:   AccountEvent{Kind: EventKindInviteAccepted, Name: "InviteAccountToOrganization"},
			wantErr: true,
		},
		{
			name:    "creation missing request id",
			event:   AccountEvent{Kind: EventKindAccountCreated, Name: "CreateAccount"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			event:   AccountEvent{Kind: "budget_alert"},
			wantErr: true,
		},
		{
			name:    "empty kind",
			event:   AccountEvent{},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidEventKind) {
					t.Fatalf("expected ErrInvalidEventKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccountEventNeedsReconciliation(t *testing.T) {
	if !creationEvent().NeedsReconciliation() {
		t.Fatal("creation events must reconcile")
	}
	if inviteEvent().NeedsReconciliation() {
		t.Fatal("invite events already carry the account id")
	}
	completed := AccountEvent{Kind: EventKindCreationCompleted, AccountID: "444455556666"}
	if completed.NeedsReconciliation() {
		t.Fatal("completed creation events already carry the account id")
	}
}

func TestCaseTemplateValidate(t *testing.T) {
	valid := CaseTemplate{
		Subject: "subject",
		Body:    "body",
		CCList:  []string{"ops@example.com"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missingSubject := valid
	missingSubject.Subject = "   "
	if err := missingSubject.Validate(); err == nil {
		t.Fatal("expected subject error")
	}

	missingBody := valid
	missingBody.Body = ""
	if err := missingBody.Validate(); err == nil {
		t.Fatal("expected body error")
	}

	emptyCC := valid
	emptyCC.CCList = []string{" ", ""}
	if err := emptyCC.Validate(); err == nil {
		t.Fatal("expected cc list error")
	}
}

func TestNormalizeCCList(t *testing.T) {
	got := normalizeCCList([]string{" a@example.com ", "", "B@example.com", "a@example.com", "b@EXAMPLE.com"})
	want := []string{"a@example.com", "B@example.com"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCaseRecordStatusTransitions(t *testing.T) {
	allowed := []struct {
		from CaseRecordStatus
		to   CaseRecordStatus
	}{
		{CaseRecordStatusProcessing, CaseRecordStatusOpened},
		{CaseRecordStatusProcessing, CaseRecordStatusRetryReady},
		{CaseRecordStatusProcessing, CaseRecordStatusDead},
		{CaseRecordStatusRetryReady, CaseRecordStatusProcessing},
	}
	now := time.Now().UTC()
	for _, transition := range allowed {
		record := CaseRecord{Status: transition.from}
		if err := record.TransitionTo(transition.to, now); err != nil {
			t.Fatalf("transition %s -> %s: %v", transition.from, transition.to, err)
		}
		if record.Status != transition.to {
			t.Fatalf("status not updated for %s -> %s", transition.from, transition.to)
		}
	}

	denied := []struct {
		from CaseRecordStatus
		to   CaseRecordStatus
	}{
		{CaseRecordStatusOpened, CaseRecordStatusProcessing},
		{CaseRecordStatusOpened, CaseRecordStatusRetryReady},
		{CaseRecordStatusDead, CaseRecordStatusProcessing},
	}
	for _, transition := range denied {
		record := CaseRecord{Status: transition.from}
		if err := record.TransitionTo(transition.to, now); !errors.Is(err, ErrInvalidCaseRecordTransition) {
			t.Fatalf("expected invalid transition %s -> %s, got %v", transition.from, transition.to, err)
		}
	}
}
