package inbound

import (
	"testing"

	"github.com/goliatone/go-account-support/core"
)

func invitePayload() []byte {
	return []byte(`{
		"id": "delivery-invite-1",
		"source": "aws.organizations",
		"time": "2026-03-01T12:00:00Z",
		"detail": {
			"eventName": "InviteAccountToOrganization",
			"requestParameters": {
				"target": {"id": "111122223333", "type": "ACCOUNT"}
			}
		}
	}`)
}

func createPayload() []byte {
	return []byte(`{
		"id": "delivery-create-1",
		"source": "aws.organizations",
		"detail": {
			"eventName": "CreateAccount",
			"responseElements": {
				"createAccountStatus": {"id": "car-abc123", "state": "IN_PROGRESS"}
			}
		}
	}`)
}

func createResultPayload(state string) []byte {
	return []byte(`{
		"id": "delivery-result-1",
		"source": "aws.organizations",
		"detail": {
			"eventName": "CreateAccountResult",
			"serviceEventDetails": {
				"createAccountStatus": {
					"id": "car-abc123",
					"state": "` + state + `",
					"accountId": "444455556666",
					"failureReason": "EMAIL_ALREADY_EXISTS"
				}
			}
		}
	}`)
}

func TestNormalizeInvite(t *testing.T) {
	event, err := NewNormalizer().Normalize(invitePayload())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Kind != core.EventKindInviteAccepted {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.AccountID != "111122223333" {
		t.Fatalf("unexpected account id %q", event.AccountID)
	}
	if event.DeliveryID != "delivery-invite-1" {
		t.Fatalf("unexpected delivery id %q", event.DeliveryID)
	}
	if event.OccurredAt.IsZero() {
		t.Fatal("expected parsed event time")
	}
	if err := event.Validate(); err != nil {
		t.Fatalf("normalized events must validate: %v", err)
	}
}

func TestNormalizeCreateAccount(t *testing.T) {
	event, err := NewNormalizer().Normalize(createPayload())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Kind != core.EventKindAccountCreated {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.RequestID != "car-abc123" {
		t.Fatalf("unexpected request id %q", event.RequestID)
	}
	if !event.NeedsReconciliation() {
		t.Fatal("create events must reconcile")
	}
}

func TestNormalizeGovCloudCreate(t *testing.T) {
	payload := []byte(`{
		"id": "delivery-gov-1",
		"detail": {
			"eventName": "CreateGovCloudAccount",
			"responseElements": {
				"createAccountStatus": {"id": "car-gov456"}
			}
		}
	}`)
	event, err := NewNormalizer().Normalize(payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Kind != core.EventKindAccountCreated {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.RequestID != "car-gov456" {
		t.Fatalf("unexpected request id %q", event.RequestID)
	}
}

func TestNormalizeCreateAccountResult(t *testing.T) {
	event, err := NewNormalizer().Normalize(createResultPayload("SUCCEEDED"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Kind != core.EventKindCreationCompleted {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.AccountID != "444455556666" {
		t.Fatalf("unexpected account id %q", event.AccountID)
	}
	if event.NeedsReconciliation() {
		t.Fatal("creation results already carry the account id")
	}
}

func TestNormalizeCreateAccountResultFailedState(t *testing.T) {
	_, err := NewNormalizer().Normalize(createResultPayload("FAILED"))
	if err == nil {
		t.Fatal("expected error")
	}
	if core.ErrorTextCode(err) != core.AccountErrorCreationFailed {
		t.Fatalf("expected creation failed, got %s", core.ErrorTextCode(err))
	}
	if core.IsRetryable(err) {
		t.Fatal("a failed creation is permanent")
	}
}

func TestNormalizeUnsupportedEvent(t *testing.T) {
	payload := []byte(`{
		"id": "delivery-x",
		"detail": {"eventName": "CloseAccount"}
	}`)
	_, err := NewNormalizer().Normalize(payload)
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.IsIgnorable(err) {
		t.Fatalf("unsupported events must be ignorable: %v", err)
	}
}

func TestNormalizeMalformedPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", nil},
		{"invalid json", []byte(`{`)},
		{"no detail", []byte(`{"id": "x"}`)},
		{"no event name", []byte(`{"detail": {"requestParameters": {}}}`)},
		{"invite without target", []byte(`{"detail": {"eventName": "InviteAccountToOrganization"}}`)},
		{"create without status id", []byte(`{"detail": {"eventName": "CreateAccount", "responseElements": {}}}`)},
		{"result without account id", []byte(`{"detail": {"eventName": "CreateAccountResult", "serviceEventDetails": {"createAccountStatus": {"state": "SUCCEEDED"}}}}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNormalizer().Normalize(tc.payload)
			if err == nil {
				t.Fatal("expected error")
			}
			if core.ErrorTextCode(err) != core.AccountErrorMalformedEvent {
				t.Fatalf("expected malformed code, got %s (%v)", core.ErrorTextCode(err), err)
			}
			if core.IsRetryable(err) {
				t.Fatalf("malformed payloads must not retry: %v", err)
			}
		})
	}
}

func TestNormalizerSourceDefault(t *testing.T) {
	event, err := (&Normalizer{}).Normalize(invitePayload())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Source != DefaultSource {
		t.Fatalf("expected default source, got %q", event.Source)
	}

	event, err = (&Normalizer{Source: "custom"}).Normalize(invitePayload())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Source != "custom" {
		t.Fatalf("expected custom source, got %q", event.Source)
	}
}
