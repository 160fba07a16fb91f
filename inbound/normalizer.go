package inbound

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-account-support/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	EventNameInvite           = "InviteAccountToOrganization"
	EventNameCreateAccount    = "CreateAccount"
	EventNameCreateGovAccount = "CreateGovCloudAccount"
	EventNameCreateResult     = "CreateAccountResult"
)

const DefaultSource = "organizations"

// Normalizer maps raw notification envelopes onto core.AccountEvent. The
// envelope layout follows the provider's audit-trail delivery: event fields
// live under "detail", the delivery id under "id".
type Normalizer struct {
	// Source labels the notification origin on every event. Defaults to
	// DefaultSource when empty.
	Source string
}

func NewNormalizer() *Normalizer {
	return &Normalizer{Source: DefaultSource}
}

func (n *Normalizer) Normalize(payload []byte) (core.AccountEvent, error) {
	if len(payload) == 0 {
		return core.AccountEvent{}, inboundBadInput("inbound: payload is empty", nil)
	}
	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return core.AccountEvent{}, inboundWrapError(
			err,
			goerrors.CategoryBadInput,
			"inbound: payload is not valid json",
			http.StatusBadRequest,
			core.AccountErrorMalformedEvent,
			nil,
		)
	}
	return n.NormalizeMap(envelope)
}

func (n *Normalizer) NormalizeMap(envelope map[string]any) (core.AccountEvent, error) {
	if len(envelope) == 0 {
		return core.AccountEvent{}, inboundBadInput("inbound: envelope is empty", nil)
	}

	detail, ok := envelope["detail"].(map[string]any)
	if !ok || len(detail) == 0 {
		return core.AccountEvent{}, inboundBadInput("inbound: envelope has no detail section", nil)
	}
	eventName := stringAt(detail, "eventName")
	if eventName == "" {
		return core.AccountEvent{}, inboundBadInput("inbound: detail has no event name", nil)
	}

	event := core.AccountEvent{
		Name:       eventName,
		Source:     n.source(),
		DeliveryID: stringAt(envelope, "id"),
		OccurredAt: parseEventTime(envelope),
		Raw:        envelope,
	}

	switch eventName {
	case EventNameInvite:
		event.Kind = core.EventKindInviteAccepted
		accountID := stringPath(detail, "requestParameters", "target", "id")
		if accountID == "" {
			return core.AccountEvent{}, inboundBadInput(
				"inbound: invite event has no target account id",
				map[string]any{"event_name": eventName},
			)
		}
		event.AccountID = accountID
	case EventNameCreateAccount, EventNameCreateGovAccount:
		event.Kind = core.EventKindAccountCreated
		requestID := stringPath(detail, "responseElements", "createAccountStatus", "id")
		if requestID == "" {
			return core.AccountEvent{}, inboundBadInput(
				"inbound: create event has no creation request id",
				map[string]any{"event_name": eventName},
			)
		}
		event.RequestID = requestID
	case EventNameCreateResult:
		event.Kind = core.EventKindCreationCompleted
		accountID := stringPath(detail, "serviceEventDetails", "createAccountStatus", "accountId")
		if accountID == "" {
			return core.AccountEvent{}, inboundBadInput(
				"inbound: creation result has no account id",
				map[string]any{"event_name": eventName},
			)
		}
		event.AccountID = accountID
		if state := stringPath(detail, "serviceEventDetails", "createAccountStatus", "state"); state != "" &&
			!strings.EqualFold(state, string(core.CreationStateSucceeded)) {
			return core.AccountEvent{}, core.CreationFailedError(
				stringPath(detail, "serviceEventDetails", "createAccountStatus", "id"),
				stringPath(detail, "serviceEventDetails", "createAccountStatus", "failureReason"),
			)
		}
	default:
		return core.AccountEvent{}, core.UnsupportedEventError(eventName)
	}

	return event, nil
}

func (n *Normalizer) source() string {
	if n == nil {
		return DefaultSource
	}
	if source := strings.TrimSpace(n.Source); source != "" {
		return source
	}
	return DefaultSource
}

func parseEventTime(envelope map[string]any) time.Time {
	raw := stringAt(envelope, "time")
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func stringAt(values map[string]any, key string) string {
	if values == nil {
		return ""
	}
	value, exists := values[key]
	if !exists || value == nil {
		return ""
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "<nil>" {
		return ""
	}
	return text
}

func stringPath(values map[string]any, path ...string) string {
	current := values
	for index, key := range path {
		if current == nil {
			return ""
		}
		if index == len(path)-1 {
			return stringAt(current, key)
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}
