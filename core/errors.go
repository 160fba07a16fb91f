package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AccountErrorUnsupportedEvent = "ACCOUNT_EVENT_UNSUPPORTED"
	AccountErrorMalformedEvent   = "ACCOUNT_EVENT_MALFORMED"
	AccountErrorReconcileTimeout = "ACCOUNT_RECONCILE_TIMEOUT"
	AccountErrorCreationFailed   = "ACCOUNT_CREATION_FAILED"
	AccountErrorSubmitTransient  = "SUPPORT_SUBMIT_TRANSIENT"
	AccountErrorSubmitPermanent  = "SUPPORT_SUBMIT_PERMANENT"
	AccountErrorInternal         = "SUPPORT_INTERNAL_ERROR"
)

// UnsupportedEventError marks a notification this handler does not process.
// The orchestrator converts it into a Skipped outcome, not a failure.
func UnsupportedEventError(eventName string) error {
	return goerrors.New(
		"core: unsupported lifecycle event "+strings.TrimSpace(eventName),
		goerrors.CategoryNotFound,
	).
		WithCode(http.StatusNotFound).
		WithTextCode(AccountErrorUnsupportedEvent).
		WithMetadata(map[string]any{"event_name": strings.TrimSpace(eventName)})
}

func MalformedEventError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(AccountErrorMalformedEvent)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ReconcileTimeoutError(requestID string, attempts int) error {
	return goerrors.New(
		"core: account creation still in progress after poll budget",
		goerrors.CategoryOperation,
	).
		WithCode(http.StatusGatewayTimeout).
		WithTextCode(AccountErrorReconcileTimeout).
		WithMetadata(map[string]any{
			"request_id": strings.TrimSpace(requestID),
			"attempts":   attempts,
		})
}

func CreationFailedError(requestID string, reason string) error {
	message := "core: account creation failed at the provider"
	if strings.TrimSpace(reason) != "" {
		message += ": " + strings.TrimSpace(reason)
	}
	return goerrors.New(message, goerrors.CategoryOperation).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(AccountErrorCreationFailed).
		WithMetadata(map[string]any{
			"request_id": strings.TrimSpace(requestID),
			"reason":     strings.TrimSpace(reason),
		})
}

// StatusLookupError wraps a failed creation status query. Lookup failures
// are always retryable through redelivery.
func StatusLookupError(source error, requestID string) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "core: creation status lookup failed").
		WithCode(http.StatusBadGateway).
		WithMetadata(map[string]any{"request_id": strings.TrimSpace(requestID)})
}

func TransientSubmitError(source error, message string) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryRateLimit).
			WithCode(http.StatusTooManyRequests).
			WithTextCode(AccountErrorSubmitTransient)
	}
	return goerrors.Wrap(source, goerrors.CategoryRateLimit, message).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(AccountErrorSubmitTransient)
}

func PermanentSubmitError(source error, message string) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryValidation).
			WithCode(http.StatusBadRequest).
			WithTextCode(AccountErrorSubmitPermanent)
	}
	return goerrors.Wrap(source, goerrors.CategoryValidation, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(AccountErrorSubmitPermanent)
}

// IsRetryable reports whether redelivering the same notification may succeed.
// Only reconcile timeouts and transient submit failures qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
	case AccountErrorReconcileTimeout, AccountErrorSubmitTransient:
		return true
	}
	return richErr.Category == goerrors.CategoryRateLimit ||
		richErr.Category == goerrors.CategoryExternal
}

// IsIgnorable reports whether the error means "not for us" rather than a
// real failure.
func IsIgnorable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.TrimSpace(strings.ToUpper(richErr.TextCode)) == AccountErrorUnsupportedEvent
}

func ErrorTextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return AccountErrorInternal
	}
	return strings.TrimSpace(richErr.TextCode)
}

func accountErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAccountErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "throttl"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		return newAccountError(err.Error(), goerrors.CategoryRateLimit, AccountErrorSubmitTransient)
	case strings.Contains(msg, "unsupported") && strings.Contains(msg, "event"):
		return newAccountError(err.Error(), goerrors.CategoryNotFound, AccountErrorUnsupportedEvent)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return newAccountError(err.Error(), goerrors.CategoryOperation, AccountErrorReconcileTimeout)
	case strings.Contains(msg, "required"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "malformed"):
		return newAccountError(err.Error(), goerrors.CategoryBadInput, AccountErrorMalformedEvent)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAccountErrorEnvelope(mapped)
}

func newAccountError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAccountErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureAccountErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = accountHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAccountTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAccountTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AccountErrorMalformedEvent
	case goerrors.CategoryNotFound:
		return AccountErrorUnsupportedEvent
	case goerrors.CategoryRateLimit, goerrors.CategoryExternal:
		return AccountErrorSubmitTransient
	case goerrors.CategoryOperation:
		return AccountErrorCreationFailed
	default:
		return AccountErrorInternal
	}
}

func accountHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
