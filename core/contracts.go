package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// CreationStatusLookup is the provider capability that resolves an
// asynchronous creation request to its current status.
type CreationStatusLookup interface {
	DescribeCreationStatus(ctx context.Context, requestID string) (CreationStatus, error)
}

// SupportCaseCreator is the provider capability that opens a support case and
// returns its case id. One call per invocation; retry is delegated to the
// invoking environment.
type SupportCaseCreator interface {
	CreateCase(ctx context.Context, req CaseRequest) (string, error)
}

// SupportCaseDescriber is optionally implemented by a SupportCaseCreator to
// resolve the human-facing display id after a case is opened.
type SupportCaseDescriber interface {
	DescribeCase(ctx context.Context, caseID string) (SupportCase, error)
}

// CaseLedger claims one notification delivery at a time so duplicate
// deliveries do not open duplicate cases. Wiring a ledger is optional.
type CaseLedger interface {
	Claim(ctx context.Context, claim CaseClaim, lease time.Duration) (CaseRecord, bool, error)
	Complete(ctx context.Context, claimID string, caseID string, displayID string) error
	Fail(ctx context.Context, claimID string, cause error, nextAttemptAt time.Time, maxAttempts int) error
	Get(ctx context.Context, source string, deliveryID string) (CaseRecord, error)
}

// CaseClaim identifies one delivery in the ledger.
type CaseClaim struct {
	Source     string
	DeliveryID string
	EventName  string
	AccountID  string
	RequestID  string
	Payload    []byte
}

// CaseRecordReader is the query-side ledger contract.
type CaseRecordReader interface {
	Get(ctx context.Context, source string, deliveryID string) (CaseRecord, error)
	List(ctx context.Context, filter CaseRecordFilter) (CaseRecordPage, error)
}

// AccountCaseService is the façade the inbound, command, and transport
// layers program against.
type AccountCaseService interface {
	ProcessEvent(ctx context.Context, event AccountEvent) (InvocationResult, error)
	OpenCase(ctx context.Context, accountID string) (InvocationResult, error)
	ResolveAccount(ctx context.Context, event AccountEvent) (ResolvedAccount, error)
	ComposeCase(accountID string) (CaseRequest, error)
	SubmitCase(ctx context.Context, req CaseRequest) (SupportCase, error)
	Config() Config
}

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
