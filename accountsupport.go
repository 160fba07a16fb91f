package accountsupport

import "github.com/goliatone/go-account-support/core"

type Config = core.Config

type CaseConfig = core.CaseConfig
type ReconcileConfig = core.ReconcileConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type AccountEvent = core.AccountEvent
type AccountEventKind = core.AccountEventKind
type ResolvedAccount = core.ResolvedAccount
type CreationStatus = core.CreationStatus
type CaseTemplate = core.CaseTemplate
type CaseRequest = core.CaseRequest
type SupportCase = core.SupportCase
type InvocationResult = core.InvocationResult
type CaseRecord = core.CaseRecord
type CaseClaim = core.CaseClaim
type CaseRecordFilter = core.CaseRecordFilter
type CaseRecordPage = core.CaseRecordPage

type CreationStatusLookup = core.CreationStatusLookup
type SupportCaseCreator = core.SupportCaseCreator
type SupportCaseDescriber = core.SupportCaseDescriber
type CaseLedger = core.CaseLedger
type CaseRecordReader = core.CaseRecordReader
type BackoffScheduler = core.BackoffScheduler
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithMetricsRecorder      = core.WithMetricsRecorder
	WithErrorFactory         = core.WithErrorFactory
	WithErrorMapper          = core.WithErrorMapper
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver
	WithCreationStatusLookup = core.WithCreationStatusLookup
	WithSupportCaseCreator   = core.WithSupportCaseCreator
	WithCaseLedger           = core.WithCaseLedger
	WithBackoffScheduler     = core.WithBackoffScheduler
	WithClock                = core.WithClock
)

var (
	IsRetryable = core.IsRetryable
	IsIgnorable = core.IsIgnorable
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
