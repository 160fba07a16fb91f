package core

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrStatusLookupNotConfigured = errors.New("core: creation status lookup not configured")
	ErrCaseCreatorNotConfigured  = errors.New("core: support case creator not configured")
)

type Service struct {
	config           Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorFactory     ErrorFactory
	errorMapper      ErrorMapper
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	statusLookup     CreationStatusLookup
	caseCreator      SupportCaseCreator
	ledger           CaseLedger
	backoffScheduler BackoffScheduler
	now              func() time.Time
}

type ServiceDependencies struct {
	Logger           Logger
	LoggerProvider   LoggerProvider
	MetricsRecorder  MetricsRecorder
	ErrorFactory     ErrorFactory
	ErrorMapper      ErrorMapper
	ConfigProvider   ConfigProvider
	OptionsResolver  OptionsResolver
	StatusLookup     CreationStatusLookup
	CaseCreator      SupportCaseCreator
	CaseLedger       CaseLedger
	BackoffScheduler BackoffScheduler
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("account-support", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("account-support"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = time.Now
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.backoffScheduler == nil {
		builder.backoffScheduler = ExponentialBackoffScheduler{
			Initial: finalConfig.Reconcile.InitialBackoff,
			Max:     finalConfig.Reconcile.MaxBackoff,
		}
	}

	return &Service{
		config:           finalConfig,
		logger:           logger,
		loggerProvider:   provider,
		metricsRecorder:  builder.metricsRecorder,
		errorFactory:     builder.errorFactory,
		errorMapper:      builder.errorMapper,
		configProvider:   builder.configProvider,
		optionsResolver:  builder.optionsResolver,
		statusLookup:     builder.statusLookup,
		caseCreator:      builder.caseCreator,
		ledger:           builder.ledger,
		backoffScheduler: builder.backoffScheduler,
		now:              builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:           s.logger,
		LoggerProvider:   s.loggerProvider,
		MetricsRecorder:  s.metricsRecorder,
		ErrorFactory:     s.errorFactory,
		ErrorMapper:      s.errorMapper,
		ConfigProvider:   s.configProvider,
		OptionsResolver:  s.optionsResolver,
		StatusLookup:     s.statusLookup,
		CaseCreator:      s.caseCreator,
		CaseLedger:       s.ledger,
		BackoffScheduler: s.backoffScheduler,
	}
}

func (s *Service) Ledger() CaseLedger {
	if s == nil {
		return nil
	}
	return s.ledger
}

// ProcessEvent runs the full lifecycle for one normalized account event:
// resolve the account identifier, render the case template, and open the
// support case. The returned InvocationResult reports the terminal outcome;
// err is non-nil only for failed invocations and carries the retryable or
// permanent classification.
func (s *Service) ProcessEvent(ctx context.Context, event AccountEvent) (result InvocationResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"event_name": event.Name,
		"event_kind": string(event.Kind),
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "process_event", err, fields)
	}()

	if s == nil {
		return InvocationResult{Outcome: OutcomeFailed, Reason: "service not configured"},
			goerrors.New("core: service is nil", goerrors.CategoryInternal).WithTextCode(AccountErrorInternal)
	}
	if err = event.Validate(); err != nil {
		err = s.mapError(err)
		return failedResult(err, ""), err
	}

	account, err := s.ResolveAccount(ctx, event)
	if err != nil {
		err = s.mapError(err)
		return failedResult(err, ""), err
	}
	fields["account_id"] = account.AccountID

	return s.openCaseForAccount(ctx, account.AccountID, fields)
}

// OpenCase skips event resolution and opens a case for an already known
// account identifier. Used by the direct command path where the caller has
// the account in hand.
func (s *Service) OpenCase(ctx context.Context, accountID string) (result InvocationResult, err error) {
	startedAt := time.Now().UTC()
	accountID = strings.TrimSpace(accountID)
	fields := map[string]any{"account_id": accountID}
	defer func() {
		s.observeOperation(ctx, startedAt, "open_case", err, fields)
	}()

	if s == nil {
		return InvocationResult{Outcome: OutcomeFailed, Reason: "service not configured"},
			goerrors.New("core: service is nil", goerrors.CategoryInternal).WithTextCode(AccountErrorInternal)
	}
	if accountID == "" {
		err = s.mapError(MalformedEventError("account id is required", nil))
		return failedResult(err, ""), err
	}
	return s.openCaseForAccount(ctx, accountID, fields)
}

func (s *Service) openCaseForAccount(ctx context.Context, accountID string, fields map[string]any) (InvocationResult, error) {
	request, err := s.ComposeCase(accountID)
	if err != nil {
		err = s.mapError(err)
		return failedResult(err, accountID), err
	}

	supportCase, err := s.SubmitCase(ctx, request)
	if err != nil {
		err = s.mapError(err)
		return failedResult(err, accountID), err
	}

	if fields != nil {
		fields["case_id"] = supportCase.CaseID
		if supportCase.DisplayID != "" {
			fields["display_id"] = supportCase.DisplayID
		}
	}
	return InvocationResult{
		Outcome:   OutcomeSuccess,
		AccountID: accountID,
		CaseID:    supportCase.CaseID,
		DisplayID: supportCase.DisplayID,
	}, nil
}

func failedResult(err error, accountID string) InvocationResult {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return InvocationResult{
		Outcome:   OutcomeFailed,
		Reason:    reason,
		AccountID: accountID,
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now()
	}
	return s.now()
}
