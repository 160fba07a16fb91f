package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig    Config
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

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithCreationStatusLookup(lookup CreationStatusLookup) Option {
	return func(b *serviceBuilder) {
		b.statusLookup = lookup
	}
}

func WithSupportCaseCreator(creator SupportCaseCreator) Option {
	return func(b *serviceBuilder) {
		b.caseCreator = creator
	}
}

func WithCaseLedger(ledger CaseLedger) Option {
	return func(b *serviceBuilder) {
		b.ledger = ledger
	}
}

func WithBackoffScheduler(scheduler BackoffScheduler) Option {
	return func(b *serviceBuilder) {
		b.backoffScheduler = scheduler
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	return serviceBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return accountErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvRawConfigLoader reads the flat environment contract this handler has
// always honored: CC_LIST (comma separated), SUBJECT, COMMUNICATION_BODY,
// LOG_LEVEL. Lookup is injectable for tests; nil means os.LookupEnv.
type EnvRawConfigLoader struct {
	Lookup func(key string) (string, bool)
}

func (l EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw := map[string]any{}
	caseValues := map[string]any{}
	if value, ok := lookup("CC_LIST"); ok {
		caseValues["cc_list"] = splitCCList(value)
	}
	if value, ok := lookup("SUBJECT"); ok && strings.TrimSpace(value) != "" {
		caseValues["subject"] = value
	}
	if value, ok := lookup("COMMUNICATION_BODY"); ok && strings.TrimSpace(value) != "" {
		caseValues["body"] = value
	}
	if len(caseValues) > 0 {
		raw["case"] = caseValues
	}
	if value, ok := lookup("LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		raw["log_level"] = normalizeLogLevel(value)
	}
	return raw, nil
}

func splitCCList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.LogLevel) != "" {
		layer["log_level"] = cfg.LogLevel
	}

	caseLayer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Case.Subject) != "" {
		caseLayer["subject"] = cfg.Case.Subject
	}
	if includeZero || strings.TrimSpace(cfg.Case.Body) != "" {
		caseLayer["body"] = cfg.Case.Body
	}
	if includeZero || len(cfg.Case.CCList) > 0 {
		caseLayer["cc_list"] = append([]string(nil), cfg.Case.CCList...)
	}
	if includeZero || strings.TrimSpace(cfg.Case.Severity) != "" {
		caseLayer["severity"] = cfg.Case.Severity
	}
	if includeZero || strings.TrimSpace(cfg.Case.Category) != "" {
		caseLayer["category"] = cfg.Case.Category
	}
	if includeZero || strings.TrimSpace(cfg.Case.ServiceCode) != "" {
		caseLayer["service_code"] = cfg.Case.ServiceCode
	}
	if includeZero || strings.TrimSpace(cfg.Case.IssueType) != "" {
		caseLayer["issue_type"] = cfg.Case.IssueType
	}
	if includeZero || strings.TrimSpace(cfg.Case.Language) != "" {
		caseLayer["language"] = cfg.Case.Language
	}
	if len(caseLayer) > 0 {
		layer["case"] = caseLayer
	}

	reconcileLayer := map[string]any{}
	if includeZero || cfg.Reconcile.MaxAttempts > 0 {
		reconcileLayer["max_attempts"] = cfg.Reconcile.MaxAttempts
	}
	if includeZero || cfg.Reconcile.InitialBackoff > 0 {
		reconcileLayer["initial_backoff"] = cfg.Reconcile.InitialBackoff
	}
	if includeZero || cfg.Reconcile.MaxBackoff > 0 {
		reconcileLayer["max_backoff"] = cfg.Reconcile.MaxBackoff
	}
	if includeZero || cfg.Reconcile.Budget > 0 {
		reconcileLayer["budget"] = cfg.Reconcile.Budget
	}
	if len(reconcileLayer) > 0 {
		layer["reconcile"] = reconcileLayer
	}
	return layer
}
