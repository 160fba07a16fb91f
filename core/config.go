package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCaseSeverity    = "low"
	DefaultCaseCategory    = "other-account-issues"
	DefaultCaseServiceCode = "customer-account"
	DefaultCaseIssueType   = "customer-service"
	DefaultCaseLanguage    = "en"
)

const (
	defaultReconcileMaxAttempts    = 8
	defaultReconcileInitialBackoff = 2 * time.Second
	defaultReconcileMaxBackoff     = 30 * time.Second
	defaultReconcileBudget         = 110 * time.Second
)

type CaseConfig struct {
	Subject     string   `koanf:"subject" mapstructure:"subject"`
	Body        string   `koanf:"body" mapstructure:"body"`
	CCList      []string `koanf:"cc_list" mapstructure:"cc_list"`
	Severity    string   `koanf:"severity" mapstructure:"severity"`
	Category    string   `koanf:"category" mapstructure:"category"`
	ServiceCode string   `koanf:"service_code" mapstructure:"service_code"`
	IssueType   string   `koanf:"issue_type" mapstructure:"issue_type"`
	Language    string   `koanf:"language" mapstructure:"language"`
}

func (c CaseConfig) Template() CaseTemplate {
	return CaseTemplate{
		Subject: c.Subject,
		Body:    c.Body,
		CCList:  append([]string(nil), c.CCList...),
	}
}

type ReconcileConfig struct {
	MaxAttempts    int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff" mapstructure:"max_backoff"`
	Budget         time.Duration `koanf:"budget" mapstructure:"budget"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	LogLevel    string          `koanf:"log_level" mapstructure:"log_level"`
	Case        CaseConfig      `koanf:"case" mapstructure:"case"`
	Reconcile   ReconcileConfig `koanf:"reconcile" mapstructure:"reconcile"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "account-support",
		LogLevel:    "info",
		Case: CaseConfig{
			Severity:    DefaultCaseSeverity,
			Category:    DefaultCaseCategory,
			ServiceCode: DefaultCaseServiceCode,
			IssueType:   DefaultCaseIssueType,
			Language:    DefaultCaseLanguage,
		},
		Reconcile: ReconcileConfig{
			MaxAttempts:    defaultReconcileMaxAttempts,
			InitialBackoff: defaultReconcileInitialBackoff,
			MaxBackoff:     defaultReconcileMaxBackoff,
			Budget:         defaultReconcileBudget,
		},
	}
}

// Validate checks only what must hold for the process to start. Template and
// CC list completeness is enforced per invocation so a missing value surfaces
// as a classified permanent failure, not a boot loop.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Reconcile.MaxAttempts < 0 {
		return fmt.Errorf("core: reconcile max_attempts must not be negative")
	}
	if c.Reconcile.InitialBackoff < 0 || c.Reconcile.MaxBackoff < 0 || c.Reconcile.Budget < 0 {
		return fmt.Errorf("core: reconcile backoff durations must not be negative")
	}
	return nil
}

// NormalizedLogLevel maps the configured level onto the supported set,
// falling back to info on anything unrecognized. A log-level typo must never
// stop the handler from starting.
func (c Config) NormalizedLogLevel() string {
	return normalizeLogLevel(c.LogLevel)
}

func normalizeLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return "debug"
	case "info":
		return "info"
	case "warning", "warn":
		return "warning"
	case "error":
		return "error"
	case "critical":
		return "critical"
	default:
		return "info"
	}
}
