package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestNewBridgeDeterministicFallback(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	providerLogger := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: providerLogger}

	bridge := NewBridge("account-support", provider, loggerOnly)
	got := bridge.WorkerLogger().(*capturingLogger)
	if got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	bridge = NewBridge("", nil, loggerOnly)
	got = bridge.WorkerLogger().(*capturingLogger)
	if got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if bridge.Provider() == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	bridge = NewBridge("account-support", nil, nil)
	if bridge.WorkerLogger() == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestBridgeCarriesFieldsIntoJobLogger(t *testing.T) {
	providerLogger := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: providerLogger}

	bridge := NewBridge("account-support", provider, nil)
	if bridge.JobProvider() == nil {
		t.Fatalf("expected go-job provider bridge")
	}
	if bridge.JobLogger() == nil {
		t.Fatalf("expected go-job logger bridge")
	}

	bridged := bridge.JobProvider().GetLogger("account-support")
	bridged.Info("case opened", "account_id", "111122223333")

	captured := providerLogger.lastInfo
	if captured.msg != "case opened" {
		t.Fatalf("expected bridged message, got %q", captured.msg)
	}
	if captured.args[0] != "account_id" || captured.args[1] != "111122223333" {
		t.Fatalf("expected bridged args, got %#v", captured.args)
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
