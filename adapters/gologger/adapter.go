// Package gologger bridges the service's glog sink into go-job's logger
// contracts so queue workers log through the same destination as the handler.
package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultLoggerName labels bridged loggers when the host does not name them.
const DefaultLoggerName = "account-support"

// Bridge carries one resolved logger pair in both the glog and go-job shapes.
type Bridge struct {
	provider    glog.LoggerProvider
	logger      glog.Logger
	jobProvider job.LoggerProvider
	jobLogger   job.Logger
}

// NewBridge resolves with precedence provider > logger > nop, then wraps the
// result for go-job consumers. An empty name falls back to DefaultLoggerName.
func NewBridge(name string, provider glog.LoggerProvider, logger glog.Logger) Bridge {
	if name == "" {
		name = DefaultLoggerName
	}
	resolvedProvider, resolvedLogger := glog.Resolve(name, provider, logger)

	bridge := Bridge{
		provider: resolvedProvider,
		logger:   resolvedLogger,
	}
	if resolvedProvider != nil {
		bridge.jobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	if resolvedLogger != nil {
		bridge.jobLogger = job.GoLogger(resolvedLogger)
	}
	return bridge
}

// WorkerLogger returns the glog logger the delivery worker should use.
func (b Bridge) WorkerLogger() glog.Logger {
	if b.logger == nil {
		return glog.Nop()
	}
	return b.logger
}

func (b Bridge) Provider() glog.LoggerProvider {
	return b.provider
}

// JobProvider exposes the bridged provider for go-job runners. Nil when no
// provider could be resolved.
func (b Bridge) JobProvider() job.LoggerProvider {
	return b.jobProvider
}

// JobLogger exposes the bridged logger for go-job runners.
func (b Bridge) JobLogger() job.Logger {
	return b.jobLogger
}
