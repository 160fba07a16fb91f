package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ AccountCaseService = (*Service)(nil)
	_ BackoffScheduler   = ExponentialBackoffScheduler{}
	_ MetricsRecorder    = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
