package core

import "context"

// metricNamespace prefixes every metric the service emits.
const metricNamespace = "account_support"

func counterMetricName(operation string) string {
	return metricNamespace + "." + operation + ".total"
}

func durationMetricName(operation string) string {
	return metricNamespace + "." + operation + ".duration_ms"
}

// NopMetricsRecorder discards every measurement. It is the default when no
// recorder is configured.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
