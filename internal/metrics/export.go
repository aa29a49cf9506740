package metrics

import "time"

// Package-level helpers over Default(), meant for dot-import at call sites.
// topic and name are joined into the metric path "topic/name".

func path(topic, name string) string {
	if name == "" {
		return topic
	}
	return topic + "/" + name
}

func MetricDuration(topic, name string, d time.Duration) { Default().Duration(path(topic, name), d) }
func MetricInc(topic, name string)                       { Default().Add(path(topic, name), 1) }
func MetricAdd(topic, name string, delta int64)          { Default().Add(path(topic, name), delta) }
func MetricSuccess(topic, name string)                   { Default().Success(path(topic, name)) }
func MetricOutcome(topic, name, outcome string)          { Default().Outcome(path(topic, name), outcome) }

// MetricFailWithReason records a failure labelled with reason, usually an error class.
func MetricFailWithReason(topic, name, reason string) {
	Default().Failure(path(topic, name), reason)
}

// Snapshot returns every metric in the process-wide store.
func Snapshot() map[string]Entry { return Default().Snapshot() }
