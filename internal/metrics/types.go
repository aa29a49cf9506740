package metrics

// Kind says how a metric's Data is shaped.
type Kind string

const (
	KindTiming  Kind = "timing"  // TimingStats
	KindCounter Kind = "counter" // int64
	KindRate    Kind = "rate"    // RateStats
	KindOutcome Kind = "outcome" // OutcomeStats
)

// Health grades timings and success rates. Counters and outcomes carry none.
type Health string

const (
	HealthOK       Health = "ok"
	HealthDegraded Health = "degraded"
	HealthFailing  Health = "failing"
)

// Entry is one metric as served by the metrics endpoint.
type Entry struct {
	Path   string `json:"path"`
	Kind   Kind   `json:"kind"`
	Health Health `json:"health,omitempty"`
	Data   any    `json:"data"`
}

// TimingStats summarises recorded durations in milliseconds.
type TimingStats struct {
	Count  int64   `json:"count"`
	AvgMs  float64 `json:"avgMs"`
	MinMs  float64 `json:"minMs"`
	MaxMs  float64 `json:"maxMs"`
	LastMs float64 `json:"lastMs"`
	P95Ms  float64 `json:"p95Ms"`
}

// RateStats summarises successes and failures. RecentRate covers the last
// recentWindow operations only.
type RateStats struct {
	Success     int64            `json:"success"`
	Failures    int64            `json:"failures"`
	SuccessRate float64          `json:"successRate"`
	RecentRate  float64          `json:"recentRate"`
	Reasons     map[string]int64 `json:"reasons,omitempty"`
}

// OutcomeStats counts named outcomes, e.g. which provider served a request.
type OutcomeStats struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

func timingHealth(avgMs float64) Health {
	switch {
	case avgMs > 30000:
		return HealthFailing
	case avgMs > 10000:
		return HealthDegraded
	}
	return HealthOK
}

func rateHealth(recent float64, samples int) Health {
	switch {
	case samples == 0:
		return HealthOK
	case recent < 50:
		return HealthFailing
	case recent < 90:
		return HealthDegraded
	}
	return HealthOK
}
