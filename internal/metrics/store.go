// Package metrics keeps in-process timings, counters, success rates and
// outcome tallies for provider calls, fallback walks and embeddings.
// Snapshots are served as JSON by the HTTP API; nothing is persisted.
package metrics

import (
	"maps"
	"slices"
	"sync"
	"time"
)

const (
	timingSamples = 500 // ring size for p95
	recentWindow  = 100 // operations in RateStats.RecentRate
)

type timing struct {
	count      int64
	total      time.Duration
	min, max   time.Duration
	last       time.Duration
	samples    []time.Duration
	nextSample int
}

type rate struct {
	success, failures int64
	reasons           map[string]int64
	recent            [recentWindow]bool
	recentNext        int
	recentLen         int
}

type outcome struct {
	counts map[string]int64
	total  int64
}

// Store holds every metric, keyed by "topic/name" path.
// The zero value is not usable; call NewStore.
type Store struct {
	mu       sync.Mutex
	timings  map[string]*timing
	counters map[string]int64
	rates    map[string]*rate
	outcomes map[string]*outcome
}

var (
	global     *Store
	globalOnce sync.Once
)

// Default returns the process-wide store used by the Metric* helpers.
func Default() *Store {
	globalOnce.Do(func() { global = NewStore() })
	return global
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset drops every recorded metric.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timings = make(map[string]*timing)
	s.counters = make(map[string]int64)
	s.rates = make(map[string]*rate)
	s.outcomes = make(map[string]*outcome)
}

// Duration records one timing sample.
func (s *Store) Duration(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timings[path]
	if !ok {
		t = &timing{min: d, max: d, samples: make([]time.Duration, 0, timingSamples)}
		s.timings[path] = t
	}
	t.count++
	t.total += d
	t.last = d
	t.min = min(t.min, d)
	t.max = max(t.max, d)
	if len(t.samples) < timingSamples {
		t.samples = append(t.samples, d)
		return
	}
	t.samples[t.nextSample] = d
	t.nextSample = (t.nextSample + 1) % timingSamples
}

// Add moves a counter by delta.
func (s *Store) Add(path string, delta int64) {
	s.mu.Lock()
	s.counters[path] += delta
	s.mu.Unlock()
}

// Success records a successful operation.
func (s *Store) Success(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rate(path)
	r.success++
	r.push(true)
}

// Failure records a failed operation. An empty reason is counted but not labelled.
func (s *Store) Failure(path, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rate(path)
	r.failures++
	if reason != "" {
		r.reasons[reason]++
	}
	r.push(false)
}

// Outcome tallies one named outcome.
func (s *Store) Outcome(path, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[path]
	if !ok {
		o = &outcome{counts: make(map[string]int64)}
		s.outcomes[path] = o
	}
	o.counts[name]++
	o.total++
}

// rate returns the series for path, creating it. Caller holds s.mu.
func (s *Store) rate(path string) *rate {
	r, ok := s.rates[path]
	if !ok {
		r = &rate{reasons: make(map[string]int64)}
		s.rates[path] = r
	}
	return r
}

func (r *rate) push(ok bool) {
	r.recent[r.recentNext] = ok
	r.recentNext = (r.recentNext + 1) % recentWindow
	r.recentLen = min(r.recentLen+1, recentWindow)
}

// Snapshot copies every metric into a map keyed by path.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.timings)+len(s.counters)+len(s.rates)+len(s.outcomes))

	for path, t := range s.timings {
		avg := ms(t.total) / float64(t.count)
		out[path] = Entry{Path: path, Kind: KindTiming, Health: timingHealth(avg), Data: TimingStats{
			Count:  t.count,
			AvgMs:  avg,
			MinMs:  ms(t.min),
			MaxMs:  ms(t.max),
			LastMs: ms(t.last),
			P95Ms:  p95(t.samples),
		}}
	}

	for path, v := range s.counters {
		out[path] = Entry{Path: path, Kind: KindCounter, Data: v}
	}

	for path, r := range s.rates {
		stats := RateStats{
			Success:     r.success,
			Failures:    r.failures,
			SuccessRate: percent(r.success, r.success+r.failures),
			Reasons:     maps.Clone(r.reasons),
		}
		var recentOK int64
		for _, ok := range r.recent[:r.recentLen] {
			if ok {
				recentOK++
			}
		}
		stats.RecentRate = percent(recentOK, int64(r.recentLen))
		out[path] = Entry{Path: path, Kind: KindRate, Health: rateHealth(stats.RecentRate, r.recentLen), Data: stats}
	}

	for path, o := range s.outcomes {
		out[path] = Entry{Path: path, Kind: KindOutcome, Data: OutcomeStats{Counts: maps.Clone(o.counts), Total: o.total}}
	}

	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// p95 returns the 95th percentile sample in milliseconds.
func p95(samples []time.Duration) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := slices.Sorted(slices.Values(samples))
	idx := min(len(sorted)*95/100, len(sorted)-1)
	return ms(sorted[idx])
}
