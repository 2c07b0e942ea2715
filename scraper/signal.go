package scraper

import "sync/atomic"

// RateLimitSignal is the one piece of control state shared by every session
// in a run. Any session that sees an HTTP 429 or an application-level rate
// limit trips it; all sessions poll it before staggering, navigating, and
// each scroll step. Within a run it only ever transitions clear -> tripped.
type RateLimitSignal struct {
	tripped atomic.Bool
}

// Trip sets the signal and reports whether this call was the first to do so,
// letting the caller log the initial detection exactly once.
func (s *RateLimitSignal) Trip() bool {
	return s.tripped.CompareAndSwap(false, true)
}

// Tripped reports whether the signal has been set this run.
func (s *RateLimitSignal) Tripped() bool {
	return s.tripped.Load()
}

// Clear resets the signal. The orchestrator calls it at the start of each
// top-level scrape so a 429 from an earlier run does not poison the next.
func (s *RateLimitSignal) Clear() {
	s.tripped.Store(false)
}
