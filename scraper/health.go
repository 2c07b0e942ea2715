package scraper

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// HealthMonitor accumulates per-session outcomes for the life of the
// process. Failed sessions count toward the run total and elapsed time but
// contribute no posts.
type HealthMonitor struct {
	mu          sync.Mutex
	sessionsRun int
	sessionsOK  int
	posts       int
	elapsed     time.Duration
	start       time.Time
}

func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{start: time.Now()}
}

// Record folds one finished session into the totals.
func (h *HealthMonitor) Record(success bool, posts int, elapsed time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionsRun++
	h.elapsed += elapsed
	if success {
		h.sessionsOK++
		h.posts += posts
	}
}

// Snapshot returns the running totals.
func (h *HealthMonitor) Snapshot() (run, ok, posts int, elapsed time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionsRun, h.sessionsOK, h.posts, h.elapsed
}

// Report renders the session totals for display. proxySummary, if non-empty,
// is appended as an extra line (see proxypool.Pool.Summary).
func (h *HealthMonitor) Report(proxySummary string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessionsRun == 0 {
		return "No sessions completed yet.\n"
	}

	okRate := float64(h.sessionsOK) / float64(h.sessionsRun) * 100
	avg := h.elapsed.Seconds() / float64(h.sessionsRun)
	wall := time.Since(h.start).Seconds()
	hours := wall / 3600
	if hours < 0.01 {
		hours = 0.01
	}
	perHour := float64(h.posts) / hours

	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n  SCRAPER REPORT\n%s\n", rule, rule)
	fmt.Fprintf(&b, "  Sessions:    %d run | %d ok (%.0f%%)\n", h.sessionsRun, h.sessionsOK, okRate)
	fmt.Fprintf(&b, "  Avg/session: %.1fs\n", avg)
	fmt.Fprintf(&b, "  Posts raw:   %d (%.0f/hr)\n", h.posts, perHour)
	fmt.Fprintf(&b, "  Wall time:   %.0fs\n", wall)
	if proxySummary != "" {
		fmt.Fprintf(&b, "  Proxies:     %s\n", proxySummary)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}
