package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeResult is what one orchestrated run returns to the caller: the
// merged, deduplicated, newest-first post list plus the best profile
// snapshot seen across all sessions.
type ScrapeResult struct {
	RunID   string   `json:"run_id"`
	Target  string   `json:"target"`
	Posts   []Post   `json:"posts"`
	Profile *Profile `json:"profile,omitempty"`

	// Partial means the rate-limit signal tripped mid-run; everything
	// collected before the trip is still present.
	Partial bool `json:"partial"`

	SessionsRun int           `json:"sessions_run"`
	SessionsOK  int           `json:"sessions_ok"`
	Elapsed     time.Duration `json:"elapsed"`
}

// ScrapeRun is the persisted archive row for one orchestrated run.
type ScrapeRun struct {
	RunID      string     `json:"run_id" db:"run_id"`
	Mode       string     `json:"mode" db:"mode"` // search, user, likes, thread, hashtag, home
	Query      string     `json:"query" db:"query"`
	Target     string     `json:"target" db:"target"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at" db:"finished_at"`
	Status     RunStatus  `json:"status" db:"status"`
	PostsFound int        `json:"posts_found" db:"posts_found"`
	Sessions   int        `json:"sessions" db:"sessions"`
	SessionsOK int        `json:"sessions_ok" db:"sessions_ok"`
}
