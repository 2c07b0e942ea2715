package models

import "time"

// ProxyRecord is one line of the persisted proxy list, as written by the
// finder pipeline and consumed by the pool. The pool only reads proxy,
// speed and source; the rest documents the verification outcome.
type ProxyRecord struct {
	Proxy  string  `json:"proxy"`
	Speed  float64 `json:"speed"`
	Source string  `json:"source,omitempty"`

	Working       bool      `json:"working,omitempty"`
	WorksOnTarget bool      `json:"works_on_target,omitempty"`
	TargetStatus  string    `json:"target_status,omitempty"`
	TestedAt      time.Time `json:"tested_at,omitzero"`
}

// ProxyEndpoint is a pool entry. Outcome fields are written exactly once,
// by the session that checked the endpoint out; endpoints are never
// re-queued within a run.
type ProxyEndpoint struct {
	Address string  // scheme://[user:pass@]host:port
	Source  string
	Speed   float64 // seconds, from the finder's verification probe

	Consumed  bool
	Succeeded bool
	Records   int
	Elapsed   time.Duration
}
