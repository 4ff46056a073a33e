package query

import "time"

// Status is the lifecycle state of an entry.
type Status string

const (
	// StatusIdle means the entry exists but has never been fetched.
	StatusIdle Status = "idle"
	// StatusPending means a fetch is in flight. Data from a previous fetch is
	// kept.
	StatusPending Status = "pending"
	// StatusSuccess means the last fetch or write succeeded.
	StatusSuccess Status = "success"
	// StatusError means the last fetch failed after its retries.
	StatusError Status = "error"
)

// State is a copy of an entry's state. Callers never see the entry itself.
type State struct {
	Key    Key    `json:"key"`
	Status Status `json:"status"`
	// Data is the last successfully fetched or written value.
	Data    any  `json:"data,omitempty"`
	HasData bool `json:"has_data"`
	// Err is the normalized error of the last failed fetch.
	Err error `json:"-"`
	// FetchedAt is when the last successful fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
	// UpdatedAt is when Data last changed.
	UpdatedAt time.Time `json:"updated_at"`
	// StaleAt is when Data turns stale. The zero time means stale now.
	StaleAt time.Time `json:"stale_at"`
	// FailureCount counts failed attempts of the current or last fetch.
	FailureCount int  `json:"failure_count"`
	IsFetching   bool `json:"is_fetching"`
	Observers    int  `json:"observers"`
}

// IsStale reports whether the data is past its stale-after time at now.
func (s State) IsStale(now time.Time) bool {
	return now.After(s.StaleAt)
}
