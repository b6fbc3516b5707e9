package types

import "time"

// EntryKind classifies a rendered feed entry
type EntryKind string

const (
	KindClubPost    EntryKind = "club_post"
	KindSingle      EntryKind = "single_participant"
	KindMulti       EntryKind = "multi_participant"
	KindNonActivity EntryKind = "non_activity"
)

// LookupStatus is the outcome of a single DOM lookup
type LookupStatus string

const (
	Found    LookupStatus = "found"
	NotFound LookupStatus = "not_found"
	Failed   LookupStatus = "failed"
)

// Lookup records one DOM query made while deciding on an entry
type Lookup struct {
	Op     string       `json:"op"`
	Status LookupStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// ParticipantReport describes the decision taken for one participant of an entry
type ParticipantReport struct {
	Index   int      `json:"index"`
	OwnerID string   `json:"owner_id"`
	IsSelf  bool     `json:"is_self"`
	Clicked bool     `json:"clicked"`
	Lookups []Lookup `json:"lookups,omitempty"`
}

// EntryReport describes everything that happened to one feed entry
type EntryReport struct {
	Index        int                 `json:"index"`
	Kind         EntryKind           `json:"kind"`
	Participants []ParticipantReport `json:"participants,omitempty"`
	Given        int                 `json:"given"`
	Lookups      []Lookup            `json:"lookups,omitempty"`
}

// RunResult is the outcome of one kudos pass
type RunResult struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
	OwnProfileID     string        `json:"own_profile_id"`
	SessionResumed   bool          `json:"session_resumed"`
	Relogged         bool          `json:"relogged"`
	EntriesFound     int           `json:"entries_found"`
	EntriesProcessed int           `json:"entries_processed"`
	BudgetExhausted  bool          `json:"budget_exhausted"`
	Given            int           `json:"given"`
	Entries          []EntryReport `json:"entries,omitempty"`
}

// Duration returns how long the run took
func (r RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
