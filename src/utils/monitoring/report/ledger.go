package report

import (
	"go.uber.org/atomic"
)

type LedgerErrors struct {
	CanonicalizationError atomic.Uint64 `json:"canonicalization_error"`
	StoreTimeoutError     atomic.Uint64 `json:"store_timeout_error"`
	StoreConflictError    atomic.Uint64 `json:"store_conflict_error"`
	StoreOtherError       atomic.Uint64 `json:"store_other_error"`
}

type LedgerState struct {
	BlocksCreated         atomic.Uint64 `json:"blocks_created"`
	SectionsUpdated       atomic.Uint64 `json:"sections_updated"`
	TimelineEventsWritten atomic.Uint64 `json:"timeline_events_written"`
}

type LedgerReport struct {
	State  LedgerState  `json:"state"`
	Errors LedgerErrors `json:"errors"`
}
