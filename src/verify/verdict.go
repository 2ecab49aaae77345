package verify

import (
	"encoding/json"
	"time"

	"github.com/saral-bhoomi/ledger/src/utils/model"
)

type Status string

const (
	StatusVerified    Status = "VERIFIED"
	StatusCompromised Status = "COMPROMISED"
	StatusNotOnLedger Status = "NOT_ON_LEDGER"
)

type ComparisonSource string

const (
	// Live collaborator data compared against the stored section hash
	ComparisonLiveDb ComparisonSource = "live_db"

	// Live data present but its hash differs from the stored one
	ComparisonMismatch ComparisonSource = "mismatch"

	// Collaborator no longer has a live record for the section.
	// Kept distinct from a mismatch for downstream reporting.
	ComparisonSourceMissing ComparisonSource = "source_missing"

	// Nothing recorded yet, nothing to compare
	ComparisonNotCreated ComparisonSource = "not_created"
)

type SectionVerdict struct {
	IsValid          bool             `json:"is_valid"`
	StoredHash       string           `json:"stored_hash,omitempty"`
	CurrentHash      string           `json:"current_hash,omitempty"`
	ComparisonSource ComparisonSource `json:"comparison_source"`
	LastUpdated      *time.Time       `json:"last_updated,omitempty"`
	Reason           string           `json:"reason,omitempty"`
}

// Verdict is the full outcome of one integrity verification. Mismatches
// and missing sources are data here, never errors.
type Verdict struct {
	SurveyNumber     string                               `json:"survey_number"`
	Status           Status                               `json:"status"`
	IsValid          bool                                 `json:"is_valid"`
	Reason           string                               `json:"reason,omitempty"`
	Sections         map[model.SectionKey]*SectionVerdict `json:"sections,omitempty"`
	BlockHashValid   bool                                 `json:"block_hash_valid"`
	TimelineValid    bool                                 `json:"timeline_valid"`
	TimelineBrokenAt int                                  `json:"timeline_broken_at"`
	CheckedAt        time.Time                            `json:"checked_at"`
}

// ValidationErrors flattens the verdict into the strings persisted on
// the block after a sweep
func (self *Verdict) ValidationErrors() (out []string) {
	out = []string{}
	if self.Status == StatusNotOnLedger {
		return append(out, "not on ledger")
	}
	for _, key := range model.SectionKeys {
		section, ok := self.Sections[key]
		if !ok || section.IsValid {
			continue
		}
		out = append(out, string(key)+": "+section.Reason)
	}
	if !self.BlockHashValid {
		out = append(out, "block aggregate hash mismatch")
	}
	if !self.TimelineValid {
		out = append(out, "timeline chain broken")
	}
	return
}

// Alert is published when a sweep finds a compromised survey
type Alert struct {
	SurveyNumber     string    `json:"survey_number"`
	Status           Status    `json:"status"`
	Reason           string    `json:"reason"`
	ValidationErrors []string  `json:"validation_errors"`
	CheckedAt        time.Time `json:"checked_at"`
}

func (self *Alert) MarshalBinary() ([]byte, error) {
	return json.Marshal(self)
}

func NewAlert(verdict *Verdict) *Alert {
	return &Alert{
		SurveyNumber:     verdict.SurveyNumber,
		Status:           verdict.Status,
		Reason:           verdict.Reason,
		ValidationErrors: verdict.ValidationErrors(),
		CheckedAt:        verdict.CheckedAt,
	}
}
