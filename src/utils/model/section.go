package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Hash used as previous_hash by the first block or timeline event of a chain
const GenesisHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

// The five tracked facets of a survey's lifecycle
type SectionKey string

const (
	SectionJMR       SectionKey = "jmr"
	SectionNotice    SectionKey = "notice"
	SectionPayment   SectionKey = "payment"
	SectionAward     SectionKey = "award"
	SectionLandowner SectionKey = "landowner"
)

var SectionKeys = []SectionKey{SectionJMR, SectionNotice, SectionPayment, SectionAward, SectionLandowner}

func (self SectionKey) IsValid() bool {
	switch self {
	case SectionJMR, SectionNotice, SectionPayment, SectionAward, SectionLandowner:
		return true
	}
	return false
}

type SectionStatus string

const (
	SectionStatusNotCreated SectionStatus = "not_created"
	SectionStatusCreated    SectionStatus = "created"
	SectionStatusUpdated    SectionStatus = "updated"
)

// Snapshot of one section at the moment of the last ledger write.
// Hash is empty exactly when Data is nil.
type Section struct {
	Data        map[string]any `json:"data"`
	Hash        string         `json:"hash,omitempty"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	Status      SectionStatus  `json:"status"`
}

// All five sections of a block, stored as one jsonb column
type Sections map[SectionKey]*Section

// Every key present, missing ones initialized as not_created
func NewSections() Sections {
	sections := make(Sections, len(SectionKeys))
	for _, key := range SectionKeys {
		sections[key] = &Section{Status: SectionStatusNotCreated}
	}
	return sections
}

func (self Sections) Value() (driver.Value, error) {
	if self == nil {
		return nil, nil
	}
	return json.Marshal(self)
}

func (self *Sections) Scan(value any) error {
	if value == nil {
		*self = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, self)
	case string:
		return json.Unmarshal([]byte(data), self)
	default:
		return fmt.Errorf("unsupported sections column type %T", value)
	}
}

// Arbitrary jsonb payload
type Document map[string]any

func (self Document) Value() (driver.Value, error) {
	if self == nil {
		return nil, nil
	}
	return json.Marshal(self)
}

func (self *Document) Scan(value any) error {
	if value == nil {
		*self = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, self)
	case string:
		return json.Unmarshal([]byte(data), self)
	default:
		return errors.New("unsupported document column type")
	}
}
