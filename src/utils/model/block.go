package model

import (
	"time"

	"github.com/lib/pq"
)

const TableBlock = "ledger_blocks"

// Event types recorded on blocks and timeline events
const (
	EventSurveyCreated   = "SURVEY_CREATED_ON_BLOCKCHAIN"
	EventSurveyUpdated   = "SURVEY_DATA_UPDATED"
	EventJMRUploaded     = "JMR_UPLOADED"
	EventNoticeGenerated = "NOTICE_GENERATED"
	EventPaymentReleased = "PAYMENT_RELEASED"
	EventAwardDeclared   = "AWARD_DECLARED"
	EventLandownerUpdate = "LANDOWNER_UPDATED"
)

// One evolving, hash-linked record per survey number.
// current_hash covers the header returned by Header(), never the
// wall-clock columns, so it stays reproducible on later reads.
type Block struct {
	ID           int64  `gorm:"primaryKey"`
	BlockId      string `gorm:"column:block_id;uniqueIndex"`
	SurveyNumber string `gorm:"uniqueIndex"`
	EventType    string
	OfficerId    string
	ProjectId    string
	Sections     Sections `gorm:"type:jsonb"`
	PreviousHash string
	CurrentHash  string

	// Tamper-detection salt, no proof-of-work meaning
	Nonce int64

	// Outcome of the last verification sweep
	IsValid          bool           `gorm:"default:true"`
	ValidationErrors pq.StringArray `gorm:"type:text[]"`

	// Bumped on every write, used as compare-and-swap guard
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Block) TableName() string {
	return TableBlock
}

// Header returns the fields covered by current_hash. Section hashes
// participate by key, an unset hash as an explicit null sentinel.
func (self *Block) Header() map[string]any {
	sectionHashes := make(map[string]any, len(self.Sections))
	for _, key := range SectionKeys {
		section := self.Sections[key]
		if section == nil || section.Hash == "" {
			sectionHashes[string(key)] = nil
			continue
		}
		sectionHashes[string(key)] = section.Hash
	}

	return map[string]any{
		"block_id":       self.BlockId,
		"survey_number":  self.SurveyNumber,
		"event_type":     self.EventType,
		"officer_id":     self.OfficerId,
		"project_id":     self.ProjectId,
		"previous_hash":  self.PreviousHash,
		"nonce":          self.Nonce,
		"section_hashes": sectionHashes,
	}
}

// HeaderWith returns the same header with section hashes replaced,
// used when recomputing the aggregate hash from live data.
func (self *Block) HeaderWith(sectionHashes map[string]any) map[string]any {
	header := self.Header()
	header["section_hashes"] = sectionHashes
	return header
}
