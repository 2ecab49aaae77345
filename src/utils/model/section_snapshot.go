package model

import (
	"time"
)

// Live snapshot tables maintained by the ingestion pipeline, one per
// section. The ledger only ever reads them.
var SectionTables = map[SectionKey]string{
	SectionJMR:       "jmr_records",
	SectionNotice:    "notices",
	SectionPayment:   "payments",
	SectionAward:     "awards",
	SectionLandowner: "landowner_records",
}

// Current live record of one section for one survey
type SectionSnapshot struct {
	ID           int64 `gorm:"primaryKey"`
	SurveyNumber string
	Data         Document `gorm:"type:jsonb"`
	UpdatedAt    time.Time
}
