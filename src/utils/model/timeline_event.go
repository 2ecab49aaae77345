package model

import (
	"time"
)

const TableTimelineEvent = "timeline_events"

// One chronological, hash-linked audit entry describing a single action
// on a survey. Events are append-only and never deleted; corrections are
// recorded as new events.
type TimelineEvent struct {
	ID           int64  `gorm:"primaryKey"`
	SurveyNumber string `gorm:"index"`
	Action       string
	Timestamp    time.Time `gorm:"column:timestamp"`
	OfficerId    string
	DataHash     string
	PreviousHash string
	Metadata     Document `gorm:"type:jsonb"`
	Remarks      string
}

func (TimelineEvent) TableName() string {
	return TableTimelineEvent
}

// Payload covered by data_hash
func (self *TimelineEvent) Payload() map[string]any {
	return map[string]any{
		"action":     self.Action,
		"officer_id": self.OfficerId,
		"metadata":   map[string]any(self.Metadata),
		"remarks":    self.Remarks,
	}
}
