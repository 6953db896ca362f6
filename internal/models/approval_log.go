package models

import "time"

// ApprovalLog is an append-only audit record of evangelist approval toggles.
// Never updated or deleted; the trail is the history.
type ApprovalLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EvangelistID uint      `gorm:"not null;index" json:"evangelist_id"`
	Approved     bool      `gorm:"not null" json:"approved"`
	ActionBy     uint      `gorm:"not null;index" json:"action_by"`
	ActionAt     time.Time `gorm:"not null;index" json:"action_at"`

	Evangelist User `gorm:"foreignKey:EvangelistID" json:"evangelist,omitempty"`
	Actor      User `gorm:"foreignKey:ActionBy" json:"actor,omitempty"`
}
