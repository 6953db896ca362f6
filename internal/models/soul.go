package models

import "time"

// Soul is a ministry contact record logged by an approved evangelist.
// Scoped to the church/branch the evangelist was serving under at log time.
type Soul struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	EvangelistID uint   `gorm:"not null;index" json:"evangelist_id"`
	ChurchID     uint   `gorm:"not null;index" json:"church_id"`
	BranchID     *uint  `gorm:"index" json:"branch_id,omitempty"`
	Name         string `gorm:"not null" json:"name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Residence    string `json:"residence,omitempty"`
	Notes        string `json:"notes,omitempty"`

	WonOn     time.Time `gorm:"not null;index" json:"won_on"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Evangelist User    `gorm:"foreignKey:EvangelistID" json:"-"`
	Church     Church  `gorm:"foreignKey:ChurchID" json:"-"`
	Branch     *Branch `gorm:"foreignKey:BranchID" json:"-"`
}
