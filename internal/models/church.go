package models

import "time"

// Church is the top-level organizational unit. Slug is URL-safe and unique.
type Church struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Branches []Branch `gorm:"foreignKey:ChurchID" json:"branches,omitempty"`
}

// Branch is a location within a church. Name is unique per church.
type Branch struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChurchID  uint      `gorm:"not null;uniqueIndex:idx_branch_church_name" json:"church_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_branch_church_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Church Church `gorm:"foreignKey:ChurchID" json:"-"`
}
