package models

import "time"

// Access request statuses. A request leaves pending exactly once.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// AccessRequest is a user's petition to join a church (optionally a branch)
// as an evangelist. Approval is admin-driven and transitions the request
// terminally; the handled_by/handled_at pair records who decided and when.
type AccessRequest struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	ChurchID uint   `gorm:"not null;index" json:"church_id"`
	BranchID *uint  `json:"branch_id,omitempty"`
	Note     string `json:"note,omitempty"`
	Status   string `gorm:"not null;default:'pending';index" json:"status"`

	HandledBy *uint      `json:"handled_by,omitempty"`
	HandledAt *time.Time `json:"handled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User   User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Church Church  `gorm:"foreignKey:ChurchID" json:"church,omitempty"`
	Branch *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
}

// Terminal reports whether the request has already been decided.
func (r *AccessRequest) Terminal() bool {
	return r.Status == RequestApproved || r.Status == RequestRejected
}
