package models

import "time"

// User is an account on the platform. Everyone registers as an evangelist;
// elevated capabilities come from memberships or a PlatformAdmin row, never
// from fields on the user itself.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     string    `gorm:"not null" json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	// Approved gates the evangelist workflows (soul logging). Reversible by
	// admins via the approval endpoint.
	Approved     bool      `gorm:"not null;default:false" json:"approved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlatformAdmin marks a user as a platform-level administrator. Presence of a
// row is the check; platform admin is senior to every org-scoped role.
type PlatformAdmin struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// UserResponse is the public shape of a user, without credentials.
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a User to its public representation.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Approved:  u.Approved,
		CreatedAt: u.CreatedAt,
	}
}
