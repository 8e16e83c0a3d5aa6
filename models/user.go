package models

import (
	"time"
)

// User represents a principal authenticated through an external identity provider
type User struct {
	ID          int64     `json:"id" db:"id"`
	ExternalID  string    `json:"external_id" db:"external_id"` // Provider identity key
	Email       *string   `json:"email" db:"email"`
	FirstName   *string   `json:"first_name" db:"first_name"`
	LastName    *string   `json:"last_name" db:"last_name"`
	DisplayName *string   `json:"display_name" db:"display_name"`
	IsSuperuser bool      `json:"is_superuser" db:"is_superuser"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a User from the attributes reported at login.
// Empty attributes are stored as NULL.
func NewUser(externalID, email, firstName, lastName, displayName string, isSuperuser bool) *User {
	now := time.Now()
	return &User{
		ExternalID:  externalID,
		Email:       optional(email),
		FirstName:   optional(firstName),
		LastName:    optional(lastName),
		DisplayName: optional(displayName),
		IsSuperuser: isSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ProfileUpdate holds the self-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=255"`
	LastName    *string `json:"last_name" validate:"omitempty,max=255"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=255"`
}

// IsEmpty reports whether the update changes nothing
func (p ProfileUpdate) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.DisplayName == nil
}

// Apply copies the set fields onto the user
func (p ProfileUpdate) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = p.FirstName
	}
	if p.LastName != nil {
		u.LastName = p.LastName
	}
	if p.DisplayName != nil {
		u.DisplayName = p.DisplayName
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
