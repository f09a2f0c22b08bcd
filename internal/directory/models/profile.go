package models

import (
	"time"

	"github.com/google/uuid"
)

// Gender is the self-declared gender shown on a profile.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUndisclosed Gender = "undisclosed"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUndisclosed:
		return true
	}
	return false
}

// Profile is the public profile owned by a single user.
type Profile struct {
	ID             uuid.UUID  `json:"id"`
	UserID         string     `json:"user_id"`
	Username       string     `json:"username"`
	DisplayName    string     `json:"display_name"`
	Bio            string     `json:"bio,omitempty"`
	Location       string     `json:"location,omitempty"`
	Gender         Gender     `json:"gender"`
	Birthdate      *time.Time `json:"birthdate,omitempty"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	AvatarPublicID string     `json:"avatar_public_id,omitempty"`
	CoverURL       string     `json:"cover_url,omitempty"`
	Workplace      *Workplace `json:"workplace,omitempty"`
	FollowerCount  int        `json:"follower_count"`
	FollowingCount int        `json:"following_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Workplace links a profile to a company. CompanyName is a snapshot taken
// when the link was made.
type Workplace struct {
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
}

// ProfileUpdate represents the fields that can be updated for a Profile.
// Pointer types are used to allow partial updates; a nil Workplace leaves
// the current workplace untouched.
type ProfileUpdate struct {
	UserID         string
	Username       *string
	DisplayName    *string
	Bio            *string
	Location       *string
	Gender         *Gender
	Birthdate      *time.Time
	AvatarURL      *string
	AvatarPublicID *string
	CoverURL       *string
	Workplace      *WorkplaceChange
}
