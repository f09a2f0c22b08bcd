package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a row of the profiles table. UsernameKey and DisplayNameKey
// hold the search keys of Username and DisplayName; SQL LOWER is not
// Unicode aware on every driver.
type Profile struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID               string     `gorm:"size:64;not null;uniqueIndex"`
	Username             string     `gorm:"size:30;not null;uniqueIndex"`
	DisplayName          string     `gorm:"size:50"`
	UsernameKey          string     `gorm:"size:30;not null;default:'';index"`
	DisplayNameKey       string     `gorm:"size:50;not null;default:''"`
	Bio                  string     `gorm:"size:300"`
	Location             string     `gorm:"size:100"`
	Gender               string     `gorm:"size:16;not null;default:undisclosed"`
	Birthdate            *time.Time `gorm:"type:date"`
	AvatarURL            string     `gorm:"size:500"`
	AvatarPublicID       string     `gorm:"size:200"`
	CoverURL             string     `gorm:"size:500"`
	WorkplaceCompanyID   *uuid.UUID `gorm:"type:uuid;index"`
	WorkplaceCompanyName string     `gorm:"size:200"`
	FollowerCount        int        `gorm:"not null;default:0"`
	FollowingCount       int        `gorm:"not null;default:0"`
	CreatedAt            time.Time  `gorm:"index"`
	UpdatedAt            time.Time
}

// Follow is a row of the follows table, keyed by the directed user pair.
type Follow struct {
	FollowerID string `gorm:"size:64;primaryKey"`
	FolloweeID string `gorm:"size:64;primaryKey;index"`
	CreatedAt  time.Time
}
