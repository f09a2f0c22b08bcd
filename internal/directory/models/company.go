// Package models defines the core domain models of the directory service:
// companies, profiles with their workplace linkage, follows and reports.
package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyStatus represents the moderation status of a company record.
type CompanyStatus string

const (
	// StatusActive is assigned to every company created from a profile reference.
	StatusActive  CompanyStatus = "active"
	StatusPending CompanyStatus = "pending"
)

// Company defines the domain model for a company directory entry.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID `json:"id"`
	// Name is the display name as first entered.
	Name string `json:"name"`
	// NormalizedName is the matching key derived from Name. It is unique.
	NormalizedName string `json:"normalized_name"`
	// Aliases are alternative spellings that also match suggestions.
	Aliases []Alias `json:"aliases,omitempty"`
	// Status orders suggestions: active companies rank first.
	Status CompanyStatus `json:"status"`
	// MemberCount is the number of profiles linked to the company.
	MemberCount int `json:"member_count"`
	// CreatedAt records the timestamp when the company was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt records the timestamp when the company was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Alias is an alternative company name in raw and normalized form.
type Alias struct {
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}
