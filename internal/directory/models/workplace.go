package models

import (
	"strings"

	"github.com/google/uuid"
)

// WorkplaceChangeKind tags the variant held by a WorkplaceChange.
type WorkplaceChangeKind int

const (
	// WorkplaceClear removes the workplace from the profile.
	WorkplaceClear WorkplaceChangeKind = iota
	// WorkplaceByID links an existing company by id. Name, when set, is used
	// to resolve the company if the id is unknown.
	WorkplaceByID
	// WorkplaceByName links the company matching a free-text name, creating it
	// on first reference.
	WorkplaceByName
)

func (k WorkplaceChangeKind) String() string {
	switch k {
	case WorkplaceClear:
		return "clear"
	case WorkplaceByID:
		return "by_id"
	case WorkplaceByName:
		return "by_name"
	default:
		return "unknown"
	}
}

// WorkplaceChange is a requested workplace transition for a profile.
type WorkplaceChange struct {
	Kind      WorkplaceChangeKind
	CompanyID uuid.UUID
	Name      string
}

// NewWorkplaceChange builds a WorkplaceChange from the optional name and id
// strings of a profile update. An id that does not parse is ignored in favor
// of the name; ok is false when the id is malformed and no name was given.
func NewWorkplaceChange(name, id string) (WorkplaceChange, bool) {
	name = strings.TrimSpace(name)
	id = strings.TrimSpace(id)

	if id != "" {
		parsed, err := uuid.Parse(id)
		if err == nil {
			return WorkplaceChange{Kind: WorkplaceByID, CompanyID: parsed, Name: name}, true
		}
		if name == "" {
			return WorkplaceChange{}, false
		}
	}
	if name != "" {
		return WorkplaceChange{Kind: WorkplaceByName, Name: name}, true
	}
	return WorkplaceChange{Kind: WorkplaceClear}, true
}
