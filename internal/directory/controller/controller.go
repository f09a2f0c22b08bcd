// Package controller implements the core business logic (service layer)
// of the directory: company lookup and suggestions, profiles with their
// workplace linkage, follows, reports and member count reconciliation.
package controller

import (
	"github.com/cordigram/directory/internal/directory/events"
)

const (
	// DefaultLimit is used when a search or suggestion limit is not set.
	DefaultLimit = 8
	// MaxLimit caps search and suggestion result sizes.
	MaxLimit = 25
	// MaxCompanyNameLength is the longest company or alias name, in runes,
	// that the companies table accepts.
	MaxCompanyNameLength = 200
)

type EventProducer interface {
	Produce(event events.Event)
}

// ClampLimit maps a requested result size into [1, MaxLimit]; non-positive
// values select DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
