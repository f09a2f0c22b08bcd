package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/google/uuid"
)

// CompanyResolver resolves the company a workplace change points at.
type CompanyResolver interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	EnsureByName(ctx context.Context, name string) (*models.Company, error)
}

// WorkplaceStore is the subset of the repository a workplace transition
// writes to. Both writes happen in the caller's transaction.
type WorkplaceStore interface {
	SetWorkplace(ctx context.Context, userID string, workplace *models.Workplace) error
	IncrementMemberCount(ctx context.Context, id uuid.UUID, delta int) error
}

// resolveWorkplace turns a non-clear change into the workplace to store.
// The id wins over the name; an unknown id falls back to the name.
func resolveWorkplace(ctx context.Context, companies CompanyResolver, change models.WorkplaceChange) (*models.Workplace, error) {
	var company *models.Company

	if change.Kind == models.WorkplaceByID {
		c, err := companies.GetCompany(ctx, change.CompanyID)
		switch {
		case err == nil:
			company = c
		case !errors.Is(err, e.ErrNotFound):
			return nil, err
		}
	}

	if company == nil && change.Name != "" {
		c, err := companies.EnsureByName(ctx, change.Name)
		if err != nil {
			return nil, err
		}
		company = c
	}

	if company == nil {
		return nil, fmt.Errorf("%w: company not found", e.ErrInvalidInput)
	}
	return &models.Workplace{CompanyID: company.ID, CompanyName: company.Name}, nil
}

// applyWorkplace stores next as the profile's workplace and moves the member
// counters. Counters only change when the company actually changes, so
// saving the same workplace again never double counts. It reports whether
// the linked company changed.
func applyWorkplace(ctx context.Context, store WorkplaceStore, userID string, prev, next *models.Workplace) (bool, error) {
	prevID, nextID := workplaceID(prev), workplaceID(next)

	if err := store.SetWorkplace(ctx, userID, next); err != nil {
		return false, fmt.Errorf("failed to set workplace: %w", err)
	}
	if prevID == nextID {
		return false, nil
	}

	if prev != nil {
		if err := store.IncrementMemberCount(ctx, prev.CompanyID, -1); err != nil {
			return false, fmt.Errorf("failed to decrement member count: %w", err)
		}
	}
	if next != nil {
		if err := store.IncrementMemberCount(ctx, next.CompanyID, 1); err != nil {
			return false, fmt.Errorf("failed to increment member count: %w", err)
		}
	}
	return true, nil
}

func workplaceID(w *models.Workplace) string {
	if w == nil || w.CompanyID == uuid.Nil {
		return ""
	}
	return w.CompanyID.String()
}
