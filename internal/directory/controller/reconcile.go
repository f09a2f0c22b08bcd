package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReconcileRepository interface {
	CountCompanyMembers(ctx context.Context, id uuid.UUID) (int64, error)
	SetMemberCount(ctx context.Context, id uuid.UUID, count int) error
	RecountMemberCounts(ctx context.Context) (int64, error)
}

// MemberCountReconciler repairs member counters that drifted because a
// workplace write and its counter updates did not all land.
type MemberCountReconciler struct {
	repo   ReconcileRepository
	logger *zap.Logger
}

func NewMemberCountReconciler(repo ReconcileRepository, logger *zap.Logger) *MemberCountReconciler {
	return &MemberCountReconciler{
		repo:   repo,
		logger: logger.Named("reconciler"),
	}
}

// ReconcileCompany stores the exact member count of one company. Missing
// companies are ignored.
func (r *MemberCountReconciler) ReconcileCompany(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	count, err := r.repo.CountCompanyMembers(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	err = r.repo.SetMemberCount(ctx, id, int(count))
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return fmt.Errorf("failed to set member count: %w", err)
	}
	return nil
}

// ReconcileAll recomputes every company's member count.
func (r *MemberCountReconciler) ReconcileAll(ctx context.Context) (int64, error) {
	n, err := r.repo.RecountMemberCounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to recount members: %w", err)
	}
	r.logger.Info("Member counts reconciled", zap.Int64("companies", n))
	return n, nil
}

// HandleEvent reconciles both companies of a workplace_changed event. Other
// events are ignored.
func (r *MemberCountReconciler) HandleEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.WorkplaceChanged || event.Workplace == nil {
		return nil
	}
	for _, id := range []*uuid.UUID{event.Workplace.PrevCompanyID, event.Workplace.NextCompanyID} {
		if id == nil {
			continue
		}
		if err := r.ReconcileCompany(ctx, *id); err != nil {
			return err
		}
	}
	return nil
}
