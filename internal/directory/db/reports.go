package db

import (
	"context"
	"errors"

	dbmodels "github.com/cordigram/directory/internal/directory/db/models"
	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateReport(ctx context.Context, report *models.Report) error {
	rec := reportToRecord(report)
	result := r.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		return result.Error
	}
	report.CreatedAt = rec.CreatedAt
	report.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *Repository) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var rec dbmodels.Report
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return reportFromRecord(&rec), nil
}

// LatestReport returns the most recent report a reporter filed against a
// target.
func (r *Repository) LatestReport(ctx context.Context, reporterID string, targetType models.ReportTargetType, targetID string) (*models.Report, error) {
	var rec dbmodels.Report
	result := r.db.WithContext(ctx).
		Where("reporter_id = ? AND target_type = ? AND target_id = ?", reporterID, string(targetType), targetID).
		Order("created_at DESC").
		First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return reportFromRecord(&rec), nil
}

// ListReports returns reports in the given status, oldest first.
func (r *Repository) ListReports(ctx context.Context, status models.ReportStatus, limit int) ([]*models.Report, error) {
	var recs []dbmodels.Report
	result := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Limit(limit).
		Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}
	reports := make([]*models.Report, 0, len(recs))
	for i := range recs {
		reports = append(reports, reportFromRecord(&recs[i]))
	}
	return reports, nil
}

func (r *Repository) SetReportStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Report{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}
