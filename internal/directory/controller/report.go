package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/events"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultReportCooldown is the minimum time between a closed report and a
	// new one from the same reporter on the same target.
	DefaultReportCooldown = 10 * time.Minute

	defaultReportListLimit = 20
	maxReportListLimit     = 100
)

type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	LatestReport(ctx context.Context, reporterID string, targetType models.ReportTargetType, targetID string) (*models.Report, error)
	ListReports(ctx context.Context, status models.ReportStatus, limit int) ([]*models.Report, error)
	SetReportStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error
}

// ReportService files and triages moderation reports.
type ReportService struct {
	repo     ReportRepository
	producer EventProducer
	logger   *zap.Logger
	cooldown time.Duration
	now      func() time.Time
}

func NewReportService(repo ReportRepository, producer EventProducer, logger *zap.Logger, cooldown time.Duration) *ReportService {
	if cooldown < 0 {
		cooldown = DefaultReportCooldown
	}
	return &ReportService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("report_service"),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// File records a report. While the reporter still has an open report on the
// same target, that report is returned with duplicate set and nothing is
// stored. A new report within the cooldown of the previous one being closed
// is rejected with e.ErrRateLimited.
func (s *ReportService) File(ctx context.Context, report *models.Report) (stored *models.Report, duplicate bool, err error) {
	if err := validateReport(report); err != nil {
		return nil, false, err
	}

	latest, err := s.repo.LatestReport(ctx, report.ReporterID, report.TargetType, report.TargetID)
	switch {
	case err == nil:
		if latest.Status == models.ReportOpen {
			return latest, true, nil
		}
		if s.now().Sub(latest.UpdatedAt) < s.cooldown {
			return nil, false, fmt.Errorf("%w: report cooldown active", e.ErrRateLimited)
		}
	case !errors.Is(err, e.ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up previous report: %w", err)
	}

	report.ID = uuid.New()
	report.Status = models.ReportOpen
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, false, fmt.Errorf("failed to create report: %w", err)
	}

	go func() {
		s.producer.Produce(events.Event{Type: events.ReportFiled, Report: report})
	}()
	return report, false, nil
}

// List returns reports in status, oldest first. An empty status lists open
// reports.
func (s *ReportService) List(ctx context.Context, status models.ReportStatus, limit int) ([]*models.Report, error) {
	if status == "" {
		status = models.ReportOpen
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status", e.ErrInvalidInput)
	}
	switch {
	case limit <= 0:
		limit = defaultReportListLimit
	case limit > maxReportListLimit:
		limit = maxReportListLimit
	}

	reports, err := s.repo.ListReports(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// SetStatus moves a report to status.
func (s *ReportService) SetStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Report, error) {
	if id == uuid.Nil || !status.Valid() {
		return nil, fmt.Errorf("%w: invalid report status change", e.ErrInvalidInput)
	}
	if err := s.repo.SetReportStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	go func() {
		s.producer.Produce(events.Event{Type: events.ReportUpdated, Report: report})
	}()
	return report, nil
}

func validateReport(r *models.Report) error {
	if r == nil {
		return fmt.Errorf("%w: nil report", e.ErrInvalidInput)
	}
	r.TargetID = strings.TrimSpace(r.TargetID)
	r.Note = strings.TrimSpace(r.Note)
	switch {
	case r.ReporterID == "":
		return fmt.Errorf("%w: missing reporter", e.ErrInvalidInput)
	case !r.TargetType.Valid():
		return fmt.Errorf("%w: unknown target type", e.ErrInvalidInput)
	case r.TargetID == "" || len(r.TargetID) > 128:
		return fmt.Errorf("%w: invalid target id", e.ErrInvalidInput)
	case !r.Reason.Valid():
		return fmt.Errorf("%w: unknown reason", e.ErrInvalidInput)
	case utf8.RuneCountInString(r.Note) > 500:
		return fmt.Errorf("%w: note too long", e.ErrInvalidInput)
	case r.TargetType == models.TargetUser && r.TargetID == r.ReporterID:
		return fmt.Errorf("%w: cannot report yourself", e.ErrInvalidInput)
	}
	return nil
}
