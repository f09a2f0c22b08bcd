package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is a row of the reports table.
type Report struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReporterID string    `gorm:"size:64;not null;index:idx_report_target,priority:1"`
	TargetType string    `gorm:"size:16;not null;index:idx_report_target,priority:2"`
	TargetID   string    `gorm:"size:128;not null;index:idx_report_target,priority:3"`
	Reason     string    `gorm:"size:32;not null"`
	Note       string    `gorm:"size:500"`
	Status     string    `gorm:"size:16;not null;default:open;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// All lists every record type managed by migrations.
func All() []any {
	return []any{&Company{}, &CompanyAlias{}, &Profile{}, &Follow{}, &Report{}}
}
