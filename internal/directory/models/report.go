package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportTargetType is the kind of content a report points at.
type ReportTargetType string

const (
	TargetUser    ReportTargetType = "user"
	TargetPost    ReportTargetType = "post"
	TargetComment ReportTargetType = "comment"
	TargetMessage ReportTargetType = "message"
	TargetServer  ReportTargetType = "server"
)

// Valid reports whether t is a known target type.
func (t ReportTargetType) Valid() bool {
	switch t {
	case TargetUser, TargetPost, TargetComment, TargetMessage, TargetServer:
		return true
	}
	return false
}

// ReportReason categorizes a report.
type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonHate           ReportReason = "hate"
	ReasonViolence       ReportReason = "violence"
	ReasonNudity         ReportReason = "nudity"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonOther          ReportReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonHate, ReasonViolence,
		ReasonNudity, ReasonMisinformation, ReasonOther:
		return true
	}
	return false
}

// ReportStatus tracks moderation progress.
type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportOpen, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

// Report is a moderation report filed by a user against some content.
type Report struct {
	ID         uuid.UUID        `json:"id"`
	ReporterID string           `json:"reporter_id"`
	TargetType ReportTargetType `json:"target_type"`
	TargetID   string           `json:"target_id"`
	Reason     ReportReason     `json:"reason"`
	Note       string           `json:"note,omitempty"`
	Status     ReportStatus     `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
