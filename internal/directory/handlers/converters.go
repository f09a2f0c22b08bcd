package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/cordigram/directory/internal/pkg/utils"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	maxQueryLength         = 100
	maxWorkplaceNameLength = 200
	birthdateFormat        = "2006-01-02"
)

// mapServiceError maps domain or repository errors to gRPC status codes,
// which the gateway renders as HTTP statuses.
func (a *API) mapServiceError(err error) error {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrDuplicateName), errors.Is(err, e.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, e.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, e.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		a.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

// searchParams reads and validates the q and limit query parameters.
func searchParams(r *http.Request) (string, int, error) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return "", 0, fmt.Errorf("%w: query is required", e.ErrInvalidInput)
	}
	if utf8.RuneCountInString(q) > maxQueryLength {
		return "", 0, fmt.Errorf("%w: query longer than %d characters", e.ErrInvalidInput, maxQueryLength)
	}
	limit, err := limitParam(r)
	if err != nil {
		return "", 0, err
	}
	return q, limit, nil
}

// limitParam parses the optional limit query parameter. Absent means 0,
// leaving the default to the service.
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", e.ErrInvalidInput)
	}
	return limit, nil
}

// toProfileUpdate converts the request body into a ProfileUpdate for userID.
// The workplace is touched only when one of its fields is present.
func (req *updateProfileRequest) toProfileUpdate(userID string) (*models.ProfileUpdate, error) {
	update := &models.ProfileUpdate{
		UserID:         userID,
		Username:       req.Username,
		DisplayName:    req.DisplayName,
		Bio:            req.Bio,
		Location:       req.Location,
		AvatarURL:      req.AvatarURL,
		AvatarPublicID: req.AvatarPublicID,
		CoverURL:       req.CoverURL,
	}
	if req.Gender != nil {
		g := models.Gender(strings.ToLower(*req.Gender))
		update.Gender = &g
	}
	if req.Birthdate != nil {
		b, err := time.Parse(birthdateFormat, *req.Birthdate)
		if err != nil {
			return nil, fmt.Errorf("%w: birthdate must be YYYY-MM-DD", e.ErrInvalidInput)
		}
		update.Birthdate = &b
	}
	if req.WorkplaceName != nil || req.WorkplaceCompanyID != nil {
		if utf8.RuneCountInString(strings.TrimSpace(utils.Deref(req.WorkplaceName))) > maxWorkplaceNameLength {
			return nil, fmt.Errorf("%w: workplace name longer than %d characters", e.ErrInvalidInput, maxWorkplaceNameLength)
		}
		change, ok := models.NewWorkplaceChange(utils.Deref(req.WorkplaceName), utils.Deref(req.WorkplaceCompanyID))
		if !ok {
			return nil, fmt.Errorf("%w: malformed workplace company id", e.ErrInvalidInput)
		}
		update.Workplace = &change
	}
	return update, nil
}

func (req *fileReportRequest) toReport(reporterID string) *models.Report {
	return &models.Report{
		ReporterID: reporterID,
		TargetType: models.ReportTargetType(strings.ToLower(req.TargetType)),
		TargetID:   req.TargetID,
		Reason:     models.ReportReason(strings.ToLower(req.Reason)),
		Note:       req.Note,
	}
}
