package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cordigram/directory/internal/directory/auth"
	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CompanyController is the company directory as seen by the HTTP layer.
type CompanyController interface {
	Suggest(ctx context.Context, query string, limit int) ([]*models.Company, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	AddAlias(ctx context.Context, id uuid.UUID, alias string) (*models.Company, error)
}

// ProfileController is the profile service as seen by the HTTP layer.
type ProfileController interface {
	CreateProfile(ctx context.Context, userID, username, displayName string) (*models.Profile, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	Search(ctx context.Context, query string, limit int, excludeUserID string) ([]*models.Profile, error)
	UpdateProfile(ctx context.Context, update *models.ProfileUpdate) (*models.Profile, error)
	Follow(ctx context.Context, followerID, username string) (*models.Profile, error)
	Unfollow(ctx context.Context, followerID, username string) (*models.Profile, error)
}

// ReportController is the moderation report service as seen by the HTTP layer.
type ReportController interface {
	File(ctx context.Context, report *models.Report) (*models.Report, bool, error)
	List(ctx context.Context, status models.ReportStatus, limit int) ([]*models.Report, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Report, error)
}

// API holds the REST handlers of the directory.
type API struct {
	companies CompanyController
	profiles  ProfileController
	reports   ReportController
	limiter   *rate.Limiter
	logger    *zap.Logger

	mux       *runtime.ServeMux
	marshaler runtime.Marshaler
}

// NewAPI creates the REST handlers. limiter throttles the search and
// suggestion endpoints; nil disables throttling.
func NewAPI(companies CompanyController, profiles ProfileController, reports ReportController, limiter *rate.Limiter, logger *zap.Logger) *API {
	return &API{
		companies: companies,
		profiles:  profiles,
		reports:   reports,
		limiter:   limiter,
		logger:    logger.Named("api"),
		marshaler: &runtime.JSONBuiltin{},
	}
}

// Register adds the API routes to mux.
func (a *API) Register(mux *runtime.ServeMux) error {
	a.mux = mux
	routes := []struct {
		method, pattern string
		handler         runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/companies", a.suggestCompanies},
		{http.MethodGet, "/v1/companies/{id}", a.getCompany},
		{http.MethodPost, "/v1/companies/{id}/aliases", a.addAlias},
		{http.MethodGet, "/v1/profiles", a.searchProfiles},
		{http.MethodGet, "/v1/profiles/{username}", a.getProfile},
		{http.MethodPost, "/v1/profiles/{username}/follow", a.follow},
		{http.MethodDelete, "/v1/profiles/{username}/follow", a.unfollow},
		{http.MethodGet, "/v1/me/profile", a.getMyProfile},
		{http.MethodPost, "/v1/me/profile", a.createMyProfile},
		{http.MethodPatch, "/v1/me/profile", a.updateMyProfile},
		{http.MethodPost, "/v1/reports", a.fileReport},
		{http.MethodGet, "/v1/reports", a.listReports},
		{http.MethodPatch, "/v1/reports/{id}", a.setReportStatus},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

func (a *API) suggestCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := a.throttle(); err != nil {
		a.writeError(w, r, err)
		return
	}
	q, limit, err := searchParams(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	companies, err := a.companies.Suggest(r.Context(), q, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, companiesResponse{Companies: companies})
}

func (a *API) getCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := parseID(params["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	company, err := a.companies.GetCompany(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, company)
}

func (a *API) addAlias(w http.ResponseWriter, r *http.Request, params map[string]string) {
	if _, err := requireUser(r); err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := parseID(params["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req addAliasRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	company, err := a.companies.AddAlias(r.Context(), id, req.Alias)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, company)
}

func (a *API) searchProfiles(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := a.throttle(); err != nil {
		a.writeError(w, r, err)
		return
	}
	q, limit, err := searchParams(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	caller, _ := auth.UserIDFromContext(r.Context())

	profiles, err := a.profiles.Search(r.Context(), q, limit, caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profilesResponse{Profiles: profiles})
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request, params map[string]string) {
	profile, err := a.profiles.GetByUsername(r.Context(), params["username"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profile)
}

func (a *API) follow(w http.ResponseWriter, r *http.Request, params map[string]string) {
	caller, err := requireUser(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	profile, err := a.profiles.Follow(r.Context(), caller, params["username"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profile)
}

func (a *API) unfollow(w http.ResponseWriter, r *http.Request, params map[string]string) {
	caller, err := requireUser(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	profile, err := a.profiles.Unfollow(r.Context(), caller, params["username"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profile)
}

func (a *API) getMyProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := requireUser(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	profile, err := a.profiles.GetProfile(r.Context(), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profile)
}

func (a *API) createMyProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := requireUser(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req createProfileRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	profile, err := a.profiles.CreateProfile(r.Context(), caller, req.Username, req.DisplayName)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, profile)
}

func (a *API) updateMyProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := requireUser(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req updateProfileRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	update, err := req.toProfileUpdate(caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	profile, err := a.profiles.UpdateProfile(r.Context(), update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profile)
}

func (a *API) fileReport(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := requireUser(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req fileReportRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	report, duplicate, err := a.reports.File(r.Context(), req.toReport(caller))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	code := http.StatusCreated
	if duplicate {
		code = http.StatusOK
	}
	a.writeJSON(w, code, fileReportResponse{Report: report, Duplicate: duplicate})
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := requireModerator(r); err != nil {
		a.writeError(w, r, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	status := models.ReportStatus(r.URL.Query().Get("status"))
	reports, err := a.reports.List(r.Context(), status, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, reportsResponse{Reports: reports})
}

func (a *API) setReportStatus(w http.ResponseWriter, r *http.Request, params map[string]string) {
	if err := requireModerator(r); err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := parseID(params["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req setReportStatusRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	report, err := a.reports.SetStatus(r.Context(), id, models.ReportStatus(req.Status))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, report)
}

func (a *API) throttle() error {
	if a.limiter != nil && !a.limiter.Allow() {
		return fmt.Errorf("%w: too many search requests", e.ErrRateLimited)
	}
	return nil
}

func (a *API) decode(r *http.Request, v interface{}) error {
	if err := a.marshaler.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", e.ErrInvalidInput)
	}
	return nil
}

func (a *API) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", a.marshaler.ContentType(v))
	w.WriteHeader(code)
	if err := a.marshaler.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeError renders err through the gateway's error handler so REST errors
// share the gateway's status mapping and body format.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	runtime.HTTPError(r.Context(), a.mux, &runtime.JSONPb{}, w, r, a.mapServiceError(err))
}

func requireUser(r *http.Request) (string, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", fmt.Errorf("%w: sign in required", e.ErrUnauthenticated)
	}
	return userID, nil
}

// requireModerator admits only callers whose token carries the moderator
// role.
func requireModerator(r *http.Request) error {
	if _, err := requireUser(r); err != nil {
		return err
	}
	if !auth.HasRole(r.Context(), auth.RoleModerator) {
		return fmt.Errorf("%w: moderator role required", e.ErrForbidden)
	}
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id", e.ErrInvalidInput)
	}
	return id, nil
}
