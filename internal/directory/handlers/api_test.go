package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cordigram/directory/internal/directory/auth"
	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

const testSecret = "secret"

type mockCompanies struct{ mock.Mock }

func (m *mockCompanies) Suggest(ctx context.Context, query string, limit int) ([]*models.Company, error) {
	args := m.Called(ctx, query, limit)
	companies, _ := args.Get(0).([]*models.Company)
	return companies, args.Error(1)
}

func (m *mockCompanies) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	args := m.Called(ctx, id)
	company, _ := args.Get(0).(*models.Company)
	return company, args.Error(1)
}

func (m *mockCompanies) AddAlias(ctx context.Context, id uuid.UUID, alias string) (*models.Company, error) {
	args := m.Called(ctx, id, alias)
	company, _ := args.Get(0).(*models.Company)
	return company, args.Error(1)
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) profile(args mock.Arguments) (*models.Profile, error) {
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *mockProfiles) CreateProfile(ctx context.Context, userID, username, displayName string) (*models.Profile, error) {
	return m.profile(m.Called(ctx, userID, username, displayName))
}

func (m *mockProfiles) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return m.profile(m.Called(ctx, userID))
}

func (m *mockProfiles) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	return m.profile(m.Called(ctx, username))
}

func (m *mockProfiles) Search(ctx context.Context, query string, limit int, excludeUserID string) ([]*models.Profile, error) {
	args := m.Called(ctx, query, limit, excludeUserID)
	profiles, _ := args.Get(0).([]*models.Profile)
	return profiles, args.Error(1)
}

func (m *mockProfiles) UpdateProfile(ctx context.Context, update *models.ProfileUpdate) (*models.Profile, error) {
	return m.profile(m.Called(ctx, update))
}

func (m *mockProfiles) Follow(ctx context.Context, followerID, username string) (*models.Profile, error) {
	return m.profile(m.Called(ctx, followerID, username))
}

func (m *mockProfiles) Unfollow(ctx context.Context, followerID, username string) (*models.Profile, error) {
	return m.profile(m.Called(ctx, followerID, username))
}

type mockReports struct{ mock.Mock }

func (m *mockReports) File(ctx context.Context, report *models.Report) (*models.Report, bool, error) {
	args := m.Called(ctx, report)
	r, _ := args.Get(0).(*models.Report)
	return r, args.Bool(1), args.Error(2)
}

func (m *mockReports) List(ctx context.Context, status models.ReportStatus, limit int) ([]*models.Report, error) {
	args := m.Called(ctx, status, limit)
	reports, _ := args.Get(0).([]*models.Report)
	return reports, args.Error(1)
}

func (m *mockReports) SetStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Report, error) {
	args := m.Called(ctx, id, status)
	r, _ := args.Get(0).(*models.Report)
	return r, args.Error(1)
}

type apiFixture struct {
	companies *mockCompanies
	profiles  *mockProfiles
	reports   *mockReports
	handler   http.Handler
}

func newAPIFixture(t *testing.T, limiter *rate.Limiter) *apiFixture {
	t.Helper()
	f := &apiFixture{
		companies: &mockCompanies{},
		profiles:  &mockProfiles{},
		reports:   &mockReports{},
	}
	api := NewAPI(f.companies, f.profiles, f.reports, limiter, zaptest.NewLogger(t))
	mux := runtime.NewServeMux()
	require.NoError(t, api.Register(mux))
	f.handler = auth.HTTPMiddleware(mux, testSecret)
	t.Cleanup(func() {
		f.companies.AssertExpectations(t)
		f.profiles.AssertExpectations(t)
		f.reports.AssertExpectations(t)
	})
	return f
}

// do performs a request, authenticated as userID when it is not empty.
func (f *apiFixture) do(t *testing.T, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	return f.doAs(t, method, target, userID, "", body)
}

// doAs is do with a role claim on the caller's token.
func (f *apiFixture) doAs(t *testing.T, method, target, userID, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		token, err := auth.GenerateTokenWithRole(userID, role, testSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAPI_SuggestCompanies(t *testing.T) {
	f := newAPIFixture(t, nil)
	acme := &models.Company{ID: uuid.New(), Name: "Acme", NormalizedName: "acme", Status: models.StatusActive}
	f.companies.On("Suggest", mock.Anything, "ac", 5).Return([]*models.Company{acme}, nil).Once()

	rec := f.do(t, http.MethodGet, "/v1/companies?q=ac&limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp companiesResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Companies, 1)
	assert.Equal(t, acme.ID, resp.Companies[0].ID)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAPI_QueryValidation(t *testing.T) {
	f := newAPIFixture(t, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/v1/companies"},
		{"blank query", "/v1/companies?q=%20%20"},
		{"query too long", "/v1/profiles?q=" + strings.Repeat("a", maxQueryLength+1)},
		{"non numeric limit", "/v1/profiles?q=ann&limit=ten"},
		{"zero limit", "/v1/companies?q=ac&limit=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, "", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAPI_SearchProfilesExcludesCaller(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.profiles.On("Search", mock.Anything, "ann", 0, "u1").Return([]*models.Profile{}, nil).Once()
	f.profiles.On("Search", mock.Anything, "ann", 0, "").Return([]*models.Profile{}, nil).Once()

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/profiles?q=ann", "u1", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/profiles?q=ann", "", "").Code)
}

func TestAPI_RateLimited(t *testing.T) {
	f := newAPIFixture(t, rate.NewLimiter(rate.Limit(0.001), 1))
	f.companies.On("Suggest", mock.Anything, "ac", 0).Return([]*models.Company{}, nil).Once()

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/companies?q=ac", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, "/v1/companies?q=ac", "", "").Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", e.ErrNotFound, http.StatusNotFound},
		{"invalid", e.ErrInvalidInput, http.StatusBadRequest},
		{"conflict", e.ErrConflict, http.StatusConflict},
		{"rate limited", e.ErrRateLimited, http.StatusTooManyRequests},
		{"forbidden", e.ErrForbidden, http.StatusForbidden},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil)
			f.profiles.On("GetByUsername", mock.Anything, "ann").Return(nil, tt.err).Once()

			rec := f.do(t, http.MethodGet, "/v1/profiles/ann", "", "")
			assert.Equal(t, tt.want, rec.Code)

			var body struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			decodeBody(t, rec, &body)
			assert.NotEmpty(t, body.Message)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, assert.AnError.Error())
			}
		})
	}
}

func TestAPI_RequiresCaller(t *testing.T) {
	f := newAPIFixture(t, nil)

	for _, r := range []struct{ method, target string }{
		{http.MethodGet, "/v1/me/profile"},
		{http.MethodPatch, "/v1/me/profile"},
		{http.MethodPost, "/v1/profiles/ann/follow"},
		{http.MethodDelete, "/v1/profiles/ann/follow"},
		{http.MethodPost, "/v1/reports"},
		{http.MethodGet, "/v1/reports"},
		{http.MethodPost, "/v1/companies/" + uuid.NewString() + "/aliases"},
	} {
		rec := f.do(t, r.method, r.target, "", "{}")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.target)
	}
}

func TestAPI_GetMyProfileNotFound(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.profiles.On("GetProfile", mock.Anything, "u1").Return(nil, e.ErrNotFound).Once()

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/me/profile", "u1", "").Code)
}

func TestAPI_CreateMyProfile(t *testing.T) {
	f := newAPIFixture(t, nil)
	created := &models.Profile{ID: uuid.New(), UserID: "u1", Username: "ann"}
	f.profiles.On("CreateProfile", mock.Anything, "u1", "ann", "Ann").Return(created, nil).Once()

	rec := f.do(t, http.MethodPost, "/v1/me/profile", "u1", `{"username":"ann","display_name":"Ann"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Profile
	decodeBody(t, rec, &got)
	assert.Equal(t, created.ID, got.ID)
}

func TestAPI_UpdateMyProfile(t *testing.T) {
	companyID := uuid.New()

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantCheck func(t *testing.T, u *models.ProfileUpdate)
	}{
		{
			name:     "workplace by name",
			body:     `{"bio":"hi","workplace_name":"VTC Academy"}`,
			wantCode: http.StatusOK,
			wantCheck: func(t *testing.T, u *models.ProfileUpdate) {
				require.NotNil(t, u.Workplace)
				assert.Equal(t, models.WorkplaceByName, u.Workplace.Kind)
				assert.Equal(t, "VTC Academy", u.Workplace.Name)
				assert.Equal(t, "hi", *u.Bio)
			},
		},
		{
			name:     "workplace by id",
			body:     `{"workplace_company_id":"` + companyID.String() + `"}`,
			wantCode: http.StatusOK,
			wantCheck: func(t *testing.T, u *models.ProfileUpdate) {
				require.NotNil(t, u.Workplace)
				assert.Equal(t, models.WorkplaceByID, u.Workplace.Kind)
				assert.Equal(t, companyID, u.Workplace.CompanyID)
			},
		},
		{
			name:     "clear workplace",
			body:     `{"workplace_name":""}`,
			wantCode: http.StatusOK,
			wantCheck: func(t *testing.T, u *models.ProfileUpdate) {
				require.NotNil(t, u.Workplace)
				assert.Equal(t, models.WorkplaceClear, u.Workplace.Kind)
			},
		},
		{
			name:     "no workplace fields",
			body:     `{"gender":"Female","birthdate":"1990-06-15"}`,
			wantCode: http.StatusOK,
			wantCheck: func(t *testing.T, u *models.ProfileUpdate) {
				assert.Nil(t, u.Workplace)
				assert.Equal(t, models.GenderFemale, *u.Gender)
				assert.Equal(t, 1990, u.Birthdate.Year())
			},
		},
		{name: "malformed id", body: `{"workplace_company_id":"nope"}`, wantCode: http.StatusBadRequest},
		{name: "bad birthdate", body: `{"birthdate":"15/06/1990"}`, wantCode: http.StatusBadRequest},
		{
			name:     "workplace name too long",
			body:     `{"workplace_name":"` + strings.Repeat("ễ", 201) + `"}`,
			wantCode: http.StatusBadRequest,
		},
		{name: "malformed body", body: `{`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil)
			if tt.wantCheck != nil {
				f.profiles.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(u *models.ProfileUpdate) bool {
					return u.UserID == "u1"
				})).Run(func(args mock.Arguments) {
					tt.wantCheck(t, args.Get(1).(*models.ProfileUpdate))
				}).Return(&models.Profile{UserID: "u1"}, nil).Once()
			}

			rec := f.do(t, http.MethodPatch, "/v1/me/profile", "u1", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestAPI_Follow(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.profiles.On("Follow", mock.Anything, "u1", "bob").Return(&models.Profile{Username: "bob", FollowerCount: 1}, nil).Once()
	f.profiles.On("Unfollow", mock.Anything, "u1", "bob").Return(&models.Profile{Username: "bob"}, nil).Once()

	rec := f.do(t, http.MethodPost, "/v1/profiles/bob/follow", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Profile
	decodeBody(t, rec, &got)
	assert.Equal(t, 1, got.FollowerCount)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/v1/profiles/bob/follow", "u1", "").Code)
}

func TestAPI_Companies(t *testing.T) {
	f := newAPIFixture(t, nil)
	id := uuid.New()
	f.companies.On("GetCompany", mock.Anything, id).Return(&models.Company{ID: id, Name: "Acme"}, nil).Once()
	f.companies.On("AddAlias", mock.Anything, id, "ACME Corp").Return(&models.Company{ID: id, Name: "Acme"}, nil).Once()

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/companies/"+id.String(), "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/companies/not-a-uuid", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/companies/"+id.String()+"/aliases", "u1", `{"alias":"ACME Corp"}`).Code)
}

func TestAPI_Reports(t *testing.T) {
	f := newAPIFixture(t, nil)
	stored := &models.Report{ID: uuid.New(), Status: models.ReportOpen}

	f.reports.On("File", mock.Anything, mock.MatchedBy(func(r *models.Report) bool {
		return r.ReporterID == "u1" && r.TargetType == models.TargetPost && r.Reason == models.ReasonSpam
	})).Return(stored, false, nil).Once()
	f.reports.On("File", mock.Anything, mock.Anything).Return(stored, true, nil).Once()
	f.reports.On("List", mock.Anything, models.ReportStatus(""), 10).Return([]*models.Report{stored}, nil).Once()
	f.reports.On("SetStatus", mock.Anything, stored.ID, models.ReportResolved).Return(stored, nil).Once()

	body := `{"target_type":"POST","target_id":"p1","reason":"spam"}`
	rec := f.do(t, http.MethodPost, "/v1/reports", "u1", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/reports", "u1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var dup fileReportResponse
	decodeBody(t, rec, &dup)
	assert.True(t, dup.Duplicate)

	rec = f.doAs(t, http.MethodGet, "/v1/reports?limit=10", "mod", auth.RoleModerator, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list reportsResponse
	decodeBody(t, rec, &list)
	assert.Len(t, list.Reports, 1)

	rec = f.doAs(t, http.MethodPatch, "/v1/reports/"+stored.ID.String(), "mod", auth.RoleModerator, `{"status":"resolved"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_ReportReviewRequiresModerator(t *testing.T) {
	f := newAPIFixture(t, nil)
	target := "/v1/reports/" + uuid.NewString()

	tests := []struct {
		name     string
		method   string
		target   string
		userID   string
		role     string
		body     string
		wantCode int
	}{
		{"list anonymous", http.MethodGet, "/v1/reports", "", "", "", http.StatusUnauthorized},
		{"list as member", http.MethodGet, "/v1/reports", "u1", "", "", http.StatusForbidden},
		{"list with other role", http.MethodGet, "/v1/reports", "u1", "admin", "", http.StatusForbidden},
		{"dismiss anonymous", http.MethodPatch, target, "", "", `{"status":"dismissed"}`, http.StatusUnauthorized},
		{"dismiss as member", http.MethodPatch, target, "u1", "", `{"status":"dismissed"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.doAs(t, tt.method, tt.target, tt.userID, tt.role, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
	// The report service is never reached.
	f.reports.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	f.reports.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}
