package handlers

import "github.com/cordigram/directory/internal/directory/models"

type createProfileRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// updateProfileRequest is the body of PATCH /v1/me/profile. Absent fields
// are left unchanged.
type updateProfileRequest struct {
	Username           *string `json:"username"`
	DisplayName        *string `json:"display_name"`
	Bio                *string `json:"bio"`
	Location           *string `json:"location"`
	Gender             *string `json:"gender"`
	Birthdate          *string `json:"birthdate"`
	AvatarURL          *string `json:"avatar_url"`
	AvatarPublicID     *string `json:"avatar_public_id"`
	CoverURL           *string `json:"cover_url"`
	WorkplaceName      *string `json:"workplace_name"`
	WorkplaceCompanyID *string `json:"workplace_company_id"`
}

type addAliasRequest struct {
	Alias string `json:"alias"`
}

type fileReportRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
	Note       string `json:"note"`
}

type setReportStatusRequest struct {
	Status string `json:"status"`
}

type companiesResponse struct {
	Companies []*models.Company `json:"companies"`
}

type profilesResponse struct {
	Profiles []*models.Profile `json:"profiles"`
}

type reportsResponse struct {
	Reports []*models.Report `json:"reports"`
}

type fileReportResponse struct {
	Report    *models.Report `json:"report"`
	Duplicate bool           `json:"duplicate"`
}
