package db

import (
	dbmodels "github.com/cordigram/directory/internal/directory/db/models"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/cordigram/directory/internal/directory/normalize"
	"github.com/google/uuid"
)

func companyToRecord(c *models.Company) *dbmodels.Company {
	rec := &dbmodels.Company{
		ID:             c.ID,
		Name:           c.Name,
		NormalizedName: c.NormalizedName,
		Status:         string(c.Status),
		MemberCount:    c.MemberCount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	for _, a := range c.Aliases {
		rec.Aliases = append(rec.Aliases, dbmodels.CompanyAlias{
			CompanyID:      c.ID,
			Name:           a.Name,
			NormalizedName: a.NormalizedName,
		})
	}
	return rec
}

func companyFromRecord(rec *dbmodels.Company) *models.Company {
	c := &models.Company{
		ID:             rec.ID,
		Name:           rec.Name,
		NormalizedName: rec.NormalizedName,
		Status:         models.CompanyStatus(rec.Status),
		MemberCount:    rec.MemberCount,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	for _, a := range rec.Aliases {
		c.Aliases = append(c.Aliases, models.Alias{Name: a.Name, NormalizedName: a.NormalizedName})
	}
	return c
}

func profileToRecord(p *models.Profile) *dbmodels.Profile {
	rec := &dbmodels.Profile{
		ID:             p.ID,
		UserID:         p.UserID,
		Username:       p.Username,
		DisplayName:    p.DisplayName,
		UsernameKey:    normalize.Key(p.Username),
		DisplayNameKey: normalize.Key(p.DisplayName),
		Bio:            p.Bio,
		Location:       p.Location,
		Gender:         string(p.Gender),
		Birthdate:      p.Birthdate,
		AvatarURL:      p.AvatarURL,
		AvatarPublicID: p.AvatarPublicID,
		CoverURL:       p.CoverURL,
		FollowerCount:  p.FollowerCount,
		FollowingCount: p.FollowingCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Workplace != nil {
		id := p.Workplace.CompanyID
		rec.WorkplaceCompanyID = &id
		rec.WorkplaceCompanyName = p.Workplace.CompanyName
	}
	return rec
}

func profileFromRecord(rec *dbmodels.Profile) *models.Profile {
	p := &models.Profile{
		ID:             rec.ID,
		UserID:         rec.UserID,
		Username:       rec.Username,
		DisplayName:    rec.DisplayName,
		Bio:            rec.Bio,
		Location:       rec.Location,
		Gender:         models.Gender(rec.Gender),
		Birthdate:      rec.Birthdate,
		AvatarURL:      rec.AvatarURL,
		AvatarPublicID: rec.AvatarPublicID,
		CoverURL:       rec.CoverURL,
		FollowerCount:  rec.FollowerCount,
		FollowingCount: rec.FollowingCount,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if rec.WorkplaceCompanyID != nil && *rec.WorkplaceCompanyID != uuid.Nil {
		p.Workplace = &models.Workplace{
			CompanyID:   *rec.WorkplaceCompanyID,
			CompanyName: rec.WorkplaceCompanyName,
		}
	}
	return p
}

func reportToRecord(r *models.Report) *dbmodels.Report {
	return &dbmodels.Report{
		ID:         r.ID,
		ReporterID: r.ReporterID,
		TargetType: string(r.TargetType),
		TargetID:   r.TargetID,
		Reason:     string(r.Reason),
		Note:       r.Note,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func reportFromRecord(rec *dbmodels.Report) *models.Report {
	return &models.Report{
		ID:         rec.ID,
		ReporterID: rec.ReporterID,
		TargetType: models.ReportTargetType(rec.TargetType),
		TargetID:   rec.TargetID,
		Reason:     models.ReportReason(rec.Reason),
		Note:       rec.Note,
		Status:     models.ReportStatus(rec.Status),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}
