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

// companyOrder ranks active companies first, then by size, then by name.
const companyOrder = "CASE status WHEN 'active' THEN 0 ELSE 1 END, member_count DESC, normalized_name ASC"

// CompanyQuery selects companies whose normalized name or any normalized
// alias matches Term, either as a prefix or anywhere in the string.
type CompanyQuery struct {
	Term    string
	Prefix  bool
	Exclude []uuid.UUID
	Limit   int
}

// CreateCompany inserts a company. A taken normalized name is reported as
// e.ErrDuplicateName.
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	rec := companyToRecord(company)
	result := r.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateName
		}
		return result.Error
	}
	company.CreatedAt = rec.CreatedAt
	company.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return r.firstCompany(ctx, "id = ?", id)
}

func (r *Repository) GetCompanyByNormalizedName(ctx context.Context, normalized string) (*models.Company, error) {
	return r.firstCompany(ctx, "normalized_name = ?", normalized)
}

func (r *Repository) firstCompany(ctx context.Context, query string, args ...interface{}) (*models.Company, error) {
	var rec dbmodels.Company
	result := r.db.WithContext(ctx).Preload("Aliases").Where(query, args...).First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return companyFromRecord(&rec), nil
}

// FindCompanies returns companies matching q in suggestion order.
func (r *Repository) FindCompanies(ctx context.Context, q CompanyQuery) ([]*models.Company, error) {
	if q.Term == "" || q.Limit <= 0 {
		return nil, nil
	}

	pattern := escapeLike(q.Term) + "%"
	if !q.Prefix {
		pattern = "%" + pattern
	}

	aliases := r.db.Model(&dbmodels.CompanyAlias{}).
		Select("company_id").
		Where("normalized_name LIKE ? "+likeEscape, pattern)

	tx := r.db.WithContext(ctx).
		Preload("Aliases").
		Where(r.db.Where("normalized_name LIKE ? "+likeEscape, pattern).Or("id IN (?)", aliases))
	if len(q.Exclude) > 0 {
		excluded := make([]string, 0, len(q.Exclude))
		for _, id := range q.Exclude {
			excluded = append(excluded, id.String())
		}
		tx = tx.Where("id NOT IN ?", excluded)
	}

	var recs []dbmodels.Company
	result := tx.Order(companyOrder).Limit(q.Limit).Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}

	companies := make([]*models.Company, 0, len(recs))
	for i := range recs {
		companies = append(companies, companyFromRecord(&recs[i]))
	}
	return companies, nil
}

// IncrementMemberCount adds delta to the member count in a single statement,
// never going below zero. Unknown ids are ignored.
func (r *Repository) IncrementMemberCount(ctx context.Context, id uuid.UUID, delta int) error {
	if id == uuid.Nil || delta == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Where("id = ?", id).
		UpdateColumn("member_count",
			gorm.Expr("CASE WHEN member_count + ? < 0 THEN 0 ELSE member_count + ? END", delta, delta))
	return result.Error
}

// AddCompanyAlias attaches an alias. Re-adding an existing alias is a no-op.
func (r *Repository) AddCompanyAlias(ctx context.Context, companyID uuid.UUID, alias models.Alias) error {
	rec := &dbmodels.CompanyAlias{
		CompanyID:      companyID,
		Name:           alias.Name,
		NormalizedName: alias.NormalizedName,
	}
	result := r.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil
		}
		return result.Error
	}
	return nil
}

// CountCompanyMembers counts the profiles whose workplace is the company.
func (r *Repository) CountCompanyMembers(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Profile{}).
		Where("workplace_company_id = ?", id).
		Count(&count)
	return count, result.Error
}

func (r *Repository) SetMemberCount(ctx context.Context, id uuid.UUID, count int) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Where("id = ?", id).
		UpdateColumn("member_count", count)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// RecountMemberCounts recomputes every company's member count from the
// profiles table and returns the number of companies touched.
func (r *Repository) RecountMemberCounts(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`UPDATE companies SET member_count = (
		SELECT COUNT(*) FROM profiles WHERE profiles.workplace_company_id = companies.id
	)`)
	return result.RowsAffected, result.Error
}
