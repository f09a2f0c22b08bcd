package db

import (
	"context"
	"errors"

	dbmodels "github.com/cordigram/directory/internal/directory/db/models"
	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/cordigram/directory/internal/directory/normalize"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileOrder ranks username prefixes, then display-name prefixes, then
// shorter usernames, larger followings and newer profiles.
const profileOrder = "CASE WHEN username_key LIKE ? " + likeEscape + " THEN 0 ELSE 1 END, " +
	"CASE WHEN display_name_key LIKE ? " + likeEscape + " THEN 0 ELSE 1 END, " +
	"LENGTH(username) ASC, follower_count DESC, created_at DESC"

// ProfileQuery is a case-insensitive substring search over usernames and
// display names. Key must already be lowercased.
type ProfileQuery struct {
	Key           string
	Limit         int
	ExcludeUserID string
}

// CreateProfile inserts a profile. A taken user id or username is reported
// as e.ErrConflict.
func (r *Repository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	rec := profileToRecord(profile)
	result := r.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrConflict
		}
		return result.Error
	}
	profile.CreatedAt = rec.CreatedAt
	profile.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *Repository) GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	return r.firstProfile(ctx, "user_id = ?", userID)
}

func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	return r.firstProfile(ctx, "username = ?", username)
}

func (r *Repository) firstProfile(ctx context.Context, query string, args ...interface{}) (*models.Profile, error) {
	var rec dbmodels.Profile
	result := r.db.WithContext(ctx).Where(query, args...).First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return profileFromRecord(&rec), nil
}

// UpdateProfile applies column updates to the profile owned by userID.
// A changed username or display name refreshes its search key.
func (r *Repository) UpdateProfile(ctx context.Context, userID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields = withSearchKeys(fields)
	result := r.db.WithContext(ctx).Model(&dbmodels.Profile{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrConflict
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func withSearchKeys(fields map[string]interface{}) map[string]interface{} {
	keys := map[string]string{"username": "username_key", "display_name": "display_name_key"}
	out := make(map[string]interface{}, len(fields)+len(keys))
	for column, v := range fields {
		out[column] = v
		if key, ok := keys[column]; ok {
			if s, ok := v.(string); ok {
				out[key] = normalize.Key(s)
			}
		}
	}
	return out
}

// backfillSearchKeys fills the search keys of profiles stored before the
// key columns existed.
func (r *Repository) backfillSearchKeys(ctx context.Context) error {
	var recs []dbmodels.Profile
	return r.db.WithContext(ctx).
		Where("username_key = ''").
		FindInBatches(&recs, 200, func(*gorm.DB, int) error {
			for _, rec := range recs {
				err := r.db.WithContext(ctx).Model(&dbmodels.Profile{}).
					Where("id = ?", rec.ID).
					UpdateColumns(map[string]interface{}{
						"username_key":     normalize.Key(rec.Username),
						"display_name_key": normalize.Key(rec.DisplayName),
					}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// SetWorkplace stores the workplace of the profile owned by userID. A nil
// workplace clears it.
func (r *Repository) SetWorkplace(ctx context.Context, userID string, workplace *models.Workplace) error {
	fields := map[string]interface{}{
		"workplace_company_id":   nil,
		"workplace_company_name": "",
	}
	if workplace != nil {
		fields["workplace_company_id"] = workplace.CompanyID
		fields["workplace_company_name"] = workplace.CompanyName
	}
	return r.UpdateProfile(ctx, userID, fields)
}

// SearchProfiles returns profiles whose username or display name contains
// q.Key, in ranking order.
func (r *Repository) SearchProfiles(ctx context.Context, q ProfileQuery) ([]*models.Profile, error) {
	if q.Key == "" || q.Limit <= 0 {
		return nil, nil
	}

	contains := "%" + escapeLike(q.Key) + "%"
	prefix := escapeLike(q.Key) + "%"

	tx := r.db.WithContext(ctx).Model(&dbmodels.Profile{}).
		Where("(username_key LIKE ? "+likeEscape+" OR display_name_key LIKE ? "+likeEscape+")", contains, contains)
	if q.ExcludeUserID != "" {
		tx = tx.Where("user_id <> ?", q.ExcludeUserID)
	}

	var recs []dbmodels.Profile
	result := tx.Clauses(clause.OrderBy{Expression: clause.Expr{
		SQL:                profileOrder,
		Vars:               []interface{}{prefix, prefix},
		WithoutParentheses: true,
	}}).Limit(q.Limit).Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}

	profiles := make([]*models.Profile, 0, len(recs))
	for i := range recs {
		profiles = append(profiles, profileFromRecord(&recs[i]))
	}
	return profiles, nil
}

// AdjustFollowCounts moves the follower count of followeeID and the
// following count of followerID by delta, clamped at zero.
func (r *Repository) AdjustFollowCounts(ctx context.Context, followerID, followeeID string, delta int) error {
	clamp := func(column string) clause.Expr {
		return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
	}
	result := r.db.WithContext(ctx).Model(&dbmodels.Profile{}).
		Where("user_id = ?", followeeID).
		UpdateColumn("follower_count", clamp("follower_count"))
	if result.Error != nil {
		return result.Error
	}
	result = r.db.WithContext(ctx).Model(&dbmodels.Profile{}).
		Where("user_id = ?", followerID).
		UpdateColumn("following_count", clamp("following_count"))
	return result.Error
}

func (r *Repository) FollowExists(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) CreateFollow(ctx context.Context, follow *models.Follow) error {
	rec := &dbmodels.Follow{FollowerID: follow.FollowerID, FolloweeID: follow.FolloweeID}
	result := r.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrConflict
		}
		return result.Error
	}
	follow.CreatedAt = rec.CreatedAt
	return nil
}

func (r *Repository) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&dbmodels.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}
