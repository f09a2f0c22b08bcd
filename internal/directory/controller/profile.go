package controller

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cordigram/directory/internal/directory/db"
	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/events"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/cordigram/directory/internal/directory/normalize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

// ProfileRepository defines the storage interface for Profile objects.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
	SearchProfiles(ctx context.Context, q db.ProfileQuery) ([]*models.Profile, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// ProfileService manages profiles, their workplace linkage and the follow
// graph.
type ProfileService struct {
	repo      ProfileRepository
	companies CompanyResolver
	producer  EventProducer
	logger    *zap.Logger
	now       func() time.Time
}

func NewProfileService(repo ProfileRepository, companies CompanyResolver, producer EventProducer, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:      repo,
		companies: companies,
		producer:  producer,
		logger:    logger.Named("profile_service"),
		now:       time.Now,
	}
}

// CreateProfile creates the profile of userID. A user owns at most one
// profile and usernames are unique.
func (s *ProfileService) CreateProfile(ctx context.Context, userID, username, displayName string) (*models.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user", e.ErrInvalidInput)
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: invalid username", e.ErrInvalidInput)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	if utf8.RuneCountInString(displayName) > 50 {
		return nil, fmt.Errorf("%w: display name too long", e.ErrInvalidInput)
	}

	profile := &models.Profile{
		ID:          uuid.New(),
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		Gender:      models.GenderUndisclosed,
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// GetProfile returns the profile owned by userID.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetByUsername returns the profile with the given username.
func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := s.repo.GetProfileByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// Search ranks profiles whose username or display name contains query.
// The caller's own profile is left out when excludeUserID is set.
func (s *ProfileService) Search(ctx context.Context, query string, limit int, excludeUserID string) ([]*models.Profile, error) {
	key := normalize.Key(query)
	if key == "" {
		return []*models.Profile{}, nil
	}
	profiles, err := s.repo.SearchProfiles(ctx, db.ProfileQuery{
		Key:           key,
		Limit:         ClampLimit(limit),
		ExcludeUserID: excludeUserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	if profiles == nil {
		profiles = []*models.Profile{}
	}
	return profiles, nil
}

// UpdateProfile applies a partial update. When the update carries a
// workplace change, the profile write and both member counters are updated
// in one transaction; the target company is resolved, and created if needed,
// before the transaction starts.
func (s *ProfileService) UpdateProfile(ctx context.Context, update *models.ProfileUpdate) (*models.Profile, error) {
	if update == nil || update.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", e.ErrInvalidInput)
	}
	fields, err := s.profileFields(update)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetProfileByUserID(ctx, update.UserID); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var next *models.Workplace
	if update.Workplace != nil && update.Workplace.Kind != models.WorkplaceClear {
		next, err = resolveWorkplace(ctx, s.companies, *update.Workplace)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workplace: %w", err)
		}
	}

	var prev *models.Workplace
	changed := false
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		current, err := tx.GetProfileByUserID(ctx, update.UserID)
		if err != nil {
			return err
		}
		prev = current.Workplace

		if err := tx.UpdateProfile(ctx, update.UserID, fields); err != nil {
			return err
		}
		if update.Workplace == nil {
			return nil
		}
		changed, err = applyWorkplace(ctx, tx, update.UserID, prev, next)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	updated, err := s.repo.GetProfileByUserID(ctx, update.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get updated profile: %w", err)
	}

	if changed {
		change := &events.WorkplaceChange{UserID: update.UserID}
		if prev != nil {
			change.PrevCompanyID = &prev.CompanyID
		}
		if next != nil {
			change.NextCompanyID = &next.CompanyID
		}
		s.logger.Info("Workplace changed",
			zap.String("user_id", update.UserID),
			zap.String("prev_company_id", workplaceID(prev)),
			zap.String("next_company_id", workplaceID(next)),
		)
		go func() {
			s.producer.Produce(events.Event{Type: events.WorkplaceChanged, Workplace: change})
		}()
	}
	return updated, nil
}

// profileFields validates the scalar part of update and returns the
// columns to write.
func (s *ProfileService) profileFields(update *models.ProfileUpdate) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	invalid := func(msg string) error {
		return fmt.Errorf("%w: %s", e.ErrInvalidInput, msg)
	}

	if update.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*update.Username))
		if !usernamePattern.MatchString(username) {
			return nil, invalid("invalid username")
		}
		fields["username"] = username
	}
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" || utf8.RuneCountInString(name) > 50 {
			return nil, invalid("display name must be 1-50 characters")
		}
		fields["display_name"] = name
	}
	if update.Bio != nil {
		if utf8.RuneCountInString(*update.Bio) > 300 {
			return nil, invalid("bio too long")
		}
		fields["bio"] = strings.TrimSpace(*update.Bio)
	}
	if update.Location != nil {
		if utf8.RuneCountInString(*update.Location) > 100 {
			return nil, invalid("location too long")
		}
		fields["location"] = strings.TrimSpace(*update.Location)
	}
	if update.Gender != nil {
		if !update.Gender.Valid() {
			return nil, invalid("unknown gender")
		}
		fields["gender"] = string(*update.Gender)
	}
	if update.Birthdate != nil {
		b := *update.Birthdate
		if b.After(s.now()) || b.Year() < 1900 {
			return nil, invalid("birthdate out of range")
		}
		fields["birthdate"] = b
	}
	if update.AvatarURL != nil {
		if len(*update.AvatarURL) > 500 {
			return nil, invalid("avatar url too long")
		}
		fields["avatar_url"] = *update.AvatarURL
	}
	if update.AvatarPublicID != nil {
		if len(*update.AvatarPublicID) > 200 {
			return nil, invalid("avatar id too long")
		}
		fields["avatar_public_id"] = *update.AvatarPublicID
	}
	if update.CoverURL != nil {
		if len(*update.CoverURL) > 500 {
			return nil, invalid("cover url too long")
		}
		fields["cover_url"] = *update.CoverURL
	}
	return fields, nil
}

// Follow makes followerID follow the profile named username. Following
// twice is a no-op. It returns the followed profile.
func (s *ProfileService) Follow(ctx context.Context, followerID, username string) (*models.Profile, error) {
	target, err := s.followTarget(ctx, followerID, username)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		exists, err := tx.FollowExists(ctx, followerID, target.UserID)
		if err != nil || exists {
			return err
		}
		if err := tx.CreateFollow(ctx, &models.Follow{FollowerID: followerID, FolloweeID: target.UserID}); err != nil {
			return err
		}
		return tx.AdjustFollowCounts(ctx, followerID, target.UserID, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to follow: %w", err)
	}
	return s.GetProfile(ctx, target.UserID)
}

// Unfollow removes the follow edge, if any. It returns the unfollowed profile.
func (s *ProfileService) Unfollow(ctx context.Context, followerID, username string) (*models.Profile, error) {
	target, err := s.followTarget(ctx, followerID, username)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		err := tx.DeleteFollow(ctx, followerID, target.UserID)
		if errors.Is(err, e.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.AdjustFollowCounts(ctx, followerID, target.UserID, -1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unfollow: %w", err)
	}
	return s.GetProfile(ctx, target.UserID)
}

func (s *ProfileService) followTarget(ctx context.Context, followerID, username string) (*models.Profile, error) {
	if followerID == "" {
		return nil, fmt.Errorf("%w: missing user", e.ErrInvalidInput)
	}
	target, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.UserID == followerID {
		return nil, fmt.Errorf("%w: cannot follow yourself", e.ErrInvalidInput)
	}
	return target, nil
}
