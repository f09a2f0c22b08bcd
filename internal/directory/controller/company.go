package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
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
	"golang.org/x/sync/singleflight"
)

// CompanyRepository defines the storage interface for Company objects.
type CompanyRepository interface {
	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetCompanyByNormalizedName(ctx context.Context, normalized string) (*models.Company, error)
	FindCompanies(ctx context.Context, q db.CompanyQuery) ([]*models.Company, error)
	IncrementMemberCount(ctx context.Context, id uuid.UUID, delta int) error
	AddCompanyAlias(ctx context.Context, companyID uuid.UUID, alias models.Alias) error
}

// CompanyService provides the company directory: create-or-fetch by name,
// ranked suggestions and member counters.
type CompanyService struct {
	repo     CompanyRepository
	producer EventProducer
	logger   *zap.Logger
	ensure   singleflight.Group
}

// NewCompanyService constructs a CompanyService with a repository,
// an event producer, and a logger.
func NewCompanyService(repo CompanyRepository, producer EventProducer, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("company_service"),
	}
}

// ensureTimeout bounds a shared create-or-fetch, which runs detached from
// its callers' contexts.
const ensureTimeout = 10 * time.Second

// EnsureByName returns the company whose normalized name matches name,
// creating it on first reference. A blank name yields (nil, nil).
//
// Concurrent calls in this process for the same normalized name share one
// lookup. Across processes the unique normalized name decides the winner
// and the loser returns the winner's record. Each caller gets its own copy.
func (s *CompanyService) EnsureByName(ctx context.Context, name string) (*models.Company, error) {
	key := normalize.Name(name)
	if key == "" {
		return nil, nil
	}
	name = displayName(name)
	if utf8.RuneCountInString(name) > MaxCompanyNameLength {
		return nil, fmt.Errorf("%w: company name too long", e.ErrInvalidInput)
	}

	// A caller that gives up must not fail the others waiting on the flight.
	ch := s.ensure.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ensureTimeout)
		defer cancel()
		return s.createOrFetch(flightCtx, name, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneCompany(res.Val.(*models.Company)), nil
	}
}

func cloneCompany(c *models.Company) *models.Company {
	out := *c
	out.Aliases = slices.Clone(c.Aliases)
	return &out
}

func (s *CompanyService) createOrFetch(ctx context.Context, name, key string) (*models.Company, error) {
	existing, err := s.repo.GetCompanyByNormalizedName(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up company: %w", err)
	}

	company := &models.Company{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: key,
		Status:         models.StatusActive,
	}
	err = s.repo.CreateCompany(ctx, company)
	switch {
	case err == nil:
		s.logger.Info("Company created",
			zap.String("company_id", company.ID.String()),
			zap.String("normalized_name", key),
		)
		go func() {
			s.producer.Produce(events.Event{Type: events.CompanyCreated, Company: company})
		}()
		return company, nil
	case errors.Is(err, e.ErrDuplicateName):
		winner, err := s.repo.GetCompanyByNormalizedName(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch company after create conflict: %w", err)
		}
		s.logger.Debug("Company created concurrently, using existing record",
			zap.String("company_id", winner.ID.String()),
		)
		return winner, nil
	default:
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
}

// Suggest returns up to limit companies matching query: prefix matches on
// the name or an alias first, then substring matches.
func (s *CompanyService) Suggest(ctx context.Context, query string, limit int) ([]*models.Company, error) {
	key := normalize.Name(query)
	if key == "" {
		return []*models.Company{}, nil
	}
	limit = ClampLimit(limit)

	prefix, err := s.repo.FindCompanies(ctx, db.CompanyQuery{Term: key, Prefix: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to find companies: %w", err)
	}
	results := make([]*models.Company, 0, limit)
	results = append(results, prefix...)
	if len(results) >= limit {
		return results[:limit], nil
	}

	seen := make([]uuid.UUID, 0, len(results))
	for _, c := range results {
		seen = append(seen, c.ID)
	}
	contains, err := s.repo.FindCompanies(ctx, db.CompanyQuery{
		Term:    key,
		Exclude: seen,
		Limit:   limit - len(results),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find companies: %w", err)
	}
	return append(results, contains...), nil
}

// GetCompany retrieves a Company by ID, returning an error if not found.
func (s *CompanyService) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// IncrementMemberCount moves the company's member count by delta. A nil id
// is a no-op.
func (s *CompanyService) IncrementMemberCount(ctx context.Context, id uuid.UUID, delta int) error {
	if id == uuid.Nil {
		return nil
	}
	if err := s.repo.IncrementMemberCount(ctx, id, delta); err != nil {
		return fmt.Errorf("failed to update member count: %w", err)
	}
	return nil
}

// AddAlias attaches an alternative spelling to a company. Aliases that
// normalize to the company name or an existing alias are ignored.
func (s *CompanyService) AddAlias(ctx context.Context, id uuid.UUID, alias string) (*models.Company, error) {
	key := normalize.Name(alias)
	if key == "" || utf8.RuneCountInString(displayName(alias)) > MaxCompanyNameLength {
		return nil, fmt.Errorf("%w: invalid alias", e.ErrInvalidInput)
	}

	company, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	if company.NormalizedName == key {
		return company, nil
	}
	for _, a := range company.Aliases {
		if a.NormalizedName == key {
			return company, nil
		}
	}

	if err := s.repo.AddCompanyAlias(ctx, id, models.Alias{Name: displayName(alias), NormalizedName: key}); err != nil {
		return nil, fmt.Errorf("failed to add alias: %w", err)
	}
	return s.GetCompany(ctx, id)
}

// displayName trims and collapses the whitespace of a user supplied name.
func displayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
