package controller

import (
	"context"
	"errors"
	"testing"

	e "github.com/cordigram/directory/internal/directory/errors"
	"github.com/cordigram/directory/internal/directory/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorkplaceStore records workplace writes and counter deltas.
type fakeWorkplaceStore struct {
	workplace *models.Workplace
	deltas    map[uuid.UUID]int
	setErr    error
}

func (f *fakeWorkplaceStore) SetWorkplace(_ context.Context, _ string, w *models.Workplace) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.workplace = w
	return nil
}

func (f *fakeWorkplaceStore) IncrementMemberCount(_ context.Context, id uuid.UUID, delta int) error {
	if f.deltas == nil {
		f.deltas = map[uuid.UUID]int{}
	}
	f.deltas[id] += delta
	return nil
}

// fakeResolver serves a fixed set of companies.
type fakeResolver struct {
	byID   map[uuid.UUID]*models.Company
	byName map[string]*models.Company
	err    error
}

func (f *fakeResolver) GetCompany(_ context.Context, id uuid.UUID) (*models.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, e.ErrNotFound
}

func (f *fakeResolver) EnsureByName(_ context.Context, name string) (*models.Company, error) {
	return f.byName[name], nil
}

func TestApplyWorkplace(t *testing.T) {
	a := &models.Workplace{CompanyID: uuid.New(), CompanyName: "A"}
	b := &models.Workplace{CompanyID: uuid.New(), CompanyName: "B"}
	aAgain := &models.Workplace{CompanyID: a.CompanyID, CompanyName: "A renamed"}

	tests := []struct {
		name        string
		prev, next  *models.Workplace
		wantChanged bool
		wantDeltas  map[uuid.UUID]int
	}{
		{name: "link first workplace", next: a, wantChanged: true, wantDeltas: map[uuid.UUID]int{a.CompanyID: 1}},
		{name: "same workplace again", prev: a, next: aAgain, wantDeltas: nil},
		{name: "move", prev: a, next: b, wantChanged: true, wantDeltas: map[uuid.UUID]int{a.CompanyID: -1, b.CompanyID: 1}},
		{name: "clear", prev: a, wantChanged: true, wantDeltas: map[uuid.UUID]int{a.CompanyID: -1}},
		{name: "clear without workplace", wantDeltas: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeWorkplaceStore{}
			changed, err := applyWorkplace(context.Background(), store, "u1", tt.prev, tt.next)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantDeltas, store.deltas)
			assert.Equal(t, tt.next, store.workplace)
		})
	}

	t.Run("write failure leaves counters alone", func(t *testing.T) {
		store := &fakeWorkplaceStore{setErr: errors.New("write failed")}
		_, err := applyWorkplace(context.Background(), store, "u1", a, b)
		assert.Error(t, err)
		assert.Nil(t, store.deltas)
	})
}

func TestResolveWorkplace(t *testing.T) {
	acme := &models.Company{ID: uuid.New(), Name: "Acme"}
	globex := &models.Company{ID: uuid.New(), Name: "Globex"}
	resolver := &fakeResolver{
		byID:   map[uuid.UUID]*models.Company{acme.ID: acme},
		byName: map[string]*models.Company{"Globex": globex},
	}
	ctx := context.Background()

	got, err := resolveWorkplace(ctx, resolver, models.WorkplaceChange{Kind: models.WorkplaceByID, CompanyID: acme.ID, Name: "Globex"})
	require.NoError(t, err)
	assert.Equal(t, &models.Workplace{CompanyID: acme.ID, CompanyName: "Acme"}, got, "id wins over name")

	got, err = resolveWorkplace(ctx, resolver, models.WorkplaceChange{Kind: models.WorkplaceByID, CompanyID: uuid.New(), Name: "Globex"})
	require.NoError(t, err)
	assert.Equal(t, globex.ID, got.CompanyID, "unknown id falls back to name")

	_, err = resolveWorkplace(ctx, resolver, models.WorkplaceChange{Kind: models.WorkplaceByID, CompanyID: uuid.New()})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	got, err = resolveWorkplace(ctx, resolver, models.WorkplaceChange{Kind: models.WorkplaceByName, Name: "Globex"})
	require.NoError(t, err)
	assert.Equal(t, globex.ID, got.CompanyID)

	_, err = resolveWorkplace(ctx, resolver, models.WorkplaceChange{Kind: models.WorkplaceByName, Name: "Unknown"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	failing := &fakeResolver{err: errors.New("database error")}
	_, err = resolveWorkplace(ctx, failing, models.WorkplaceChange{Kind: models.WorkplaceByID, CompanyID: acme.ID})
	require.Error(t, err)
	assert.NotErrorIs(t, err, e.ErrInvalidInput)
}
