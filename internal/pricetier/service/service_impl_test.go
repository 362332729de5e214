package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	"github.com/galette-community/plugin-stripe/internal/pricetier/repository"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type stubSettings struct {
	settingsdomain.Service
	settings settingsdomain.Settings
}

func (s stubSettings) Get(context.Context) (settingsdomain.Settings, error) {
	return s.settings, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:pricetier_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE contribution_types (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			extends_membership BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE stripe_price_tiers (
			type_id INTEGER PRIMARY KEY,
			amount NUMERIC NULL
		)`,
		`INSERT INTO contribution_types (id, name, extends_membership) VALUES
			(1, 'Annual fee', 1), (2, 'Donation', 0), (3, 'Reduced fee', 1)`,
		`INSERT INTO stripe_price_tiers (type_id, amount) VALUES (1, 30.00)`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, inactive ...int64) domain.Service {
	t.Helper()
	return New(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		Repo:     repository.Provide(),
		Settings: stubSettings{settings: settingsdomain.Settings{InactiveTierIDs: inactive}},
	})
}

func TestListCreatesMissingRows(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	tiers, err := svc.List(context.Background(), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, tiers, 3)

	require.NotNil(t, tiers[0].Amount)
	assert.True(t, decimal.NewFromInt(30).Equal(*tiers[0].Amount))
	assert.False(t, tiers[0].IsDonation)
	assert.True(t, tiers[1].IsDonation)
	assert.Nil(t, tiers[1].Amount)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM stripe_price_tiers`).Scan(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, 3)
	ctx := context.Background()

	active, err := svc.List(ctx, domain.ListRequest{OnlyActive: true})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].ID)
	assert.Equal(t, int64(2), active[1].ID)

	anonymous, err := svc.List(ctx, domain.ListRequest{OnlyActive: true, Anonymous: true})
	require.NoError(t, err)
	require.Len(t, anonymous, 1)
	assert.Equal(t, "Donation", anonymous[0].Name)

	priced, err := svc.List(ctx, domain.ListRequest{OnlyPriced: true})
	require.NoError(t, err)
	require.Len(t, priced, 1)
	assert.Equal(t, int64(1), priced[0].ID)
}

func TestUpdateAmounts(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	amount := decimal.RequireFromString("12.50")
	tiers, err := svc.UpdateAmounts(ctx, []domain.AmountUpdate{
		{ID: 2, Amount: &amount},
		{ID: 1, Amount: nil},
	})
	require.NoError(t, err)
	require.Len(t, tiers, 3)
	assert.Nil(t, tiers[0].Amount)
	require.NotNil(t, tiers[1].Amount)
	assert.True(t, amount.Equal(*tiers[1].Amount))
}

func TestUpdateAmountsRejects(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	negative := decimal.NewFromInt(-1)
	_, err := svc.UpdateAmounts(ctx, []domain.AmountUpdate{{ID: 1, Amount: &negative}})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.UpdateAmounts(ctx, []domain.AmountUpdate{{ID: 99}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	tier, err := svc.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Donation", tier.Name)

	_, err = svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
