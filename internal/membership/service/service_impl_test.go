package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/config"
	"github.com/galette-community/plugin-stripe/internal/membership/domain"
	"github.com/galette-community/plugin-stripe/internal/membership/repository"
	pkgdb "github.com/galette-community/plugin-stripe/pkg/db"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:membership_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE members (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE contribution_types (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			extends_membership BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE contributions (
			id INTEGER PRIMARY KEY,
			member_id INTEGER,
			type_id INTEGER NOT NULL,
			amount NUMERIC NOT NULL,
			payment_type TEXT NOT NULL,
			intent_id TEXT,
			begin_date DATE NOT NULL,
			end_date DATE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_contributions_intent ON contributions (intent_id) WHERE intent_id IS NOT NULL`,
		`INSERT INTO members (id, name) VALUES (7, 'Ada')`,
		`INSERT INTO contribution_types (id, name, extends_membership) VALUES (1, 'Annual fee', 1), (2, 'Donation', 0)`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Repo:  repository.Provide(),
		Cfg:   config.Config{Membership: config.MembershipConfig{ExtensionMonths: 12}},
		Clock: clock.NewFakeClock(testNow),
	})
}

func validRequest() domain.ContributionRequest {
	return domain.ContributionRequest{
		MemberID:    7,
		TierID:      1,
		Amount:      decimal.RequireFromString("30.00"),
		PaymentType: domain.PaymentTypeCard,
		IntentID:    "pi_123",
	}
}

func TestValidateContribution(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	errs, err := svc.ValidateContribution(ctx, validRequest())
	require.NoError(t, err)
	assert.Empty(t, errs)

	tests := []struct {
		name  string
		req   func(r *domain.ContributionRequest)
		field string
	}{
		{name: "unknown member", req: func(r *domain.ContributionRequest) { r.MemberID = 99 }, field: "member_id"},
		{name: "unknown tier", req: func(r *domain.ContributionRequest) { r.TierID = 42 }, field: "type_id"},
		{name: "zero amount", req: func(r *domain.ContributionRequest) { r.Amount = decimal.Zero }, field: "amount"},
		{name: "wrong payment type", req: func(r *domain.ContributionRequest) { r.PaymentType = "cash" }, field: "payment_type"},
		{name: "missing intent", req: func(r *domain.ContributionRequest) { r.IntentID = "" }, field: "intent_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.req(&req)
			errs, err := svc.ValidateContribution(ctx, req)
			require.NoError(t, err)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestPersistMembershipContribution(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	c, err := svc.PersistContribution(context.Background(), db, validRequest())
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), c.BeginDate)
	require.NotNil(t, c.EndDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *c.EndDate)

	// a renewal starts where the running period ends
	req := validRequest()
	req.IntentID = "pi_456"
	renewal, err := svc.PersistContribution(context.Background(), db, req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), renewal.BeginDate.UTC())
	require.NotNil(t, renewal.EndDate)
	assert.Equal(t, time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC), renewal.EndDate.UTC())
}

func TestPersistDonationHasNoPeriod(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	req := validRequest()
	req.TierID = 2
	c, err := svc.PersistContribution(context.Background(), db, req)
	require.NoError(t, err)
	assert.Nil(t, c.EndDate)
}

func TestPersistDuplicateIntent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.PersistContribution(ctx, db, validRequest())
	require.NoError(t, err)

	_, err = svc.PersistContribution(ctx, db, validRequest())
	require.Error(t, err)
	assert.True(t, pkgdb.IsDuplicateKeyErr(err))
}

func TestPersistUnknownTier(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	req := validRequest()
	req.TierID = 42
	_, err := svc.PersistContribution(context.Background(), db, req)
	assert.ErrorIs(t, err, domain.ErrTierNotFound)
}
