package service

import (
	"context"
	"testing"
	"time"

	"github.com/galette-community/plugin-stripe/internal/auth/domain"
	"github.com/galette-community/plugin-stripe/internal/auth/password"
	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T, admin, staff []string) (domain.Service, *clock.FakeClock) {
	t.Helper()

	hash := func(tokens []string) []string {
		out := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			h, err := password.Hash(tok)
			require.NoError(t, err)
			out = append(out, h)
		}
		return out
	}

	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{Admin: config.AdminConfig{
		AdminTokenHashes: hash(admin),
		StaffTokenHashes: hash(staff),
	}}
	return New(Params{Log: zaptest.NewLogger(t), Cfg: cfg, Clock: clk}), clk
}

func TestAuthenticateResolvesRole(t *testing.T) {
	svc, _ := newTestService(t, []string{"admin-token"}, []string{"staff-token"})
	ctx := context.Background()

	admin, err := svc.Authenticate(ctx, "admin-token")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Len(t, admin.TokenID, 12)

	staff, err := svc.Authenticate(ctx, " staff-token ")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, staff.Role)
	assert.NotEqual(t, admin.TokenID, staff.TokenID)
	assert.Equal(t, "token:"+staff.TokenID, staff.Subject())
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	svc, _ := newTestService(t, []string{"admin-token"}, nil)

	_, err := svc.Authenticate(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestAuthenticateWithoutConfiguredTokens(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Authenticate(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateCachesVerifiedTokens(t *testing.T) {
	svc, clk := newTestService(t, []string{"admin-token"}, nil)
	impl := svc.(*Service)

	_, err := svc.Authenticate(context.Background(), "admin-token")
	require.NoError(t, err)
	assert.Equal(t, 1, impl.verified.Len())

	clk.Advance(principalCacheTTL)
	_, ok := impl.verified.Get(fingerprintToken("admin-token"))
	assert.False(t, ok)

	p, err := svc.Authenticate(context.Background(), "admin-token")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
}
