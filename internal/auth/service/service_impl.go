package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/galette-community/plugin-stripe/internal/auth/domain"
	"github.com/galette-community/plugin-stripe/internal/auth/password"
	"github.com/galette-community/plugin-stripe/internal/cache"
	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	principalCacheTTL  = 5 * time.Minute
	principalCacheSize = 256
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
}

type credential struct {
	role domain.Role
	hash string
}

type Service struct {
	log         *zap.Logger
	credentials []credential
	verified    cache.Cache[string, domain.Principal]
}

func New(p Params) domain.Service {
	log := p.Log.Named("auth.service")

	creds := make([]credential, 0, len(p.Cfg.Admin.AdminTokenHashes)+len(p.Cfg.Admin.StaffTokenHashes))
	for _, h := range p.Cfg.Admin.AdminTokenHashes {
		creds = append(creds, credential{role: domain.RoleAdmin, hash: h})
	}
	for _, h := range p.Cfg.Admin.StaffTokenHashes {
		creds = append(creds, credential{role: domain.RoleStaff, hash: h})
	}
	if len(creds) == 0 {
		log.Warn("no admin token hashes configured, admin API is closed")
	}

	return &Service{
		log:         log,
		credentials: creds,
		verified:    cache.NewTTLCache[string, domain.Principal](principalCacheSize, p.Clock.Now),
	}
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (domain.Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.Principal{}, domain.ErrMissingToken
	}

	fingerprint := fingerprintToken(rawToken)
	if principal, ok := s.verified.Get(fingerprint); ok {
		return principal, nil
	}

	// Admin hashes come first so a token listed twice gets the wider role.
	for _, cred := range s.credentials {
		if !password.Verify(rawToken, cred.hash) {
			continue
		}
		principal := domain.Principal{Role: cred.role, TokenID: fingerprint[:12]}
		s.verified.Set(fingerprint, principal, principalCacheTTL)
		return principal, nil
	}

	s.log.Debug("admin token rejected", zap.String("token_id", fingerprint[:12]))
	return domain.Principal{}, domain.ErrInvalidCredentials
}

func fingerprintToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
