package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	authdomain "github.com/galette-community/plugin-stripe/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSettings  = "settings"
	ObjectPriceTier = "price_tier"
	ObjectHistory   = "history"
	ObjectAuditLog  = "audit_log"
)

const (
	ActionSettingsView = "settings.view"
	// ActionSettingsUpdate covers the inactive tier set.
	ActionSettingsUpdate = "settings.update"
	// ActionSettingsCredentials covers keys, webhook secret, country and currency.
	ActionSettingsCredentials = "settings.credentials"

	ActionPriceTierView   = "price_tier.view"
	ActionPriceTierUpdate = "price_tier.update"

	ActionHistoryView    = "history.view"
	ActionHistoryReceipt = "history.receipt"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "stripe", "casbin_rule")
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal authdomain.Principal, object string, action string) error {
	if strings.TrimSpace(principal.TokenID) == "" {
		return ErrInvalidActor
	}
	roleName, err := roleFor(principal.Role)
	if err != nil {
		return err
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := principal.Subject()
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, principal, object, action)
		return ErrForbidden
	}
	return nil
}

func roleFor(role authdomain.Role) (string, error) {
	switch role {
	case authdomain.RoleAdmin, authdomain.RoleStaff:
		return fmt.Sprintf("role:%s", role), nil
	default:
		return "", ErrInvalidActor
	}
}

// ensureGrouping keeps exactly one role link per token subject, so a token
// moved from the admin list to the staff list loses its admin grants.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, principal authdomain.Principal, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := principal.TokenID
	target := object
	_ = s.auditSvc.AuditLog(ctx, string(principal.Role), &actorID, auditdomain.ActionAuthorizationDenied, "capability", &target, map[string]any{
		"object": object,
		"action": action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Staff: day-to-day pricing and history
		{"role:staff", ObjectSettings, ActionSettingsView},
		{"role:staff", ObjectSettings, ActionSettingsUpdate},
		{"role:staff", ObjectPriceTier, ActionPriceTierView},
		{"role:staff", ObjectPriceTier, ActionPriceTierUpdate},
		{"role:staff", ObjectHistory, ActionHistoryView},
		{"role:staff", ObjectHistory, ActionHistoryReceipt},

		// Admin: everything staff can do plus credentials and audit
		{"role:admin", ObjectSettings, ActionSettingsView},
		{"role:admin", ObjectSettings, ActionSettingsUpdate},
		{"role:admin", ObjectSettings, ActionSettingsCredentials},
		{"role:admin", ObjectPriceTier, ActionPriceTierView},
		{"role:admin", ObjectPriceTier, ActionPriceTierUpdate},
		{"role:admin", ObjectHistory, ActionHistoryView},
		{"role:admin", ObjectHistory, ActionHistoryReceipt},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
