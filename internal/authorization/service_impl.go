package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectUsage   = "usage"
	ObjectAlert   = "alert"
	ObjectReport  = "report"
	ObjectAccount = "account"
	ObjectUsers   = "users"
)

const (
	ActionUsageView     = "usage.view"
	ActionUsageWrite    = "usage.write"
	ActionUsageSimulate = "usage.simulate"

	ActionAlertView    = "alert.view"
	ActionAlertDismiss = "alert.dismiss"

	ActionReportDownload = "report.download"

	ActionAccountManage = "account.manage"

	ActionUsersView      = "users.view"
	ActionUsersUpdate    = "users.update"
	ActionUsersDelete    = "users.delete"
	ActionAdminsView     = "admins.view"
	ActionUsersDashboard = "users.dashboard"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
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
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, accountID snowflake.ID, role string, object string, action string) error {
	if accountID <= 0 {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(accountID)
	roleName := fmt.Sprintf("role:%s", role)
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
		return ErrForbidden
	}
	return nil
}

// Forget drops the role bindings of a deleted account.
func (s *ServiceImpl) Forget(ctx context.Context, accountID snowflake.ID) error {
	if accountID <= 0 {
		return ErrInvalidActor
	}
	_, err := s.enforcer.RemoveFilteredGroupingPolicy(0, subjectFor(accountID))
	return err
}

func subjectFor(accountID snowflake.ID) string {
	return "user:" + accountID.String()
}

// ensureGrouping keeps exactly one role binding per subject, following the
// role stored on the account.
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

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:user", ObjectUsage, ActionUsageView},
		{"role:user", ObjectUsage, ActionUsageWrite},
		{"role:user", ObjectUsage, ActionUsageSimulate},
		{"role:user", ObjectAlert, ActionAlertView},
		{"role:user", ObjectAlert, ActionAlertDismiss},
		{"role:user", ObjectReport, ActionReportDownload},
		{"role:user", ObjectAccount, ActionAccountManage},

		{"role:admin", ObjectUsers, ActionUsersView},
		{"role:admin", ObjectUsers, ActionUsersUpdate},
		{"role:admin", ObjectUsers, ActionUsersDelete},
		{"role:admin", ObjectUsers, ActionUsersDashboard},
		{"role:admin", ObjectUsers, ActionAdminsView},
	}

	for _, policy := range policies {
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

	// Admins keep every personal capability of a regular user.
	has, err := enforcer.HasGroupingPolicy("role:admin", "role:user")
	if err != nil {
		return err
	}
	if !has {
		if _, err := enforcer.AddGroupingPolicy("role:admin", "role:user"); err != nil {
			return err
		}
	}
	return nil
}
