package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSync           = "sync"
	ObjectJob            = "job"
	ObjectTechnicianRate = "technician_rate"
	ObjectActivity       = "activity"
)

const (
	ActionSyncRun  = "sync.run"
	ActionSyncView = "sync.view"

	ActionJobView          = "job.view"
	ActionPaymentUpdate    = "payment.update"
	ActionAssignmentUpdate = "assignment.update"

	ActionTechnicianRateView   = "technician_rate.view"
	ActionTechnicianRateUpdate = "technician_rate.update"

	ActionActivityView = "activity.view"
)

const (
	RoleOwner     = "owner"
	RoleManager   = "manager"
	RoleScheduler = "scheduler"
	RoleViewer    = "viewer"
)

type Service interface {
	// Authorize checks whether subject, acting with role, may perform action
	// on object. Subjects look like "user:42" or "system:scheduler".
	Authorize(ctx context.Context, subject, role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer persists policies through the gorm adapter and seeds the
// built-in role grants on every start.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer keeps policies in memory only.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter == nil {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	}
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
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

func (s *ServiceImpl) Authorize(ctx context.Context, subject, role, object, action string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" || !strings.Contains(subject, ":") {
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

	if err := s.ensureGrouping(subject, fmt.Sprintf("role:%s", role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization.denied",
			zap.String("subject", subject),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject; a session whose
// role changed replaces the stale link.
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
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
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
		// Owner
		{"role:owner", ObjectSync, ActionSyncRun},
		{"role:owner", ObjectSync, ActionSyncView},
		{"role:owner", ObjectJob, ActionJobView},
		{"role:owner", ObjectJob, ActionPaymentUpdate},
		{"role:owner", ObjectJob, ActionAssignmentUpdate},
		{"role:owner", ObjectTechnicianRate, ActionTechnicianRateView},
		{"role:owner", ObjectTechnicianRate, ActionTechnicianRateUpdate},
		{"role:owner", ObjectActivity, ActionActivityView},

		// Manager
		{"role:manager", ObjectSync, ActionSyncRun},
		{"role:manager", ObjectSync, ActionSyncView},
		{"role:manager", ObjectJob, ActionJobView},
		{"role:manager", ObjectJob, ActionPaymentUpdate},
		{"role:manager", ObjectJob, ActionAssignmentUpdate},
		{"role:manager", ObjectTechnicianRate, ActionTechnicianRateView},
		{"role:manager", ObjectActivity, ActionActivityView},

		// Scheduler credential (automated callers)
		{"role:scheduler", ObjectSync, ActionSyncRun},
		{"role:scheduler", ObjectSync, ActionSyncView},

		// Viewer (read-only)
		{"role:viewer", ObjectSync, ActionSyncView},
		{"role:viewer", ObjectJob, ActionJobView},
		{"role:viewer", ObjectActivity, ActionActivityView},
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
	return nil
}
