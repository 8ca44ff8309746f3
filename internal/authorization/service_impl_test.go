package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *ServiceImpl {
	t.Helper()

	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer}).(*ServiceImpl)
}

func TestAuthorizeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		subject string
		role    string
		object  string
		action  string
		want    error
	}{
		{"owner runs sync", "user:1", RoleOwner, ObjectSync, ActionSyncRun, nil},
		{"manager runs sync", "user:2", RoleManager, ObjectSync, ActionSyncRun, nil},
		{"scheduler runs sync", "system:scheduler", RoleScheduler, ObjectSync, ActionSyncRun, nil},
		{"viewer cannot run sync", "user:3", RoleViewer, ObjectSync, ActionSyncRun, ErrForbidden},
		{"unknown role denied", "user:4", "technician", ObjectSync, ActionSyncRun, ErrForbidden},
		{"manager updates payment", "user:2", RoleManager, ObjectJob, ActionPaymentUpdate, nil},
		{"scheduler cannot update payment", "system:scheduler", RoleScheduler, ObjectJob, ActionPaymentUpdate, ErrForbidden},
		{"manager cannot set rate", "user:2", RoleManager, ObjectTechnicianRate, ActionTechnicianRateUpdate, ErrForbidden},
		{"owner sets rate", "user:1", RoleOwner, ObjectTechnicianRate, ActionTechnicianRateUpdate, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.subject, tc.role, tc.object, tc.action)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthorizeRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "user:9", RoleManager, ObjectJob, ActionPaymentUpdate))
	require.ErrorIs(t, svc.Authorize(ctx, "user:9", RoleViewer, ObjectJob, ActionPaymentUpdate), ErrForbidden)

	roles, err := svc.enforcer.GetRolesForUser("user:9")
	require.NoError(t, err)
	assert.Equal(t, []string{"role:viewer"}, roles)
}

func TestAuthorizeValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", RoleOwner, ObjectSync, ActionSyncRun), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", " ", ObjectSync, ActionSyncRun), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", RoleOwner, "", ActionSyncRun), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", RoleOwner, ObjectSync, ""), ErrInvalidAction)
}
