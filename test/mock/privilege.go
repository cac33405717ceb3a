// test/mock/privilege.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

// MockPrivilegeChecker is a mock implementation of engine.PrivilegeChecker
type MockPrivilegeChecker struct {
	mock.Mock
}

func (m *MockPrivilegeChecker) HasPrivilege(ctx context.Context, tenantID string, principal model.Principal, key, dataID string) (bool, error) {
	args := m.Called(ctx, tenantID, principal, key, dataID)
	return args.Bool(0), args.Error(1)
}

// MockPrivilegeLoader is a mock implementation of cache.Loader
type MockPrivilegeLoader struct {
	mock.Mock
}

func (m *MockPrivilegeLoader) LoadGroupPrivileges(ctx context.Context, tenantID, groupID string) ([]model.Grant, error) {
	args := m.Called(ctx, tenantID, groupID)
	grants, _ := args.Get(0).([]model.Grant)
	return grants, args.Error(1)
}

func (m *MockPrivilegeLoader) LoadUserPrivileges(ctx context.Context, tenantID, userID string) ([]model.Grant, error) {
	args := m.Called(ctx, tenantID, userID)
	grants, _ := args.Get(0).([]model.Grant)
	return grants, args.Error(1)
}

// MockPrivilegeStore is a mock implementation of service.PrivilegeStore
type MockPrivilegeStore struct {
	mock.Mock
}

func (m *MockPrivilegeStore) GrantGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant) error {
	args := m.Called(ctx, tenantID, groupID, grant)
	return args.Error(0)
}

func (m *MockPrivilegeStore) RevokeGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant) error {
	args := m.Called(ctx, tenantID, groupID, grant)
	return args.Error(0)
}

func (m *MockPrivilegeStore) GrantUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant) error {
	args := m.Called(ctx, tenantID, userID, grant)
	return args.Error(0)
}

func (m *MockPrivilegeStore) RevokeUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant) error {
	args := m.Called(ctx, tenantID, userID, grant)
	return args.Error(0)
}
