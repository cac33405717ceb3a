// test/mock/service.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

// MockSecurityService is a mock implementation of service.ISecurityService
type MockSecurityService struct {
	mock.Mock
}

func (m *MockSecurityService) RequestAccessToken(ctx context.Context, req model.LoginRequest) (*model.AccessTokenResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*model.AccessTokenResult)
	return result, args.Error(1)
}

func (m *MockSecurityService) InvalidateAccessToken(ctx context.Context, tenantID, account, token string) error {
	args := m.Called(ctx, tenantID, account, token)
	return args.Error(0)
}

func (m *MockSecurityService) Authenticate(ctx context.Context, tenantID, token string) (*model.Identity, error) {
	args := m.Called(ctx, tenantID, token)
	identity, _ := args.Get(0).(*model.Identity)
	return identity, args.Error(1)
}

func (m *MockSecurityService) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSecurityService) StartSweeper(ctx context.Context) {
	m.Called(ctx)
}

// MockPrivilegeService is a mock implementation of service.IPrivilegeService
type MockPrivilegeService struct {
	mock.Mock
}

func (m *MockPrivilegeService) CheckPrivilege(ctx context.Context, tenantID string, identity *model.Identity, key, dataID string) (bool, error) {
	args := m.Called(ctx, tenantID, identity, key, dataID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrivilegeService) GrantGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant, actor *model.Identity) error {
	args := m.Called(ctx, tenantID, groupID, grant, actor)
	return args.Error(0)
}

func (m *MockPrivilegeService) RevokeGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant, actor *model.Identity) error {
	args := m.Called(ctx, tenantID, groupID, grant, actor)
	return args.Error(0)
}

func (m *MockPrivilegeService) GrantUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant, actor *model.Identity) error {
	args := m.Called(ctx, tenantID, userID, grant, actor)
	return args.Error(0)
}

func (m *MockPrivilegeService) RevokeUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant, actor *model.Identity) error {
	args := m.Called(ctx, tenantID, userID, grant, actor)
	return args.Error(0)
}

func (m *MockPrivilegeService) FlushTenant(ctx context.Context, tenantID string, actor *model.Identity) error {
	args := m.Called(ctx, tenantID, actor)
	return args.Error(0)
}
