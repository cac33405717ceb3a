// test/mock/account.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

// MockAccountDirectory is a mock implementation of service.AccountDirectory
type MockAccountDirectory struct {
	mock.Mock
}

func (m *MockAccountDirectory) GetAccount(ctx context.Context, tenantID, account string) (*model.Account, error) {
	args := m.Called(ctx, tenantID, account)
	acc, _ := args.Get(0).(*model.Account)
	return acc, args.Error(1)
}

func (m *MockAccountDirectory) GetUserGroups(ctx context.Context, tenantID, userID string) ([]string, error) {
	args := m.Called(ctx, tenantID, userID)
	groups, _ := args.Get(0).([]string)
	return groups, args.Error(1)
}

func (m *MockAccountDirectory) UpdateLoginState(ctx context.Context, tenantID, accountID string, failedCount int, lockedOut bool) error {
	args := m.Called(ctx, tenantID, accountID, failedCount, lockedOut)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of service.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) SaveToken(ctx context.Context, binding model.TokenBinding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

func (m *MockTokenStore) GetToken(ctx context.Context, tenantID, tokenHash string) (*model.TokenBinding, error) {
	args := m.Called(ctx, tenantID, tokenHash)
	binding, _ := args.Get(0).(*model.TokenBinding)
	return binding, args.Error(1)
}

func (m *MockTokenStore) DeleteToken(ctx context.Context, tenantID, tokenHash string) error {
	args := m.Called(ctx, tenantID, tokenHash)
	return args.Error(0)
}

func (m *MockTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
