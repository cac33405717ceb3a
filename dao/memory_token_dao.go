// dao/memory_token_dao.go
package dao

import (
	"context"
	"sync"
	"time"

	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

// MemoryTokenDAO keeps token bindings in process. Used for single instance
// deployments and tests.
type MemoryTokenDAO struct {
	mu       sync.RWMutex
	bindings map[string]model.TokenBinding
}

func NewMemoryTokenDAO() *MemoryTokenDAO {
	return &MemoryTokenDAO{bindings: make(map[string]model.TokenBinding)}
}

func (dao *MemoryTokenDAO) SaveToken(_ context.Context, binding model.TokenBinding) error {
	dao.mu.Lock()
	defer dao.mu.Unlock()
	dao.bindings[tokenKey(binding.TenantID, binding.TokenHash)] = binding
	return nil
}

func (dao *MemoryTokenDAO) GetToken(_ context.Context, tenantID, tokenHash string) (*model.TokenBinding, error) {
	dao.mu.RLock()
	defer dao.mu.RUnlock()
	binding, ok := dao.bindings[tokenKey(tenantID, tokenHash)]
	if !ok {
		return nil, nil
	}
	return &binding, nil
}

func (dao *MemoryTokenDAO) DeleteToken(_ context.Context, tenantID, tokenHash string) error {
	dao.mu.Lock()
	defer dao.mu.Unlock()
	delete(dao.bindings, tokenKey(tenantID, tokenHash))
	return nil
}

// DeleteExpired removes every binding expired at now.
func (dao *MemoryTokenDAO) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	dao.mu.Lock()
	defer dao.mu.Unlock()
	removed := 0
	for key, binding := range dao.bindings {
		if binding.Expired(now) {
			delete(dao.bindings, key)
			removed++
		}
	}
	return removed, nil
}
