// util/validation_util.go

package util

import (
	"fmt"
	"strings"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

const maxIdentifierLength = 256

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

// ValidateTenantID rejects ids that could escape a tenant-scoped store key.
func (v *ValidationUtil) ValidateTenantID(tenantID string) error {
	if err := validateIdentifier("tenant id", tenantID); err != nil {
		return fmt.Errorf("%w: %w", gk_errors.ErrTenantRequired, err)
	}
	if strings.Contains(tenantID, ":") {
		return fmt.Errorf("%w: tenant id cannot contain ':'", gk_errors.ErrTenantRequired)
	}
	return nil
}

func (v *ValidationUtil) ValidateGrant(grant model.Grant) error {
	if err := validateIdentifier("privilege key", grant.Key); err != nil {
		return fmt.Errorf("%w: %w", gk_errors.ErrInvalidGrant, err)
	}
	if err := validateIdentifier("data id", grant.DataID); err != nil {
		return fmt.Errorf("%w: %w", gk_errors.ErrInvalidGrant, err)
	}
	return nil
}

func (v *ValidationUtil) ValidatePrincipalID(id string) error {
	if err := validateIdentifier("principal id", id); err != nil {
		return fmt.Errorf("%w: %w", gk_errors.ErrPrincipalRequired, err)
	}
	return nil
}

func (v *ValidationUtil) ValidateLoginRequest(req model.LoginRequest) error {
	if strings.TrimSpace(req.Account) == "" {
		return fmt.Errorf("%w: account cannot be empty", gk_errors.ErrInvalidLoginRequest)
	}
	if len(req.Account) > maxIdentifierLength {
		return fmt.Errorf("%w: account is too long", gk_errors.ErrInvalidLoginRequest)
	}
	if req.Password == "" {
		return fmt.Errorf("%w: password cannot be empty", gk_errors.ErrInvalidLoginRequest)
	}
	return nil
}

func validateIdentifier(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(value) > maxIdentifierLength {
		return fmt.Errorf("%s cannot exceed %d characters", name, maxIdentifierLength)
	}
	return nil
}
