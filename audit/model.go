// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

const (
	ActionLoginSuccess      = "password login success"
	ActionLoginFailure      = "password login failure"
	ActionTokenInvalidated  = "access token invalidated"
	ActionPrivilegeGranted  = "privilege granted"
	ActionPrivilegeRevoked  = "privilege revoked"
	ActionPrivilegesFlushed = "privileges flushed"
)

type AuditLog struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	TenantID      string          `json:"tenant_id"`
	AccountID     string          `json:"account_id,omitempty"`
	Account       string          `json:"account,omitempty"`
	SessionID     string          `json:"session_id,omitempty"`
	RemoteAddr    string          `json:"remote_addr,omitempty"`
	Action        string          `json:"action"`
	Principal     string          `json:"principal,omitempty"`
	PrivilegeKey  string          `json:"privilege_key,omitempty"`
	DataID        string          `json:"data_id,omitempty"`
	Success       bool            `json:"success"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}

// Query filters audit logs. TenantID is mandatory; the rest are optional.
type Query struct {
	TenantID  string
	From      time.Time
	To        time.Time
	AccountID string
	Action    string
}
