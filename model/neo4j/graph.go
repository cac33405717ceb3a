// model/neo4j/graph.go
package gk_neo4j

// Node Labels
const (
	// LabelUser represents an account within a tenant
	LabelUser = "User"

	// LabelGroup represents a group of users within a tenant
	LabelGroup = "Group"

	// LabelPrivilege represents a single (key, dataId) grant held by one user or group
	LabelPrivilege = "Privilege"

	// LabelAuthenticationDevice represents a registered hardware authenticator
	LabelAuthenticationDevice = "AuthenticationDevice"
)

// Relationship Types
const (
	RelBelongsToGroup = "BELONGS_TO_GROUP"
	RelHasPrivilege   = "HAS_PRIVILEGE"
	RelHasDevice      = "HAS_DEVICE"
)

// Attributes
const (
	AttrID               = "id"
	AttrTenantID         = "tenantId"
	AttrEmail            = "email"
	AttrPasswordHash     = "passwordHash"
	AttrFailedLoginCount = "failedLoginCount"
	AttrLockedOut        = "lockedOut"
	AttrKey              = "key"
	AttrDataID           = "dataId"
	AttrCreatedAt        = "createdAt"
)
