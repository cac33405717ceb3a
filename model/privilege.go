// model/privilege.go
package model

import "fmt"

// WildcardDataID grants a privilege key over every data object.
const WildcardDataID = "*"

// Grant is a single privilege held by a user or group.
type Grant struct {
	Key    string `json:"key" binding:"required"`
	DataID string `json:"dataId" binding:"required"`
}

type PrincipalKind int

const (
	PrincipalUser PrincipalKind = iota
	PrincipalGroup
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalUser:
		return "user"
	case PrincipalGroup:
		return "group"
	default:
		return fmt.Sprintf("PrincipalKind(%d)", int(k))
	}
}

// Principal identifies a privilege holder within a tenant.
type Principal struct {
	Kind PrincipalKind
	ID   string
}

func User(id string) Principal  { return Principal{Kind: PrincipalUser, ID: id} }
func Group(id string) Principal { return Principal{Kind: PrincipalGroup, ID: id} }

func (p Principal) String() string {
	return p.Kind.String() + ":" + p.ID
}

// PrivilegeIndex maps a privilege key to the set of data ids granted under
// it. It is immutable once built.
type PrivilegeIndex map[string]map[string]struct{}

// NewPrivilegeIndex merges grants into an index. Repeated keys collapse into
// one data id set.
func NewPrivilegeIndex(grants []Grant) PrivilegeIndex {
	index := make(PrivilegeIndex, len(grants))
	for _, grant := range grants {
		dataIDs, ok := index[grant.Key]
		if !ok {
			dataIDs = make(map[string]struct{})
			index[grant.Key] = dataIDs
		}
		dataIDs[grant.DataID] = struct{}{}
	}
	return index
}

// Contains reports whether key is granted for dataID, directly or through the
// wildcard.
func (ix PrivilegeIndex) Contains(key, dataID string) bool {
	dataIDs, ok := ix[key]
	if !ok {
		return false
	}
	if _, ok := dataIDs[dataID]; ok {
		return true
	}
	_, ok = dataIDs[WildcardDataID]
	return ok
}

// Size returns the number of distinct grants in the index.
func (ix PrivilegeIndex) Size() int {
	n := 0
	for _, dataIDs := range ix {
		n += len(dataIDs)
	}
	return n
}
