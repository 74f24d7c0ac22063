package auth

import (
	"encoding/json"
	"sort"
)

// Permission is a grant carried in the identity-provider token.
type Permission int

const (
	ReadAdmin Permission = iota + 1
	WriteAdmin
	WriteGame
	WriteSystemLog
)

var permissionNames = map[Permission]string{
	ReadAdmin:      "ReadAdmin",
	WriteAdmin:     "WriteAdmin",
	WriteGame:      "WriteGame",
	WriteSystemLog: "WriteSystemLog",
}

// token claim values
var permissionTags = map[string]Permission{
	"read:admin":       ReadAdmin,
	"write:admin":      WriteAdmin,
	"write:game":       WriteGame,
	"write:system_log": WriteSystemLog,
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "Unknown"
}

// Tag returns the token claim value for p.
func (p Permission) Tag() string {
	for tag, perm := range permissionTags {
		if perm == p {
			return tag
		}
	}
	return ""
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from ps.
func NewPermissionSet(ps ...Permission) PermissionSet {
	set := make(PermissionSet, len(ps))
	for _, p := range ps {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Names returns the sorted display names, as rendered in 403 bodies.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, p.String())
	}
	sort.Strings(names)
	return names
}

// UnmarshalJSON decodes a list of claim tags. Tags outside the known
// vocabulary are skipped; null decodes to the empty set.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	set := make(PermissionSet, len(tags))
	for _, tag := range tags {
		if p, ok := permissionTags[tag]; ok {
			set[p] = struct{}{}
		}
	}
	*s = set
	return nil
}

// MarshalJSON encodes the set as sorted claim tags.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	tags := make([]string, 0, len(s))
	for p := range s {
		tags = append(tags, p.Tag())
	}
	sort.Strings(tags)
	return json.Marshal(tags)
}
