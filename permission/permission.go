// Package permission holds the closed set of capabilities the Library API
// grants through access tokens, and the pure rules used to decide whether a
// granted set satisfies what a route requires.
//
// Nothing in this package performs I/O. A Requirement is built once, when a
// route is registered, and evaluated for every request:
//
//	req, err := permission.NewRequirement(permission.MatchAll, permission.BookRead)
//	if err != nil {
//	    log.Fatal(err) // empty requirement, refuse to serve
//	}
//	if err := req.Enforce(identity.Permissions); err != nil {
//	    // err is a *permission.DeniedError
//	}
package permission

import (
	"fmt"
	"sort"
)

// Permission is a capability tag carried by the "permissions" claim.
type Permission string

// Known permissions.
const (
	BookRead    Permission = "book:read"
	BookManage  Permission = "book:manage"
	LoanApprove Permission = "loan:approve"
	LoanRequest Permission = "loan:request"
	LoanRead    Permission = "loan:read"
)

var known = map[Permission]struct{}{
	BookRead:    {},
	BookManage:  {},
	LoanApprove: {},
	LoanRequest: {},
	LoanRead:    {},
}

// All returns every known permission in sorted order.
func All() []Permission {
	all := make([]Permission, 0, len(known))
	for p := range known {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// IsKnown reports whether p belongs to the known set.
func (p Permission) IsKnown() bool {
	_, ok := known[p]
	return ok
}

func (p Permission) String() string {
	return string(p)
}

// Parse converts s into a Permission. Matching is exact: no trimming, no case
// folding.
func Parse(s string) (Permission, error) {
	p := Permission(s)
	if !p.IsKnown() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// Set is an unordered collection of unique permissions.
// The zero value is an empty set ready for reads; use NewSet to build one.
type Set map[Permission]struct{}

// NewSet builds a Set from perms, collapsing duplicates.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of permissions in the set.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the permissions as lexically sorted strings. The result is
// never nil so that it encodes as an empty JSON array.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// Slice returns the permissions in sorted order.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SubsetOf reports whether every permission of s is also in other.
func (s Set) SubsetOf(other Set) bool {
	for p := range s {
		if !other.Has(p) {
			return false
		}
	}
	return true
}

// Intersects reports whether s and other share at least one permission.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for p := range small {
		if large.Has(p) {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the set as a sorted array of strings.
func (s Set) MarshalJSON() ([]byte, error) {
	return marshalStrings(s.Sorted())
}
