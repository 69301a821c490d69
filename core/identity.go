package core

import (
	"time"

	"github.com/fabiensh/library-api/permission"
)

// Identity is a verified caller, built from a token whose signature and
// standard claims have been checked. It is created per request and never
// mutated afterwards.
type Identity struct {
	Issuer          string         `json:"issuer"`
	Subject         string         `json:"subject"`
	Audience        []string       `json:"audience"`
	IssuedAt        time.Time      `json:"issued_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
	AuthorizedParty string         `json:"authorized_party"`
	Permissions     permission.Set `json:"permissions"`
}

// HasPermission reports whether the identity was granted p.
func (i *Identity) HasPermission(p permission.Permission) bool {
	return i.Permissions.Has(p)
}
