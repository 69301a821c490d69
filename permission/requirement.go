package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientPermissions is matched by every *DeniedError.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrEmptyRequirement is returned when a requirement lists no permission.
	ErrEmptyRequirement = errors.New("at least one permission must be specified")
)

// Matcher is the policy combining several required permissions.
type Matcher string

const (
	// MatchAll requires every required permission to be granted.
	MatchAll Matcher = "all"
	// MatchAny requires at least one required permission to be granted.
	MatchAny Matcher = "any"
)

// ParseMatcher converts "all" or "any" (case-insensitive) into a Matcher.
func ParseMatcher(s string) (Matcher, error) {
	switch m := Matcher(strings.ToLower(s)); m {
	case MatchAll, MatchAny:
		return m, nil
	default:
		return "", fmt.Errorf("unknown permission matcher %q", s)
	}
}

// Enforce decides whether granted satisfies required under matcher.
// It returns nil when access is allowed and a *DeniedError otherwise.
func Enforce(required Set, matcher Matcher, granted Set) error {
	var ok bool
	switch matcher {
	case MatchAll:
		ok = required.SubsetOf(granted)
	case MatchAny:
		ok = required.Intersects(granted)
	default:
		return fmt.Errorf("unknown permission matcher %q", matcher)
	}

	if ok {
		return nil
	}

	return &DeniedError{
		Matcher:  matcher,
		Required: required.Sorted(),
		Granted:  granted.Sorted(),
	}
}

// DeniedError describes a failed permission check. Required and Granted are
// sorted so that error bodies are reproducible.
type DeniedError struct {
	Matcher  Matcher
	Required []string
	Granted  []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: required %s of [%s], granted [%s]",
		ErrInsufficientPermissions,
		e.Matcher,
		strings.Join(e.Required, ", "),
		strings.Join(e.Granted, ", "),
	)
}

// Is allows the error to be compared with ErrInsufficientPermissions.
func (e *DeniedError) Is(target error) bool {
	return target == ErrInsufficientPermissions
}

// Requirement is attached to a route when it is registered.
type Requirement struct {
	matcher  Matcher
	required Set
}

// NewRequirement builds a Requirement. It fails when perms is empty or holds
// an unknown permission, so that misconfigured routes are caught before any
// traffic is served.
func NewRequirement(matcher Matcher, perms ...Permission) (*Requirement, error) {
	if matcher != MatchAll && matcher != MatchAny {
		return nil, fmt.Errorf("unknown permission matcher %q", matcher)
	}
	if len(perms) == 0 {
		return nil, ErrEmptyRequirement
	}
	for _, p := range perms {
		if !p.IsKnown() {
			return nil, fmt.Errorf("unknown permission %q in requirement", p)
		}
	}

	return &Requirement{matcher: matcher, required: NewSet(perms...)}, nil
}

// MustRequirement is like NewRequirement but panics on error.
func MustRequirement(matcher Matcher, perms ...Permission) *Requirement {
	r, err := NewRequirement(matcher, perms...)
	if err != nil {
		panic(err)
	}
	return r
}

// Matcher returns the policy of the requirement.
func (r *Requirement) Matcher() Matcher {
	return r.matcher
}

// Required returns the required permissions in sorted order.
func (r *Requirement) Required() []Permission {
	return r.required.Slice()
}

// Enforce checks granted against the requirement.
func (r *Requirement) Enforce(granted Set) error {
	return Enforce(r.required, r.matcher, granted)
}

func (r *Requirement) String() string {
	return fmt.Sprintf("%s(%s)", r.matcher, strings.Join(r.required.Sorted(), ","))
}

func marshalStrings(s []string) ([]byte, error) {
	return json.Marshal(s)
}
