package sumit

import (
	"fmt"
	"time"
)

/* Family is the convention an endpoint uses for its Status field
 * Numeric endpoints answer 0 on success, String endpoints answer "Success"
 */
type Family int

const (
	FamilyNumeric Family = iota + 1
	FamilyString
	FamilyEither
)

// String returns the string representation of the family
func (f Family) String() string {
	switch f {
	case FamilyNumeric:
		return "numeric"
	case FamilyString:
		return "string"
	case FamilyEither:
		return "either"
	default:
		return "unknown"
	}
}

// NewFamily creates a Family from a string, defaulting to Either
func NewFamily(str string) Family {
	switch str {
	case "numeric":
		return FamilyNumeric
	case "string":
		return FamilyString
	default:
		return FamilyEither
	}
}

// Validate checks if the family is valid
func (f Family) Validate() error {
	if f < FamilyNumeric || f > FamilyEither {
		return fmt.Errorf("invalid status family: %d", f)
	}
	return nil
}

/* Policy describes how one gateway endpoint is called
 * RetryOnRejection is only honoured for non-mutating endpoints
 */
type Policy struct {
	Path             string
	Family           Family
	Key              KeyKind
	Timeout          time.Duration
	Mutation         bool
	RetryOnRejection bool
}

// Validate checks the policy is internally consistent
func (p Policy) Validate() error {
	if p.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if err := p.Family.Validate(); err != nil {
		return fmt.Errorf("endpoint %s: %w", p.Path, err)
	}
	if err := p.Key.Validate(); err != nil {
		return fmt.Errorf("endpoint %s: %w", p.Path, err)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("endpoint %s: timeout cannot be negative", p.Path)
	}
	if p.Mutation && p.RetryOnRejection {
		return fmt.Errorf("endpoint %s: mutating endpoints cannot retry on rejection", p.Path)
	}
	return nil
}

// DefaultPolicy is used for paths without a catalog entry
func DefaultPolicy(path string) Policy {
	return Policy{
		Path:     path,
		Family:   FamilyEither,
		Key:      PrivateKey,
		Mutation: true,
	}
}

// PolicySource looks up endpoint policies by path
type PolicySource interface {
	Policy(path string) (Policy, bool)
}

// Policies is a PolicySource backed by a map
type Policies map[string]Policy

// Policy returns the policy registered for path
func (p Policies) Policy(path string) (Policy, bool) {
	pol, ok := p[path]
	return pol, ok
}
