package sumit

import (
	"fmt"

	"github.com/jellydator/validation"
)

/* KeyKind selects which API key authenticates a call
 * Payments, documents and recurring billing use the private key,
 * card tokenization from untrusted contexts uses the public key
 */
type KeyKind int

const (
	PrivateKey KeyKind = iota + 1
	PublicKey
)

// String returns the string representation of the key kind
func (k KeyKind) String() string {
	switch k {
	case PrivateKey:
		return "private"
	case PublicKey:
		return "public"
	default:
		return "unknown"
	}
}

// NewKeyKind creates a KeyKind from a string, defaulting to PrivateKey
func NewKeyKind(str string) KeyKind {
	if str == "public" {
		return PublicKey
	}
	return PrivateKey
}

// Validate checks if the key kind is valid
func (k KeyKind) Validate() error {
	if k != PrivateKey && k != PublicKey {
		return fmt.Errorf("invalid key kind: %d", k)
	}
	return nil
}

/* Credentials identify the merchant account
 * Shared read-only across every call; String never prints the keys
 */
type Credentials struct {
	CompanyID  int64
	PrivateKey string
	PublicKey  string
}

// Validate checks that the key needed for kind is present
func (c Credentials) Validate(kind KeyKind) error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CompanyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.PrivateKey, validation.When(kind == PrivateKey, validation.Required)),
		validation.Field(&c.PublicKey, validation.When(kind == PublicKey, validation.Required)),
	)
}

// String identifies the account without leaking keys
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{CompanyID: %d}", c.CompanyID)
}

// GoString keeps %#v from printing keys
func (c Credentials) GoString() string {
	return c.String()
}

// body returns the Credentials object the gateway expects in every request
func (c Credentials) body(kind KeyKind) map[string]any {
	out := map[string]any{"CompanyID": c.CompanyID}
	if kind == PublicKey {
		out["APIPublicKey"] = c.PublicKey
	} else {
		out["APIKey"] = c.PrivateKey
	}
	return out
}
