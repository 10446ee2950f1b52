package sumit

import (
	"errors"
	"fmt"
)

var (
	ErrNoData             = errors.New("response has no data")
	ErrMissingMerchant    = errors.New("merchant number is not configured")
	ErrInvalidEnvironment = errors.New("invalid environment")
)

/* DomainRejection means HTTP succeeded but the gateway's Status field
 * signals failure. It is never retried inside a single call unless the
 * endpoint policy allows it; the webhook layer may retry it later
 */
type DomainRejection struct {
	Path      string
	Status    Status
	Message   string
	Technical string
}

func (e *DomainRejection) Error() string {
	return fmt.Sprintf("%s rejected with status %s: %s", e.Path, e.Status, e.Message)
}

// IsRejection reports whether err is a DomainRejection
func IsRejection(err error) bool {
	var dr *DomainRejection
	return errors.As(err, &dr)
}
