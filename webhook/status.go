package webhook

import "fmt"

/* Status represents the delivery state of an event
 * Follows the lifecycle: Pending -> Sent, or Pending -> Retrying/Failed -> Sent
 */
type Status int

const (
	Pending Status = iota + 1
	Sent
	Failed
	Retrying
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	case Retrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) (Status, error) {
	switch str {
	case "pending":
		return Pending, nil
	case "sent":
		return Sent, nil
	case "failed":
		return Failed, nil
	case "retrying":
		return Retrying, nil
	default:
		return 0, fmt.Errorf("invalid status: %q", str)
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Pending || s > Retrying {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}

// IsFinal returns true if the status is terminal. Failed events can still be retried manually.
func (s Status) IsFinal() bool {
	return s == Sent
}

// Statuses lists every valid status
func Statuses() []Status {
	return []Status{Pending, Sent, Failed, Retrying}
}

// RetryMode distinguishes scheduler-driven retries from operator-driven ones
type RetryMode int

const (
	Automatic RetryMode = iota + 1
	Manual
)

// String returns the string representation of the retry mode
func (m RetryMode) String() string {
	switch m {
	case Automatic:
		return "automatic"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}
