package sumit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const successString = "Success"

/* Status is the gateway's own outcome field
 * Depending on the endpoint it is an integer or a string; both forms are kept
 */
type Status struct {
	Code    *int
	Text    string
	present bool
}

// UnmarshalJSON accepts a number, a string or null
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Status{}
		return nil
	}
	s.present = true
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Text)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}
	s.Code = &i
	return nil
}

// MarshalJSON writes the status back in the form it was received
func (s Status) MarshalJSON() ([]byte, error) {
	switch {
	case s.Code != nil:
		return json.Marshal(*s.Code)
	case s.present:
		return json.Marshal(s.Text)
	default:
		return []byte("null"), nil
	}
}

// String renders the status for logs and errors
func (s Status) String() string {
	if s.Code != nil {
		return strconv.Itoa(*s.Code)
	}
	return s.Text
}

// Success reports whether the status means success for the given family
func (s Status) Success(f Family) bool {
	numeric := s.Code != nil && *s.Code == 0
	text := s.Code == nil && s.Text == successString
	switch f {
	case FamilyNumeric:
		return numeric
	case FamilyString:
		return text
	default:
		return numeric || text
	}
}

/* Response is the decoded gateway body
 * HTTP 200 alone does not mean success, IsValid inspects Status
 */
type Response struct {
	Status                Status          `json:"Status"`
	UserErrorMessage      string          `json:"UserErrorMessage,omitempty"`
	TechnicalErrorDetails string          `json:"TechnicalErrorDetails,omitempty"`
	Data                  json.RawMessage `json:"Data,omitempty"`

	StatusCode int    `json:"-"`
	Raw        []byte `json:"-"`
	family     Family
}

// IsValid reports business success for the endpoint's status family
func (r Response) IsValid() bool {
	f := r.family
	if f == 0 {
		f = FamilyEither
	}
	return r.Status.Success(f)
}

// ErrorMessage returns the user-facing failure message, if any
func (r Response) ErrorMessage() string {
	if r.IsValid() {
		return ""
	}
	if r.UserErrorMessage != "" {
		return r.UserErrorMessage
	}
	if r.TechnicalErrorDetails != "" {
		return r.TechnicalErrorDetails
	}
	return fmt.Sprintf("gateway returned status %s", r.Status)
}

// HasData reports whether the response carries a non-null Data payload
func (r Response) HasData() bool {
	d := bytes.TrimSpace(r.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Decode unmarshals Data into v
func (r Response) Decode(v any) error {
	if !r.HasData() {
		return ErrNoData
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}

// ParseResponse decodes a gateway body for the given status family
func ParseResponse(body []byte, family Family) (Response, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, err
	}
	r.Raw = body
	r.family = family
	return r, nil
}
