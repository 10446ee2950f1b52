// Package redact strips secrets from outbound gateway payloads before any
// logging sink sees them.
package redact

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Sentinel replaces every sensitive value.
const Sentinel = "[REDACTED]"

var (
	// DefaultKeys are redacted at the top level and inside DefaultContainers.
	DefaultKeys = []string{
		"CardNumber",
		"CVV",
		"CreditCard_Number",
		"CreditCard_CVV",
		"CreditCard_Token",
		"APIKey",
		"APIPublicKey",
		"Token",
		"SingleUseToken",
		"Password",
	}

	// DefaultContainers are the nested objects searched one level deep.
	DefaultContainers = []string{"PaymentMethod", "Credentials"}

	// DefaultHeaders are masked in traced request and response headers.
	DefaultHeaders = []string{"Authorization", "X-Api-Key", "Cookie", "Set-Cookie"}
)

// Redactor holds the key sets to scrub. The zero value is not usable, use New.
type Redactor struct {
	keys       map[string]struct{}
	containers []string
	headers    []string
}

// New returns a Redactor for the default key sets plus any extra keys.
func New(extraKeys ...string) *Redactor {
	keys := make(map[string]struct{}, len(DefaultKeys)+len(extraKeys))
	for _, k := range DefaultKeys {
		keys[k] = struct{}{}
	}
	for _, k := range extraKeys {
		keys[k] = struct{}{}
	}
	return &Redactor{
		keys:       keys,
		containers: DefaultContainers,
		headers:    DefaultHeaders,
	}
}

// WithContainers returns a copy of r that also searches the named nested objects.
func (r *Redactor) WithContainers(names ...string) *Redactor {
	containers := make([]string, 0, len(r.containers)+len(names))
	containers = append(containers, r.containers...)
	containers = append(containers, names...)
	return &Redactor{keys: r.keys, containers: containers, headers: r.headers}
}

// Redact returns a copy of body with sensitive values replaced by Sentinel.
// The input is never modified. Missing keys and non-object containers are ignored.
func (r *Redactor) Redact(body map[string]any) map[string]any {
	out := r.scrub(body)
	for _, name := range r.containers {
		nested, ok := out[name].(map[string]any)
		if !ok {
			continue
		}
		out[name] = r.scrub(nested)
	}
	return out
}

// RedactJSON redacts a JSON object document. Anything else is returned unchanged.
func (r *Redactor) RedactJSON(data []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		return data
	}
	out, err := json.Marshal(r.Redact(body))
	if err != nil {
		return data
	}
	return out
}

// Seal redacts body and wraps it so it can be handed to a logging sink.
func (r *Redactor) Seal(body map[string]any) Body {
	return Body{fields: r.Redact(body)}
}

// RedactHeaders returns a copy of h with credential-bearing headers masked.
func (r *Redactor) RedactHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for _, name := range r.headers {
		if out.Get(name) != "" {
			out.Set(name, Sentinel)
		}
	}
	return out
}

func (r *Redactor) scrub(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if _, sensitive := r.keys[k]; sensitive {
			out[k] = Sentinel
			continue
		}
		out[k] = v
	}
	return out
}

/* Body is a request body that has already been through a Redactor
 * It can only be built by Seal, so a tracer that accepts Body cannot be
 * handed an unredacted payload
 */
type Body struct {
	fields map[string]any
}

// Map returns a copy of the redacted fields.
func (b Body) Map() map[string]any {
	out := make(map[string]any, len(b.fields))
	for k, v := range b.fields {
		out[k] = v
	}
	return out
}

// IsZero reports whether the body was never sealed.
func (b Body) IsZero() bool {
	return b.fields == nil
}
