// Package signature signs outbound webhook deliveries with the Standard
// Webhooks HMAC-SHA256 scheme and verifies them on the receiving side.
package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	SecretPrefix = "whsec_"
	Version      = "v1"

	// secrets between 192 and 512 bits
	MinSecretBytes = 24
	MaxSecretBytes = 64

	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	// DefaultTolerance is how far a timestamp may drift before Verify rejects it
	DefaultTolerance = 5 * time.Minute
)

var (
	ErrSecretFormat   = errors.New("invalid signing secret")
	ErrMessageID      = errors.New("message id must be non-empty and must not contain '.'")
	ErrMissingHeaders = errors.New("missing webhook headers")
	ErrTimestamp      = errors.New("webhook timestamp outside tolerance")
	ErrNoMatch        = errors.New("no matching signature")
)

// Secret is a decoded signing secret
type Secret struct {
	raw []byte
}

// GenerateSecret creates a random secret of size bytes
func GenerateSecret(size int) (Secret, error) {
	if size < MinSecretBytes || size > MaxSecretBytes {
		return Secret{}, fmt.Errorf("%w: size must be between %d and %d bytes", ErrSecretFormat, MinSecretBytes, MaxSecretBytes)
	}
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return Secret{}, fmt.Errorf("generating secret: %w", err)
	}
	return Secret{raw: raw}, nil
}

// ParseSecret decodes a whsec_ prefixed base64 secret
func ParseSecret(encoded string) (Secret, error) {
	b64, ok := strings.CutPrefix(encoded, SecretPrefix)
	if !ok {
		return Secret{}, fmt.Errorf("%w: must start with %s", ErrSecretFormat, SecretPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Secret{}, fmt.Errorf("%w: %w", ErrSecretFormat, err)
	}
	if len(raw) < MinSecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("%w: size must be between %d and %d bytes", ErrSecretFormat, MinSecretBytes, MaxSecretBytes)
	}
	return Secret{raw: raw}, nil
}

// String returns the whsec_ encoded form
func (s Secret) String() string {
	return SecretPrefix + base64.StdEncoding.EncodeToString(s.raw)
}

// IsZero reports whether the secret is empty
func (s Secret) IsZero() bool {
	return len(s.raw) == 0
}

// Sign returns "v1,<base64 hmac>" over "{msgID}.{unix timestamp}.{body}"
func (s Secret) Sign(msgID string, ts time.Time, body []byte) (string, error) {
	if msgID == "" || strings.Contains(msgID, ".") {
		return "", ErrMessageID
	}
	mac := hmac.New(sha256.New, s.raw)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return Version + "," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

/* Headers returns the delivery headers for one message
 * With a zero secret only webhook-id and webhook-timestamp are set
 */
func Headers(s Secret, msgID string, ts time.Time, body []byte) (http.Header, error) {
	if msgID == "" || strings.Contains(msgID, ".") {
		return nil, ErrMessageID
	}
	h := http.Header{}
	h.Set(HeaderID, msgID)
	h.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	if s.IsZero() {
		return h, nil
	}
	sig, err := s.Sign(msgID, ts, body)
	if err != nil {
		return nil, err
	}
	h.Set(HeaderSignature, sig)
	return h, nil
}

/* Verify checks a received delivery against any of the secrets
 * The signature header may carry several space separated signatures
 * during secret rotation
 */
func Verify(h http.Header, body []byte, now time.Time, tolerance time.Duration, secrets ...Secret) error {
	msgID := h.Get(HeaderID)
	rawTS := h.Get(HeaderTimestamp)
	sigs := h.Get(HeaderSignature)
	if msgID == "" || rawTS == "" || sigs == "" {
		return ErrMissingHeaders
	}
	unix, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingHeaders, err)
	}
	ts := time.Unix(unix, 0)
	if tolerance > 0 && (now.Sub(ts) > tolerance || ts.Sub(now) > tolerance) {
		return ErrTimestamp
	}

	for _, secret := range secrets {
		expected, err := secret.Sign(msgID, ts, body)
		if err != nil {
			return err
		}
		for _, got := range strings.Fields(sigs) {
			if hmac.Equal([]byte(got), []byte(expected)) {
				return nil
			}
		}
	}
	return ErrNoMatch
}
