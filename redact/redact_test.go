package redact_test

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/marcelsud/sumit-gateway/redact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRedact(t *testing.T) {
	r := redact.New()

	t.Run("top level keys", func(t *testing.T) {
		body := map[string]any{
			"CardNumber": "4580000000000000",
			"CVV":        "123",
			"Amount":     10.5,
		}

		got := r.Redact(body)

		assert.Equal(t, redact.Sentinel, got["CardNumber"])
		assert.Equal(t, redact.Sentinel, got["CVV"])
		assert.Equal(t, 10.5, got["Amount"])
		assert.Equal(t, "4580000000000000", body["CardNumber"], "input must not be mutated")
	})

	t.Run("credentials container", func(t *testing.T) {
		body := map[string]any{
			"Credentials": map[string]any{
				"CompanyID": 1234,
				"APIKey":    "secret",
			},
		}

		got := r.Redact(body)

		creds := got["Credentials"].(map[string]any)
		assert.Equal(t, redact.Sentinel, creds["APIKey"])
		assert.Equal(t, 1234, creds["CompanyID"])
		assert.Equal(t, "secret", body["Credentials"].(map[string]any)["APIKey"])
	})

	t.Run("payment method container", func(t *testing.T) {
		body := map[string]any{
			"PaymentMethod": map[string]any{
				"CreditCard_Token": "tok",
				"Type":             1,
			},
		}

		got := r.Redact(body)

		pm := got["PaymentMethod"].(map[string]any)
		assert.Equal(t, redact.Sentinel, pm["CreditCard_Token"])
		assert.Equal(t, 1, pm["Type"])
	})

	t.Run("deeper levels are left alone", func(t *testing.T) {
		body := map[string]any{
			"Customer": map[string]any{"CVV": "999"},
		}

		got := r.Redact(body)

		assert.Equal(t, "999", got["Customer"].(map[string]any)["CVV"])
	})

	t.Run("nil and non-object containers", func(t *testing.T) {
		assert.Empty(t, r.Redact(nil))

		got := r.Redact(map[string]any{"Credentials": "not-an-object"})
		assert.Equal(t, "not-an-object", got["Credentials"])
	})

	t.Run("extra keys", func(t *testing.T) {
		got := redact.New("CitizenID").Redact(map[string]any{"CitizenID": "0123"})
		assert.Equal(t, redact.Sentinel, got["CitizenID"])
	})
}

func TestRedact_Properties(t *testing.T) {
	r := redact.New()
	keys := append([]string{"Amount", "Description", "CompanyID", "Credentials", "PaymentMethod"}, redact.DefaultKeys...)

	gen := rapid.Custom(func(t *rapid.T) map[string]any {
		body := make(map[string]any)
		n := rapid.IntRange(0, 8).Draw(t, "n")
		for i := 0; i < n; i++ {
			k := rapid.SampledFrom(keys).Draw(t, "key")
			if k == "Credentials" || k == "PaymentMethod" {
				nested := map[string]any{
					"CompanyID": rapid.Int64().Draw(t, "company"),
					rapid.SampledFrom(keys).Draw(t, "nested"): rapid.String().Draw(t, "nestedValue"),
				}
				body[k] = nested
				continue
			}
			body[k] = rapid.String().Draw(t, "value")
		}
		return body
	})

	rapid.Check(t, func(t *rapid.T) {
		body := gen.Draw(t, "body")

		once := r.Redact(body)
		twice := r.Redact(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("redaction is not idempotent: %v != %v", once, twice)
		}
		for k := range body {
			if _, ok := once[k]; !ok {
				t.Fatalf("key %q was removed", k)
			}
		}
		if creds, ok := once["Credentials"].(map[string]any); ok {
			if creds["CompanyID"] != body["Credentials"].(map[string]any)["CompanyID"] {
				t.Fatalf("CompanyID must survive redaction")
			}
		}
	})
}

func TestSeal(t *testing.T) {
	r := redact.New()

	sealed := r.Seal(map[string]any{"APIKey": "k", "Amount": 1})
	m := sealed.Map()
	m["Amount"] = 2

	require.False(t, sealed.IsZero())
	assert.Equal(t, redact.Sentinel, sealed.Map()["APIKey"])
	assert.Equal(t, 1, sealed.Map()["Amount"])
	assert.True(t, redact.Body{}.IsZero())
}

func TestRedactHeaders(t *testing.T) {
	r := redact.New()
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("Content-Type", "application/json")

	got := r.RedactHeaders(h)

	assert.Equal(t, redact.Sentinel, got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "Bearer abc", h.Get("Authorization"))
	assert.NotNil(t, r.RedactHeaders(nil))
}

func TestWithContainers(t *testing.T) {
	base := redact.New()
	r := base.WithContainers("data")
	body := map[string]any{
		"type": "payment.completed",
		"data": map[string]any{"CardNumber": "4580", "Amount": 10},
	}

	got := r.Redact(body)
	assert.Equal(t, redact.Sentinel, got["data"].(map[string]any)["CardNumber"])
	assert.Equal(t, 10, got["data"].(map[string]any)["Amount"])

	untouched := base.Redact(body)
	assert.Equal(t, "4580", untouched["data"].(map[string]any)["CardNumber"])
}

func TestRedactJSON(t *testing.T) {
	r := redact.New().WithContainers("Data")

	t.Run("success - object document", func(t *testing.T) {
		got := r.RedactJSON([]byte(`{"Status":0,"Data":{"SingleUseToken":"tok-1","DocumentID":90071992547409931}}`))
		assert.JSONEq(t, `{"Status":0,"Data":{"SingleUseToken":"[REDACTED]","DocumentID":90071992547409931}}`, string(got))
	})

	t.Run("success - non object passes through", func(t *testing.T) {
		for _, in := range []string{`not json`, `[1,2]`, `null`, ``} {
			assert.Equal(t, in, string(r.RedactJSON([]byte(in))))
		}
	})
}
