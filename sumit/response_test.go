package sumit_test

import (
	"testing"

	"github.com/marcelsud/sumit-gateway/sumit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		family sumit.Family
		valid  bool
		msg    string
	}{
		{"numeric success", `{"Status":0}`, sumit.FamilyNumeric, true, ""},
		{"numeric failure", `{"Status":2,"UserErrorMessage":"Nope"}`, sumit.FamilyNumeric, false, "Nope"},
		{"string success", `{"Status":"Success"}`, sumit.FamilyString, true, ""},
		{"string failure", `{"Status":"Error","UserErrorMessage":"Bad card"}`, sumit.FamilyString, false, "Bad card"},
		{"string family rejects numeric zero", `{"Status":0}`, sumit.FamilyString, false, "gateway returned status 0"},
		{"numeric family rejects Success", `{"Status":"Success"}`, sumit.FamilyNumeric, false, "gateway returned status Success"},
		{"either accepts numeric", `{"Status":0}`, sumit.FamilyEither, true, ""},
		{"either accepts string", `{"Status":"Success"}`, sumit.FamilyEither, true, ""},
		{"technical details as fallback", `{"Status":1,"TechnicalErrorDetails":"trace"}`, sumit.FamilyEither, false, "trace"},
		{"missing status", `{}`, sumit.FamilyEither, false, "gateway returned status "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := sumit.ParseResponse([]byte(tt.body), tt.family)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, resp.IsValid())
			assert.Equal(t, tt.msg, resp.ErrorMessage())
		})
	}

	t.Run("error - not JSON", func(t *testing.T) {
		_, err := sumit.ParseResponse([]byte(`nope`), sumit.FamilyEither)
		assert.Error(t, err)
	})
}

func TestResponse_Data(t *testing.T) {
	resp, err := sumit.ParseResponse([]byte(`{"Status":0,"Data":{"ID":3}}`), sumit.FamilyEither)
	require.NoError(t, err)
	require.True(t, resp.HasData())

	var out struct{ ID int }
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, 3, out.ID)

	empty, err := sumit.ParseResponse([]byte(`{"Status":0,"Data":null}`), sumit.FamilyEither)
	require.NoError(t, err)
	assert.False(t, empty.HasData())
	assert.ErrorIs(t, empty.Decode(&out), sumit.ErrNoData)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, sumit.DefaultPolicy("/x/").Validate())
	for _, p := range sumit.DefaultPolicies() {
		assert.NoError(t, p.Validate(), p.Path)
	}

	bad := sumit.DefaultPolicy("/x/")
	bad.RetryOnRejection = true
	assert.Error(t, bad.Validate())

	assert.Error(t, sumit.Policy{Family: sumit.FamilyEither, Key: sumit.PrivateKey}.Validate())
}

func TestMatchLocale(t *testing.T) {
	assert.Equal(t, "en", sumit.MatchLocale("en-US,en;q=0.9", "he"))
	assert.Equal(t, "he", sumit.MatchLocale("he-IL", "en"))
	assert.Equal(t, "he", sumit.MatchLocale("", "he"))
	assert.Equal(t, "he", sumit.MatchLocale("!!!", "he"))
}
