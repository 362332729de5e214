package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sk_live_****WXYZ", MaskSecret("sk_live_abcdefWXYZ"))
	assert.Equal(t, "whsec_****", MaskSecret("whsec_abc"))
	assert.Equal(t, "****9876", MaskSecret("secret9876"))
	assert.Equal(t, "", MaskSecret("  "))
}

func TestMaskFields(t *testing.T) {
	key := "sk_test_1234567890"
	out := MaskFields(map[string]any{
		"private_key": &key,
		"currency":    "eur",
		"secret":      42,
		"":            "dropped",
	}, "private_key", "secret")

	assert.Equal(t, "sk_test_****7890", out["private_key"])
	assert.Equal(t, "eur", out["currency"])
	assert.Equal(t, "****", out["secret"])
	assert.NotContains(t, out, "")

	assert.Nil(t, MaskFields(nil))
}
