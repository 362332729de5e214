package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapHash(t *testing.T, token string) string {
	t.Helper()
	encoded, err := hashWith(token, params{memory: 1024, timeCost: 1, threads: 1})
	require.NoError(t, err)
	return encoded
}

func TestHashFormat(t *testing.T) {
	encoded, err := Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))
	assert.True(t, Verify("s3cret", encoded))
}

func TestVerify(t *testing.T) {
	encoded := cheapHash(t, "token-a")

	assert.True(t, Verify("token-a", encoded))
	assert.True(t, Verify("token-a", "  "+encoded+"\n"))
	assert.False(t, Verify("token-b", encoded))
}

func TestVerifyRejectsMalformed(t *testing.T) {
	encoded := cheapHash(t, "token-a")
	parts := strings.Split(encoded, "$")

	cases := map[string]string{
		"empty":         "",
		"wrong algo":    strings.Replace(encoded, "argon2id", "argon2i", 1),
		"wrong version": strings.Replace(encoded, "v=19", "v=16", 1),
		"bad params":    strings.Join([]string{"", parts[1], parts[2], "m=1024,t=1", parts[4], parts[5]}, "$"),
		"zero threads":  strings.Join([]string{"", parts[1], parts[2], "m=1024,t=1,p=0", parts[4], parts[5]}, "$"),
		"bad salt":      strings.Join([]string{"", parts[1], parts[2], parts[3], "!!", parts[5]}, "$"),
		"empty hash":    strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], ""}, "$"),
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, Verify("token-a", value))
		})
	}
}
