package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))
	assert.True(t, Verify("s3cret-pass", encoded))
	assert.False(t, Verify("wrong", encoded))

	other, err := Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other, "salt must differ")
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsLegacy(string(legacy)))
	assert.True(t, Verify("old-password", string(legacy)))
	assert.False(t, Verify("nope", string(legacy)))
}

func TestVerifyMalformed(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$argon2id$v=19$m=x,t=1,p=1$a$b", "$argon2i$v=19$m=1,t=1,p=1$a$b"} {
		assert.False(t, Verify("x", encoded), encoded)
	}
}
