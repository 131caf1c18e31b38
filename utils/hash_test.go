package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessgate-backend/apperrors"
)

func TestHashSecret_RoundTrip(t *testing.T) {
	secrets := []string{"hunter2!", "pässwörd with ünicode", "x", strings.Repeat("long", 100)}
	for _, secret := range secrets {
		encoded, err := HashSecret(secret)
		require.NoError(t, err)
		assert.True(t, VerifySecret(secret, encoded), "secret %q should verify against its own hash", secret)
		assert.False(t, VerifySecret(secret+"x", encoded))
	}
}

func TestHashSecret_UniqueSalts(t *testing.T) {
	first, err := HashSecret("same secret")
	require.NoError(t, err)
	second, err := HashSecret("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two hashes of the same secret must differ")
	assert.True(t, VerifySecret("same secret", first))
	assert.True(t, VerifySecret("same secret", second))
}

func TestHashSecret_EncodedFormat(t *testing.T) {
	encoded, err := HashSecret("format check")
	require.NoError(t, err)

	parts := strings.Split(encoded, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, "argon2id", parts[1])
	assert.Equal(t, "v=19", parts[2])
	assert.Equal(t, "m=65536,t=3,p=4", parts[3])
}

func TestHashSecret_RejectsEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := HashSecret(input)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	}
}

func TestVerifySecret_MalformedEncodingsReturnFalse(t *testing.T) {
	encoded, err := HashSecret("real secret")
	require.NoError(t, err)
	parts := strings.Split(encoded, "$")

	malformed := []string{
		"",
		"not a hash at all",
		"$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!notbase64$" + parts[5],
		"$argon2id$v=19$m=65536,t=3,p=4$" + parts[4] + "$!!!notbase64",
		"$argon2id$v=19$m=65536,t=3,p=4$" + parts[4],
	}
	for _, bad := range malformed {
		assert.False(t, VerifySecret("real secret", bad), "malformed %q must not verify", bad)
	}
}

func TestVerifySecret_EmptySecret(t *testing.T) {
	encoded, err := HashSecret("real secret")
	require.NoError(t, err)
	assert.False(t, VerifySecret("", encoded))
}

func TestGenerateAPIKey(t *testing.T) {
	first, err := GenerateAPIKey()
	require.NoError(t, err)
	second, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "agk_"))
	assert.NotEqual(t, first, second)

	// API keys go through the same hashing primitive as passwords.
	encoded, err := HashSecret(first)
	require.NoError(t, err)
	assert.True(t, VerifySecret(first, encoded))
	assert.False(t, VerifySecret(second, encoded))
}
