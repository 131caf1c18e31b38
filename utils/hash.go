package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"accessgate-backend/apperrors"
)

// Argon2id parameters. Verification reads the parameters back out of the
// encoded string, so these only control newly created hashes.
const (
	argonMemory      = 64 * 1024 // KiB
	argonIterations  = 3
	argonParallelism = 4
	argonSaltLen     = 16
	argonKeyLen      = 32
)

// HashSecret derives an argon2id hash of secret and encodes it as a
// self-describing PHC string:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt b64>$<key b64>
//
// A fresh random salt is generated per call. Passwords and API keys go
// through the same primitive with the same parameters.
func HashSecret(secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", apperrors.New(apperrors.KindValidation, "secret must not be empty")
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", apperrors.Wrap(err, apperrors.KindInternal, "salt generation failed")
	}

	key := argon2.IDKey([]byte(secret), salt, argonIterations, argonMemory, argonParallelism, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifySecret recomputes the derived key with the salt and parameters
// stored in encoded and compares in constant time. Any parse failure is
// just false; verification sits on the security-critical path and must
// not leak information via error type.
func VerifySecret(secret, encoded string) bool {
	if secret == "" {
		return false
	}
	params, salt, key, ok := parseEncodedHash(encoded)
	if !ok {
		return false
	}

	computed := argon2.IDKey([]byte(secret), salt, params.iterations, params.memory, params.parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

type argonParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func parseEncodedHash(encoded string) (argonParams, []byte, []byte, bool) {
	var p argonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, false
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, false
	}
	if p.memory == 0 || p.iterations == 0 || p.parallelism == 0 {
		return p, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, false
	}

	return p, salt, key, true
}
