package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

type params struct {
	memory   uint32
	timeCost uint32
	threads  uint8
}

// Hash returns the Argon2id encoding of an admin API token, suitable for
// ADMIN_TOKEN_HASHES and STAFF_TOKEN_HASHES.
func Hash(token string) (string, error) {
	return hashWith(token, params{memory: argonMemory, timeCost: argonTime, threads: argonThreads})
}

func hashWith(token string, p params) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(token), salt, p.timeCost, p.memory, p.threads, argonKeyLen)

	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", p.memory, p.timeCost, p.threads, saltB64, hashB64), nil
}

// Verify checks whether token matches the encoded Argon2id hash.
func Verify(token, encoded string) bool {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	p, ok := parseParams(parts[3])
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return false
	}

	check := argon2.IDKey([]byte(token), salt, p.timeCost, p.memory, p.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, check) == 1
}

func parseParams(raw string) (params, bool) {
	fields := strings.Split(raw, ",")
	if len(fields) != 3 {
		return params{}, false
	}

	m, ok := strings.CutPrefix(fields[0], "m=")
	if !ok {
		return params{}, false
	}
	t, ok := strings.CutPrefix(fields[1], "t=")
	if !ok {
		return params{}, false
	}
	p, ok := strings.CutPrefix(fields[2], "p=")
	if !ok {
		return params{}, false
	}

	m64, err := strconv.ParseUint(m, 10, 32)
	if err != nil {
		return params{}, false
	}
	t64, err := strconv.ParseUint(t, 10, 32)
	if err != nil || t64 == 0 {
		return params{}, false
	}
	p64, err := strconv.ParseUint(p, 10, 8)
	if err != nil || p64 == 0 {
		return params{}, false
	}

	return params{memory: uint32(m64), timeCost: uint32(t64), threads: uint8(p64)}, true
}
