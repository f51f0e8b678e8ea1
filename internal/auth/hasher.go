// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// Upper bounds for cost parameters read back from a stored hash. A hasher
// configured above them raises the bound to its own parameters.
const (
	maxVerifyMemory     = 1 << 20 // KiB (1 GiB)
	maxVerifyIterations = 16
	maxVerifyKeyLen     = 1024
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces an argon2id hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash was produced with other
	// parameters than the hasher currently uses.
	NeedsUpgrade(hash string) bool
}

// Argon2Params are the cost parameters of an Argon2idHasher.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the OWASP-recommended parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      argon2Memory,
		Iterations:  argon2Time,
		Parallelism: argon2Threads,
		SaltLength:  argon2SaltLen,
		KeyLength:   argon2KeyLen,
	}
}

// Validate checks that the parameters can produce a usable hash.
func (p Argon2Params) Validate() error {
	if p.Iterations == 0 {
		return oops.Code("AUTH_INVALID_PARAMS").Errorf("argon2 iterations must be positive")
	}
	if p.Parallelism == 0 {
		return oops.Code("AUTH_INVALID_PARAMS").Errorf("argon2 parallelism must be positive")
	}
	if p.Memory < 8*uint32(p.Parallelism) {
		return oops.Code("AUTH_INVALID_PARAMS").
			With("memory_kib", p.Memory).
			With("parallelism", p.Parallelism).
			Errorf("argon2 memory must be at least 8 KiB per lane")
	}
	if p.SaltLength < 8 {
		return oops.Code("AUTH_INVALID_PARAMS").Errorf("argon2 salt must be at least 8 bytes")
	}
	if p.KeyLength < 16 {
		return oops.Code("AUTH_INVALID_PARAMS").Errorf("argon2 key must be at least 16 bytes")
	}
	return nil
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates an Argon2idHasher with DefaultArgon2Params.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Params returns the parameters new hashes are produced with.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return h.encode(salt, hash), nil
}

func (h *Argon2idHasher) encode(salt, hash []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$%s$%s$%s",
		argon2.Version,
		h.paramString(),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func (h *Argon2idHasher) paramString() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", h.params.Memory, h.params.Iterations, h.params.Parallelism)
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// threads must fit in uint8 to prevent silent truncation
	if threads == 0 || threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}

	if memory > max(maxVerifyMemory, h.params.Memory) {
		return false, oops.Code("AUTH_INVALID_HASH").
			With("memory_kib", memory).
			Errorf("memory cost %d KiB exceeds the verification limit", memory)
	}
	if time == 0 || time > max(maxVerifyIterations, h.params.Iterations) {
		return false, oops.Code("AUTH_INVALID_HASH").
			With("iterations", time).
			Errorf("iterations value %d out of range", time)
	}

	keyLen := len(expectedHash)
	if keyLen <= 0 || keyLen > max(maxVerifyKeyLen, int(h.params.KeyLength)) {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computedHash := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// NeedsUpgrade returns true if the hash is not argon2id or was produced with
// different cost parameters.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return true
	}
	return parts[3] != h.paramString()
}
