// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Identity is the permanent, opaque handle of a registered account.
// The zero value means "no identity".
type Identity = ulid.ULID

// NewIdentity mints a fresh identity: a millisecond timestamp plus 80 bits
// read from crypto/rand.
func NewIdentity() (Identity, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return Identity{}, oops.Code("AUTH_IDENTITY_FAILED").
			With("operation", "generate identity").
			Wrap(err)
	}
	return id, nil
}

// ParseIdentity parses the string form of an Identity.
func ParseIdentity(s string) (Identity, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return Identity{}, oops.Code("AUTH_INVALID_IDENTITY").
			With("identity", s).
			Wrap(err)
	}
	return id, nil
}

// IsZeroIdentity reports whether id is the zero value.
func IsZeroIdentity(id Identity) bool {
	return id.Compare(ulid.ULID{}) == 0
}
