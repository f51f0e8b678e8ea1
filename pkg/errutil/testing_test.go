// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("MY_CODE").Errorf("test error")
	// Should not fail
	errutil.AssertErrorCode(t, err, "MY_CODE")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("user_id", "123").Errorf("test error")
	// Should not fail
	errutil.AssertErrorContext(t, err, "user_id", "123")
}

func TestAssertCodedSentinel_Matching(t *testing.T) {
	sentinel := errors.New("unknown session token")
	err := oops.Code("SESSION_UNKNOWN_TOKEN").Wrap(sentinel)
	// Should not fail
	errutil.AssertCodedSentinel(t, err, "SESSION_UNKNOWN_TOKEN", sentinel)
}
