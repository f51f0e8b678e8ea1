// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package grpc_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/holoauth/pkg/authv1"
)

var _ = Describe("Auth service", func() {
	var (
		h   *harness
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		h, err = startHarness(nil)
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(h.close()).To(Succeed())
	})

	signUp := func(username, password string) authv1.StatusCode {
		resp, err := h.client.SignUp(ctx, &authv1.SignUpRequest{Username: username, Password: password})
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode
	}

	signIn := func(username, password string) *authv1.SignInResponse {
		resp, err := h.client.SignIn(ctx, &authv1.SignInRequest{Username: username, Password: password})
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	validate := func(token string) *authv1.ValidateSessionResponse {
		resp, err := h.client.ValidateSession(ctx, &authv1.ValidateSessionRequest{SessionToken: token})
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("SignUp", func() {
		It("registers a username once", func() {
			Expect(signUp("alice", "correct horse")).To(Equal(authv1.StatusSuccess))
			Expect(signUp("alice", "another password")).To(Equal(authv1.StatusFailure))
		})

		It("rejects empty usernames", func() {
			Expect(signUp("", "pw")).To(Equal(authv1.StatusFailure))
		})

		It("admits exactly one of many concurrent registrations", func() {
			const workers = 12
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					resp, err := h.client.SignUp(ctx, &authv1.SignUpRequest{Username: "race", Password: "pw"})
					Expect(err).NotTo(HaveOccurred())
					if resp.StatusCode == authv1.StatusSuccess {
						mu.Lock()
						successes++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(successes).To(Equal(1))
		})
	})

	Describe("SignIn", func() {
		BeforeEach(func() {
			Expect(signUp("bob", "s3cret")).To(Equal(authv1.StatusSuccess))
		})

		It("returns a stable identity and a fresh token", func() {
			first := signIn("bob", "s3cret")
			Expect(first.StatusCode).To(Equal(authv1.StatusSuccess))
			Expect(first.UserUUID).To(HaveLen(26))
			Expect(first.SessionToken).To(HaveLen(64))

			second := signIn("bob", "s3cret")
			Expect(second.UserUUID).To(Equal(first.UserUUID))
			Expect(second.SessionToken).NotTo(Equal(first.SessionToken))
		})

		It("carries empty strings on failure", func() {
			for _, resp := range []*authv1.SignInResponse{
				signIn("bob", "wrong"),
				signIn("nobody", "s3cret"),
			} {
				Expect(resp).To(Equal(&authv1.SignInResponse{StatusCode: authv1.StatusFailure}))
			}
		})

		It("invalidates the previous session of the identity", func() {
			first := signIn("bob", "s3cret")
			second := signIn("bob", "s3cret")

			Expect(validate(first.SessionToken).StatusCode).To(Equal(authv1.StatusFailure))
			Expect(validate(second.SessionToken)).To(Equal(&authv1.ValidateSessionResponse{
				StatusCode: authv1.StatusSuccess,
				UserUUID:   second.UserUUID,
			}))
		})
	})

	Describe("SignOut", func() {
		var token string

		BeforeEach(func() {
			Expect(signUp("carol", "pw")).To(Equal(authv1.StatusSuccess))
			token = signIn("carol", "pw").SessionToken
		})

		It("invalidates the token once", func() {
			resp, err := h.client.SignOut(ctx, &authv1.SignOutRequest{SessionToken: token})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(authv1.StatusSuccess))
			Expect(validate(token).StatusCode).To(Equal(authv1.StatusFailure))

			resp, err = h.client.SignOut(ctx, &authv1.SignOutRequest{SessionToken: token})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(authv1.StatusFailure))
		})

		It("leaves existing sessions alone for an unknown token", func() {
			resp, err := h.client.SignOut(ctx, &authv1.SignOutRequest{SessionToken: "not-a-token"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(authv1.StatusFailure))
			Expect(validate(token).StatusCode).To(Equal(authv1.StatusSuccess))
			Expect(h.sessions.Len()).To(Equal(1))
		})
	})

	Describe("ValidateSession", func() {
		It("fails once the session has expired", func() {
			Expect(signUp("dave", "pw")).To(Equal(authv1.StatusSuccess))
			token := signIn("dave", "pw").SessionToken
			Expect(validate(token).StatusCode).To(Equal(authv1.StatusSuccess))

			h.clock.Advance(2 * time.Hour)

			Expect(validate(token)).To(Equal(&authv1.ValidateSessionResponse{StatusCode: authv1.StatusFailure}))
			Expect(h.sessions.Len()).To(BeZero())
		})
	})
})
