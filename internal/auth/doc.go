// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the credential, session and orchestration layers of
// the holoauth service.
//
// # Domain Types
//
// Domain types (Credential, Session) should be created using their
// constructors:
//   - NewCredential - creates a Credential with a fresh identity and validated fields
//   - NewSession - creates a Session bound to an identity and token hash
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Stores
//
// CredentialStore and SessionStore are the capabilities the orchestrator
// depends on. Credentials and Sessions implement them on top of a
// CredentialRepository and SessionRepository, so a backend only has to
// provide storage; hashing, token minting and expiry live here.
//
// # Orchestrator
//
// Orchestrator implements SignUp, SignIn, SignOut and ValidateSession. Each
// call returns a caller-safe result (Success or Failure with empty fields)
// together with the typed error that caused a failure. KindOf classifies that
// error for logging, metrics and the transport layer.
package auth
