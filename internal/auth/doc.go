// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package auth provides the storefront's credential store contracts, password
// hashing, account registration and login, and session authorization.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a validated user name and password hash
//   - NewSession - creates a Session snapshotting the user's principal data
//
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Services
//
//   - Service - Register, Login, StartSession
//   - Guard - Authorize, Revoke, Sweep for session-gated routes
//   - LoginLimiter - per-client login throttling
//
// Failures carry an oops code for logging and match one Kind via KindOf.
package auth
