// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Credential errors. Surfaced synchronously as the outcome of the attempted
// operation, never retried automatically.
var (
	// ErrInvalidShopCode indicates no shop exists for the supplied code.
	ErrInvalidShopCode = errors.New("invalid shop code")

	// ErrInvalidCredentials indicates a failed login. It deliberately does not
	// distinguish "user not found" from "wrong password" from "DEK unwrap failed".
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken indicates the username is already used within the shop.
	ErrUsernameTaken = errors.New("username taken")

	// ErrPhoneTaken indicates the phone is already used within the shop.
	ErrPhoneTaken = errors.New("phone taken")

	// ErrPermissionDenied indicates the acting role is not allowed to perform
	// the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimited indicates temporary login lock due to repeated failures.
	ErrRateLimited = errors.New("rate limited")
)

// Storage and integrity errors.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIntegrity indicates an authenticated-decryption failure: wrong key,
	// corrupted or tampered ciphertext. During bulk load it is recovered
	// per-record; during login it maps to ErrInvalidCredentials.
	ErrIntegrity = errors.New("ciphertext integrity check failed")
)

// Session errors.
var (
	// ErrKeyUnavailable indicates an operation requiring the live data key was
	// attempted without a signed-in session.
	ErrKeyUnavailable = errors.New("data key unavailable")

	// ErrShiftOpen indicates the user already has an open shift.
	ErrShiftOpen = errors.New("shift already open")

	// ErrNoOpenShift indicates an operation requires an open shift.
	ErrNoOpenShift = errors.New("no open shift")
)
