package service

import "errors"

var (
	// ErrInvalidSession covers sessions that never existed, expired, or
	// were already consumed. Callers cannot tell these apart.
	ErrInvalidSession = errors.New("invalid or expired OTP session")

	// ErrInvalidCode is returned on a code or phone mismatch. The session
	// stays valid for further attempts until its TTL runs out.
	ErrInvalidCode = errors.New("invalid OTP")

	ErrUserNotFound = errors.New("user not found")

	// ErrNoAccount is the recovery-specific not-found: recovery never
	// provisions a user the way login does.
	ErrNoAccount = errors.New("no account found with this phone number")

	// ErrForbidden is returned when the authenticated user does not match
	// the user recorded in a deletion session.
	ErrForbidden = errors.New("deletion session belongs to another user")

	ErrBlobStoreUnavailable = errors.New("avatar storage is not configured")
)
