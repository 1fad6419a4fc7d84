// Package store abstracts the expiring key-value store that backs every
// credential in the system: OTP sessions, recovery and deletion sessions,
// access tokens, and user records.
package store

import (
	"context"
	"time"
)

// Key namespaces. Everything the service persists lives under one of these
// prefixes.
const (
	PrefixOTP       = "otp:"
	PrefixRecovery  = "recovery:"
	PrefixDeletion  = "deletion:"
	PrefixToken     = "token:"
	PrefixUser      = "user:"
	PrefixUserPhone = "user:phone:"
	PrefixUserEmail = "user:email:"
)

// KV is a key-value store with per-key expiration. A ttl of zero means the
// entry never expires. Reads after expiration behave exactly like reads of
// keys that never existed.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// CompareAndDelete removes key only if its current value equals
	// expected, reporting whether the delete happened. It is the atomic
	// primitive behind single-use session consumption: two concurrent
	// verifications of the same session cannot both win.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)

	// Keys returns all live keys beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
