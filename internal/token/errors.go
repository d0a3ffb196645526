package token

import "errors"

// Common delegation token errors
var (
	// ErrTokenInvalid indicates the token is malformed or its signature
	// does not match. Verification fails closed: any parse error maps here.
	ErrTokenInvalid = errors.New("invalid delegation token")

	// ErrTokenExpired indicates the token's TTL has elapsed. Expiry is the
	// only invalidation mechanism; there is no revocation list.
	ErrTokenExpired = errors.New("delegation token has expired")
)
