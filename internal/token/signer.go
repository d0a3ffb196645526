// Package token issues and verifies expiring, tamper-proof delegation
// tokens that bind a task identity to a deadline. A token lets a manager
// hand out an out-of-band claim link; whoever redeems it before expiry is
// offered the task.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer defines operations for issuing and verifying delegation tokens.
type Signer interface {
	// Issue creates a signed token binding the given task ID to an expiry
	// of now + the configured TTL. The result is a compact URL-safe string
	// of three dot-delimited fields, the last being an HMAC-SHA256
	// signature over the rest.
	Issue(ctx context.Context, taskID int64) (string, error)

	// Verify parses and validates a token and returns the task ID it was
	// issued for. It fails closed: malformed input, a signature mismatch
	// or an unexpected signing algorithm all return ErrTokenInvalid, and
	// an elapsed TTL returns ErrTokenExpired. Signature comparison is
	// constant-time.
	Verify(ctx context.Context, tokenString string) (int64, error)
}

// delegationClaims is the claim set carried by a delegation token:
// the task identity plus the standard expiry/issued-at claims.
type delegationClaims struct {
	TaskID int64 `json:"tid"`
	jwt.RegisteredClaims
}

// hmacSigner implements Signer using HMAC-SHA256 signing.
type hmacSigner struct {
	signingKey []byte
	ttl        time.Duration
	timeFunc   func() time.Time // Injectable for testing
}

// Ensure hmacSigner implements Signer interface
var _ Signer = (*hmacSigner)(nil)

// NewSigner creates a delegation token signer with the given shared secret
// and TTL. The secret must be at least 32 bytes; compromise of the secret
// invalidates all outstanding tokens, and rotation is out of scope.
func NewSigner(secret string, ttl time.Duration) (Signer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("delegation token secret must be at least 32 characters")
	}

	if ttl <= 0 {
		return nil, fmt.Errorf("delegation token TTL must be positive")
	}

	return &hmacSigner{
		signingKey: []byte(secret),
		ttl:        ttl,
		timeFunc:   time.Now,
	}, nil
}

// Issue implements Signer.Issue.
func (s *hmacSigner) Issue(ctx context.Context, taskID int64) (string, error) {
	if taskID <= 0 {
		return "", fmt.Errorf("task ID must be positive, got %d", taskID)
	}

	now := s.timeFunc()
	claims := delegationClaims{
		TaskID: taskID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign delegation token: %w", err)
	}

	return signed, nil
}

// Verify implements Signer.Verify.
func (s *hmacSigner) Verify(ctx context.Context, tokenString string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&delegationClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method is what we expect
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithTimeFunc(s.timeFunc),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*delegationClaims)
	if !ok || !parsed.Valid {
		return 0, ErrTokenInvalid
	}

	if claims.TaskID <= 0 {
		return 0, ErrTokenInvalid
	}

	return claims.TaskID, nil
}
