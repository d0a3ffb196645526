package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 bytes

func newTestSigner(t *testing.T, ttl time.Duration) (*hmacSigner, *time.Time) {
	t.Helper()

	s, err := NewSigner(testSecret, ttl)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	signer := s.(*hmacSigner)
	now := time.Now()
	signer.timeFunc = func() time.Time { return now }
	return signer, &now
}

func TestNewSignerValidation(t *testing.T) {
	if _, err := NewSigner("short", time.Hour); err == nil {
		t.Error("Expected error for short secret")
	}

	if _, err := NewSigner(testSecret, 0); err == nil {
		t.Error("Expected error for non-positive TTL")
	}
}

func TestIssueAndVerify(t *testing.T) {
	signer, _ := newTestSigner(t, time.Hour)
	ctx := context.Background()

	tok, err := signer.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if strings.Count(tok, ".") != 2 {
		t.Errorf("Expected compact three-field token, got %q", tok)
	}

	taskID, err := signer.Verify(ctx, tok)
	if err != nil {
		t.Fatalf("Expected token to verify, got %v", err)
	}

	if taskID != 42 {
		t.Errorf("Expected task ID 42, got %d", taskID)
	}
}

func TestVerifyExpiry(t *testing.T) {
	const ttl = time.Hour
	signer, now := newTestSigner(t, ttl)
	ctx := context.Background()

	tok, err := signer.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	issued := *now

	// Just inside the TTL the token still verifies.
	signer.timeFunc = func() time.Time { return issued.Add(ttl - time.Second) }
	if taskID, err := signer.Verify(ctx, tok); err != nil || taskID != 7 {
		t.Errorf("Expected task ID 7 before expiry, got %d, %v", taskID, err)
	}

	// Just past the TTL it must fail with ErrTokenExpired.
	signer.timeFunc = func() time.Time { return issued.Add(ttl + time.Second) }
	if _, err := signer.Verify(ctx, tok); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected error %v, got %v", ErrTokenExpired, err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	signer, _ := newTestSigner(t, time.Hour)
	ctx := context.Background()

	tok, err := signer.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Flip one byte of the signature segment.
	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := signer.Verify(ctx, tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected error %v, got %v", ErrTokenInvalid, err)
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	signer, _ := newTestSigner(t, time.Hour)
	ctx := context.Background()

	for _, input := range []string{"", "not-a-token", "a.b", "a.b.c.d", "a.b.c"} {
		if _, err := signer.Verify(ctx, input); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q): expected error %v, got %v", input, ErrTokenInvalid, err)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	signer, _ := newTestSigner(t, time.Hour)
	ctx := context.Background()

	tok, err := signer.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	other, err := NewSigner("ffffffffffffffffffffffffffffffff", time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := other.Verify(ctx, tok); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected error %v, got %v", ErrTokenInvalid, err)
	}
}

func TestIssueRejectsInvalidTaskID(t *testing.T) {
	signer, _ := newTestSigner(t, time.Hour)

	if _, err := signer.Issue(context.Background(), 0); err == nil {
		t.Error("Expected error for non-positive task ID")
	}
}
