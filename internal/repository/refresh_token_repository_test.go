package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestOpaqueTokenLength(t *testing.T) {
	for _, length := range []int{16, 63, 64, 128} {
		token, err := newOpaqueToken(length)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(token) != length {
			t.Fatalf("expected %d chars, got %d", length, len(token))
		}
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	if hashToken("abc") != hashToken("abc") {
		t.Fatal("hash must be deterministic")
	}
	if hashToken("abc") == hashToken("abd") {
		t.Fatal("distinct tokens must not collide trivially")
	}
	if len(hashToken("abc")) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(hashToken("abc")))
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	repo := NewMemoryRefreshTokenRepository(64, 7)
	ctx := context.Background()
	userID := uuid.New()

	token, expiresAt, err := repo.Generate(ctx, userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if until := time.Until(expiresAt); until < 6*24*time.Hour || until > 8*24*time.Hour {
		t.Fatalf("expiry outside the 7-day window: %v", expiresAt)
	}

	record, err := repo.FindValid(ctx, token)
	if err != nil || record == nil {
		t.Fatalf("fresh token must be valid, got (%v, %v)", record, err)
	}
	if record.UserID != userID {
		t.Fatalf("owner mismatch: %v", record.UserID)
	}

	rows, err := repo.Revoke(ctx, token)
	if err != nil || rows != 1 {
		t.Fatalf("first revoke: (%d, %v)", rows, err)
	}

	// Idempotent: second revoke is a silent no-op reporting zero rows.
	rows, err = repo.Revoke(ctx, token)
	if err != nil || rows != 0 {
		t.Fatalf("second revoke: (%d, %v)", rows, err)
	}

	if record, _ := repo.FindValid(ctx, token); record != nil {
		t.Fatal("revoked token must not resolve")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	repo := NewMemoryRefreshTokenRepository(64, 7)
	ctx := context.Background()

	token, _, err := repo.Generate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	repo.Now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	if record, _ := repo.FindValid(ctx, token); record != nil {
		t.Fatal("expired token must not resolve")
	}
}

func TestMemoryStoreRevokeByUser(t *testing.T) {
	repo := NewMemoryRefreshTokenRepository(64, 7)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	mine1, _, _ := repo.Generate(ctx, owner)
	mine2, _, _ := repo.Generate(ctx, owner)
	theirs, _, _ := repo.Generate(ctx, other)

	if err := repo.RevokeByUser(ctx, owner); err != nil {
		t.Fatalf("revoke by user: %v", err)
	}

	for _, token := range []string{mine1, mine2} {
		if record, _ := repo.FindValid(ctx, token); record != nil {
			t.Fatal("owner's token must be revoked")
		}
	}
	if record, _ := repo.FindValid(ctx, theirs); record == nil {
		t.Fatal("other user's token must survive")
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	repo := NewMemoryRefreshTokenRepository(64, 7)
	ctx := context.Background()

	if record, err := repo.FindValid(ctx, "unknown"); err != nil || record != nil {
		t.Fatalf("unknown token: (%v, %v)", record, err)
	}
	if rows, err := repo.Revoke(ctx, "unknown"); err != nil || rows != 0 {
		t.Fatalf("revoking unknown token: (%d, %v)", rows, err)
	}
}
