package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/pekarna/internal/db"
)

func TestRevokeAndCheckToken(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, database, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected token not to be revoked")
	}

	for i := 0; i < 2; i++ {
		if err := RevokeToken(ctx, database, "jti-1", time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("RevokeToken #%d: %v", i+1, err)
		}
	}

	revoked, err = IsTokenRevoked(ctx, database, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if !revoked {
		t.Error("expected token to be revoked")
	}

	revoked, _ = IsTokenRevoked(ctx, database, "jti-2")
	if revoked {
		t.Error("expected different token not to be revoked")
	}
}

func TestPruneRevokedTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	RevokeToken(ctx, database, "old", now.Add(-time.Hour))
	RevokeToken(ctx, database, "fresh", now.Add(time.Hour))

	n, err := PruneRevokedTokens(ctx, database, now)
	if err != nil {
		t.Fatalf("PruneRevokedTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}

	if revoked, _ := IsTokenRevoked(ctx, database, "fresh"); !revoked {
		t.Error("unexpired revocation must be kept")
	}
}
