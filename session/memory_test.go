package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func makeSession(id, refreshJTI, family string) *Session {
	now := time.Now()
	return &Session{
		ID:              id,
		PrincipalID:     "principal-1",
		TenantID:        "t1",
		OrganizationID:  "org1",
		Family:          family,
		AccessJTI:       "access-" + id,
		RefreshJTI:      refreshJTI,
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Hour),
		AccessExpiresAt: now.Add(time.Minute),
	}
}

func TestMemoryStoreSaveAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := makeSession("sid-1", "rjti-1", "fam-1")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sid-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RefreshJTI != "rjti-1" {
		t.Fatalf("unexpected session: %+v", got)
	}

	got, err = store.GetByRefreshJTI(ctx, "rjti-1")
	if err != nil {
		t.Fatalf("GetByRefreshJTI failed: %v", err)
	}
	if got.ID != "sid-1" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Returned sessions are copies; mutating them must not leak back.
	got.PrincipalID = "tampered"
	fresh, _ := store.GetByID(ctx, "sid-1")
	if fresh.PrincipalID != "principal-1" {
		t.Fatal("store must return defensive copies")
	}
}

func TestMemoryStoreRotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, makeSession("sid-1", "rjti-1", "fam-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	now := time.Now()
	rot := Rotation{
		AccessJTI:       "access-2",
		RefreshJTI:      "rjti-2",
		ExpiresAt:       now.Add(2 * time.Hour),
		AccessExpiresAt: now.Add(time.Minute),
	}

	rotated, err := store.Rotate(ctx, "rjti-1", rot)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated.RefreshJTI != "rjti-2" || rotated.AccessJTI != "access-2" {
		t.Fatalf("rotation did not apply: %+v", rotated)
	}

	// Replaying the old jti must fail and the new one must resolve.
	if _, err := store.Rotate(ctx, "rjti-1", rot); !errors.Is(err, ErrRotateConflict) {
		t.Fatalf("expected ErrRotateConflict, got %v", err)
	}
	if _, err := store.GetByRefreshJTI(ctx, "rjti-2"); err != nil {
		t.Fatalf("new jti must resolve: %v", err)
	}
	if _, err := store.GetByRefreshJTI(ctx, "rjti-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old jti must not resolve, got %v", err)
	}
}

func TestMemoryStoreRotateRefusesRevokedAndExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	revoked := makeSession("sid-1", "rjti-1", "fam-1")
	if err := store.Save(ctx, revoked); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.MarkRevoked(ctx, "sid-1", ReasonLogout, time.Now()); err != nil {
		t.Fatalf("MarkRevoked failed: %v", err)
	}
	if _, err := store.Rotate(ctx, "rjti-1", Rotation{RefreshJTI: "rjti-2"}); !errors.Is(err, ErrRotateConflict) {
		t.Fatalf("expected ErrRotateConflict for revoked session, got %v", err)
	}

	expired := makeSession("sid-2", "rjti-3", "fam-2")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Save(ctx, expired); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Rotate(ctx, "rjti-3", Rotation{RefreshJTI: "rjti-4"}); !errors.Is(err, ErrRotateConflict) {
		t.Fatalf("expected ErrRotateConflict for expired session, got %v", err)
	}
}

func TestMemoryStoreRotateConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, makeSession("sid-1", "rjti-1", "fam-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	const workers = 16
	now := time.Now()
	start := make(chan struct{})
	results := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			<-start
			_, err := store.Rotate(ctx, "rjti-1", Rotation{
				AccessJTI:       "access-w",
				RefreshJTI:      "rjti-w",
				ExpiresAt:       now.Add(time.Hour),
				AccessExpiresAt: now.Add(time.Minute),
			})
			results <- err
		}(i)
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrRotateConflict):
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}

func TestMemoryStoreMarkRevokedFirstReasonWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, makeSession("sid-1", "rjti-1", "fam-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first := time.Now()
	if err := store.MarkRevoked(ctx, "sid-1", ReasonRefreshReuse, first); err != nil {
		t.Fatalf("MarkRevoked failed: %v", err)
	}
	if err := store.MarkRevoked(ctx, "sid-1", ReasonLogout, first.Add(time.Minute)); err != nil {
		t.Fatalf("second MarkRevoked failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sid-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RevokedReason != ReasonRefreshReuse {
		t.Fatalf("first reason must win, got %q", got.RevokedReason)
	}
	if !got.RevokedAt.Equal(first) {
		t.Fatalf("first timestamp must win, got %v", got.RevokedAt)
	}
}

func TestMemoryStoreFindByFamily(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, s := range []*Session{
		makeSession("sid-1", "rjti-1", "fam-1"),
		makeSession("sid-2", "rjti-2", "fam-1"),
		makeSession("sid-3", "rjti-3", "fam-2"),
	} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := store.FindByFamily(ctx, "fam-1")
	if err != nil {
		t.Fatalf("FindByFamily failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions in fam-1, got %d", len(got))
	}
}
