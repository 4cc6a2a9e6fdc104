package keys

import (
	"testing"
	"time"
)

func TestNewStoreRequiresMaterial(t *testing.T) {
	if _, err := NewStore(Config{Algorithm: AlgHS256}); err != ErrNoKey {
		t.Fatalf("expected ErrNoKey for empty hs256 secret, got %v", err)
	}
	if _, err := NewStore(Config{Algorithm: "es256"}); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}

func TestSignVerifyHS256(t *testing.T) {
	store, err := NewStore(Config{Algorithm: AlgHS256, Secret: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	payload := []byte("payload")
	sig, err := store.Sign(payload)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !store.Verify(payload, sig) {
		t.Fatal("expected signature to verify")
	}
	if store.Verify([]byte("tampered"), sig) {
		t.Fatal("expected tampered payload to fail verification")
	}
}

func TestSignVerifyRS256(t *testing.T) {
	store, err := NewStore(Config{Algorithm: AlgRS256, RSABits: 1024})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	payload := []byte("payload")
	sig, err := store.Sign(payload)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !store.Verify(payload, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestRotatePromotesNewKeyAndKeepsOverlap(t *testing.T) {
	store, err := NewStore(Config{
		Algorithm:     AlgHS256,
		Secret:        []byte("0123456789abcdef0123456789abcdef"),
		OverlapWindow: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	oldKid := store.CurrentKeyID()
	payload := []byte("payload")
	oldSig, err := store.Sign(payload)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	newKid, err := store.Rotate()
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if newKid == oldKid {
		t.Fatal("rotation must mint a fresh key id")
	}
	if store.CurrentKeyID() != newKid {
		t.Fatalf("expected current key %q, got %q", newKid, store.CurrentKeyID())
	}

	// Previous key stays in the verification set during overlap.
	if _, ok := store.VerificationKey(oldKid); !ok {
		t.Fatal("expected rotated-out key to keep verifying during overlap")
	}
	if !store.Verify(payload, oldSig) {
		t.Fatal("expected pre-rotation signature to keep verifying")
	}
}

func TestRetire(t *testing.T) {
	store, err := NewStore(Config{
		Algorithm: AlgHS256,
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	oldKid := store.CurrentKeyID()
	if _, err := store.Rotate(); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if store.Retire(store.CurrentKeyID()) {
		t.Fatal("retiring the current key must be refused")
	}
	if !store.Retire(oldKid) {
		t.Fatal("expected retired key to be dropped")
	}
	if _, ok := store.VerificationKey(oldKid); ok {
		t.Fatal("retired key must not resolve")
	}
	if store.Retire(oldKid) {
		t.Fatal("retiring twice must report false")
	}
}

func TestJWKSOnlyForRSA(t *testing.T) {
	hs, err := NewStore(Config{Algorithm: AlgHS256, Secret: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if doc := hs.JWKS(); len(doc.Keys) != 0 {
		t.Fatalf("hs256 must serve an empty key set, got %d keys", len(doc.Keys))
	}

	rs, err := NewStore(Config{Algorithm: AlgRS256, RSABits: 1024})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	doc := rs.JWKS()
	if len(doc.Keys) != 1 {
		t.Fatalf("expected one JWK, got %d", len(doc.Keys))
	}
	jwk := doc.Keys[0]
	if jwk.Kty != "RSA" || jwk.Alg != "RS256" || jwk.Kid != rs.CurrentKeyID() {
		t.Fatalf("unexpected JWK: %+v", jwk)
	}
	if jwk.N == "" || jwk.E == "" {
		t.Fatal("expected modulus and exponent to be populated")
	}

	if _, err := rs.Rotate(); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	doc = rs.JWKS()
	if len(doc.Keys) != 2 {
		t.Fatalf("expected both keys after rotation, got %d", len(doc.Keys))
	}
	if doc.Keys[0].Kid != rs.CurrentKeyID() {
		t.Fatal("expected the current key to be listed first")
	}
}
