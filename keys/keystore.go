package keys

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// Algorithm selects the signing algorithm for the key store.
type Algorithm string

const (
	// AlgHS256 signs with HMAC-SHA256 over a shared secret.
	AlgHS256 Algorithm = "hs256"
	// AlgRS256 signs with RSASSA-PKCS1-v1_5 over SHA-256.
	AlgRS256 Algorithm = "rs256"
)

var (
	// ErrNoKey is returned when the store holds no usable signing key.
	// Construction fails with this error; callers must treat it as fatal.
	ErrNoKey = errors.New("keystore: no signing key material")
	// ErrUnknownKey is returned when a key id is not held by the store.
	ErrUnknownKey = errors.New("keystore: unknown key id")
)

const defaultRSABits = 2048

// Config controls key material and rotation behavior.
type Config struct {
	Algorithm Algorithm
	// Secret is the HMAC key for AlgHS256. Required for that algorithm.
	Secret []byte
	// RSAPrivateKey seeds the store for AlgRS256. Generated when nil.
	RSAPrivateKey *rsa.PrivateKey
	RSABits       int
	// OverlapWindow keeps a rotated-out key valid for verification.
	// Zero keeps the previous key verifiable until Retire is called.
	OverlapWindow time.Duration
}

type keyRecord struct {
	id        string
	secret    []byte
	private   *rsa.PrivateKey
	createdAt time.Time
	// retireAt is the verification deadline for rotated-out keys.
	// Zero means no deadline.
	retireAt time.Time
}

// Store holds signing key material. Key material is read-mostly: reads
// take a shared lock, rotation takes the exclusive lock, and both the
// current and overlap keys verify during a rotation window.
type Store struct {
	alg     Algorithm
	overlap time.Duration
	rsaBits int

	mu      sync.RWMutex
	current string
	keys    map[string]*keyRecord
}

// NewStore creates a key store from cfg. It fails with [ErrNoKey] when
// the configuration yields no signing key; services must not start
// without one.
func NewStore(cfg Config) (*Store, error) {
	s := &Store{
		alg:     cfg.Algorithm,
		overlap: cfg.OverlapWindow,
		rsaBits: cfg.RSABits,
		keys:    make(map[string]*keyRecord),
	}
	if s.rsaBits == 0 {
		s.rsaBits = defaultRSABits
	}

	switch cfg.Algorithm {
	case AlgHS256:
		if len(cfg.Secret) == 0 {
			return nil, ErrNoKey
		}
		rec := &keyRecord{
			id:        newKeyID(),
			secret:    append([]byte(nil), cfg.Secret...),
			createdAt: time.Now(),
		}
		s.keys[rec.id] = rec
		s.current = rec.id
	case AlgRS256:
		private := cfg.RSAPrivateKey
		if private == nil {
			generated, err := rsa.GenerateKey(rand.Reader, s.rsaBits)
			if err != nil {
				return nil, err
			}
			private = generated
		}
		rec := &keyRecord{
			id:        newKeyID(),
			private:   private,
			createdAt: time.Now(),
		}
		s.keys[rec.id] = rec
		s.current = rec.id
	default:
		return nil, errors.New("keystore: unsupported algorithm")
	}

	return s, nil
}

// Algorithm returns the configured signing algorithm.
func (s *Store) Algorithm() Algorithm {
	return s.alg
}

// CurrentKeyID returns the key id used for new signatures.
func (s *Store) CurrentKeyID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SigningKey returns the current key id and signing material: a []byte
// secret for hs256, an *rsa.PrivateKey for rs256.
func (s *Store) SigningKey() (string, any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.keys[s.current]
	if !ok {
		return "", nil, ErrNoKey
	}
	switch s.alg {
	case AlgHS256:
		return rec.id, rec.secret, nil
	default:
		return rec.id, rec.private, nil
	}
}

// VerificationKey returns verification material for the given key id:
// a []byte secret for hs256, an *rsa.PublicKey for rs256. Rotated-out
// keys remain resolvable until their overlap deadline passes.
func (s *Store) VerificationKey(kid string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.keys[kid]
	if !ok {
		return nil, false
	}
	if !rec.retireAt.IsZero() && time.Now().After(rec.retireAt) {
		return nil, false
	}
	switch s.alg {
	case AlgHS256:
		return rec.secret, true
	default:
		return &rec.private.PublicKey, true
	}
}

// Rotate generates a fresh key, promotes it to current, and keeps the
// previous key valid for verification through the overlap window.
func (s *Store) Rotate() (string, error) {
	rec := &keyRecord{
		id:        newKeyID(),
		createdAt: time.Now(),
	}
	switch s.alg {
	case AlgHS256:
		secret := make([]byte, sha256.Size)
		if _, err := rand.Read(secret); err != nil {
			return "", err
		}
		rec.secret = secret
	case AlgRS256:
		private, err := rsa.GenerateKey(rand.Reader, s.rsaBits)
		if err != nil {
			return "", err
		}
		rec.private = private
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.keys[s.current]; ok && s.overlap > 0 {
		previous.retireAt = time.Now().Add(s.overlap)
	}
	s.keys[rec.id] = rec
	s.current = rec.id
	return rec.id, nil
}

// Retire drops a non-current key from the verification set. Retiring
// the current key is refused.
func (s *Store) Retire(kid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kid == s.current {
		return false
	}
	if _, ok := s.keys[kid]; !ok {
		return false
	}
	delete(s.keys, kid)
	return true
}

// Sign signs payload with the current key.
func (s *Store) Sign(payload []byte) ([]byte, error) {
	_, key, err := s.SigningKey()
	if err != nil {
		return nil, err
	}
	switch k := key.(type) {
	case []byte:
		mac := hmac.New(sha256.New, k)
		mac.Write(payload)
		return mac.Sum(nil), nil
	case *rsa.PrivateKey:
		digest := sha256.Sum256(payload)
		return rsa.SignPKCS1v15(rand.Reader, k, crypto.SHA256, digest[:])
	default:
		return nil, ErrNoKey
	}
}

// Verify reports whether sig is a valid signature of payload under any
// key still held for verification.
func (s *Store) Verify(payload, sig []byte) bool {
	s.mu.RLock()
	kids := make([]string, 0, len(s.keys))
	for kid := range s.keys {
		kids = append(kids, kid)
	}
	s.mu.RUnlock()

	for _, kid := range kids {
		key, ok := s.VerificationKey(kid)
		if !ok {
			continue
		}
		switch k := key.(type) {
		case []byte:
			mac := hmac.New(sha256.New, k)
			mac.Write(payload)
			if hmac.Equal(mac.Sum(nil), sig) {
				return true
			}
		case *rsa.PublicKey:
			digest := sha256.Sum256(payload)
			if rsa.VerifyPKCS1v15(k, crypto.SHA256, digest[:], sig) == nil {
				return true
			}
		}
	}
	return false
}

func newKeyID() string {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived id rather than panic during rotation.
		binary.BigEndian.PutUint64(raw[:], uint64(time.Now().UnixNano()))
	}
	return hex.EncodeToString(raw[:])
}
