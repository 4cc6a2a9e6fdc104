package keys

import (
	"encoding/base64"
	"math/big"
	"sort"
	"time"
)

// JWK is a single public key entry in a JWKS document.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSDocument is the JSON key set served to token consumers.
type JWKSDocument struct {
	Keys []JWK `json:"keys"`
}

// JWKS returns the public half of every RSA key still accepted for
// verification, current key first. Symmetric stores return an empty
// key set; HMAC secrets are never exposed.
func (s *Store) JWKS() JWKSDocument {
	doc := JWKSDocument{Keys: []JWK{}}
	if s.alg != AlgRS256 {
		return doc
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	kids := make([]string, 0, len(s.keys))
	for kid := range s.keys {
		kids = append(kids, kid)
	}
	sort.Slice(kids, func(i, j int) bool {
		if kids[i] == s.current {
			return true
		}
		if kids[j] == s.current {
			return false
		}
		return s.keys[kids[i]].createdAt.After(s.keys[kids[j]].createdAt)
	})

	now := time.Now()
	for _, kid := range kids {
		rec := s.keys[kid]
		if rec.private == nil {
			continue
		}
		if !rec.retireAt.IsZero() && now.After(rec.retireAt) {
			continue
		}
		public := rec.private.PublicKey
		doc.Keys = append(doc.Keys, JWK{
			Kty: "RSA",
			Use: "sig",
			Kid: rec.id,
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(public.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(public.E)).Bytes()),
		})
	}
	return doc
}
