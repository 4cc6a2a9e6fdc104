package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tidelock/authcore/keys"
)

// Type distinguishes access tokens from refresh tokens inside claims.
type Type string

const (
	// TypeAccess marks short-lived request tokens.
	TypeAccess Type = "access"
	// TypeRefresh marks long-lived rotation tokens.
	TypeRefresh Type = "refresh"
)

var (
	// ErrMalformed is returned for structurally or cryptographically
	// invalid tokens: bad segments, bad signature, unknown kid.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired is returned when the token expiry is in the past.
	ErrExpired = errors.New("token expired")
	// ErrWrongIssuerOrAudience is returned when iss or aud does not
	// match the configured values.
	ErrWrongIssuerOrAudience = errors.New("wrong token issuer or audience")
	// ErrTypeMismatch is returned when the embedded token type differs
	// from the type the caller expected.
	ErrTypeMismatch = errors.New("token type mismatch")
)

// Claims is the payload carried by every issued token. Family is set
// on refresh tokens only and is stable across a rotation chain.
type Claims struct {
	TenantID       string `json:"tid,omitempty"`
	OrganizationID string `json:"org,omitempty"`
	TokenType      Type   `json:"typ"`
	Family         string `json:"fam,omitempty"`
	jwt.RegisteredClaims
}

// JTI returns the unique token identifier.
func (c *Claims) JTI() string {
	return c.ID
}

// Config holds issuance parameters the codec reads but does not own.
type Config struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Codec encodes and decodes signed token claims. Signing material is
// resolved through the key store on every call so rotation takes
// effect without re-creating the codec.
type Codec struct {
	config Config
	keys   *keys.Store
}

// NewCodec validates cfg and binds the codec to a key store.
func NewCodec(cfg Config, ks *keys.Store) (*Codec, error) {
	if ks == nil {
		return nil, errors.New("token: nil key store")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("token: refresh TTL shorter than access TTL")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("token: issuer required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}
	return &Codec{config: cfg, keys: ks}, nil
}

// Encode mints a signed token of the given type. The jti is generated
// here from crypto/rand-backed UUIDv4 material; callers never supply
// it. Family must be set for refresh tokens and empty for access
// tokens. Returns the compact token, its jti, and its expiry.
func (c *Codec) Encode(typ Type, subject, tenantID, orgID, family string) (string, string, time.Time, error) {
	if subject == "" {
		return "", "", time.Time{}, errors.New("token: empty subject")
	}
	switch typ {
	case TypeAccess:
		if family != "" {
			return "", "", time.Time{}, errors.New("token: access tokens carry no family")
		}
	case TypeRefresh:
		if family == "" {
			return "", "", time.Time{}, errors.New("token: refresh tokens require a family")
		}
	default:
		return "", "", time.Time{}, fmt.Errorf("token: unknown type %q", typ)
	}

	ttl := c.config.AccessTTL
	if typ == TypeRefresh {
		ttl = c.config.RefreshTTL
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	claims := Claims{
		TenantID:       tenantID,
		OrganizationID: orgID,
		TokenType:      typ,
		Family:         family,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	tok := jwt.NewWithClaims(c.signingMethod(), claims)
	kid, key, err := c.keys.SigningKey()
	if err != nil {
		return "", "", time.Time{}, err
	}
	tok.Header["kid"] = kid

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, expiresAt, nil
}

// Decode verifies the token signature, claim shape, issuer, audience,
// and type, and optionally expiry. verifyExpiry=false is for reading
// claims out of an already-expired token (revocation bookkeeping);
// every other check still applies.
func (c *Codec) Decode(tokenStr string, expected Type, verifyExpiry bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signingMethod().Alg()}),
	}
	if verifyExpiry {
		options = append(options,
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(c.config.Issuer),
		)
		if c.config.Audience != "" {
			options = append(options, jwt.WithAudience(c.config.Audience))
		}
		if c.config.Leeway > 0 {
			options = append(options, jwt.WithLeeway(c.config.Leeway))
		}
	} else {
		// Expiry is checked by the registered-claims validator, so the
		// whole validator is skipped and iss/aud re-checked manually.
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, c.keyFunc)
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}
	if !verifyExpiry {
		if err := c.validateStatic(claims); err != nil {
			return nil, err
		}
	}
	if claims.TokenType != expected {
		return nil, ErrTypeMismatch
	}
	if claims.TokenType == TypeRefresh && claims.Family == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	key, ok := c.keys.VerificationKey(kid)
	if !ok {
		return nil, errors.New("unknown kid")
	}
	return key, nil
}

func (c *Codec) validateStatic(claims *Claims) error {
	if claims.Issuer != c.config.Issuer {
		return ErrWrongIssuerOrAudience
	}
	if c.config.Audience != "" {
		found := false
		for _, aud := range claims.Audience {
			if aud == c.config.Audience {
				found = true
				break
			}
		}
		if !found {
			return ErrWrongIssuerOrAudience
		}
	}
	return nil
}

func (c *Codec) signingMethod() jwt.SigningMethod {
	switch c.keys.Algorithm() {
	case keys.AlgRS256:
		return jwt.SigningMethodRS256
	default:
		return jwt.SigningMethodHS256
	}
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrWrongIssuerOrAudience
	default:
		return ErrMalformed
	}
}
