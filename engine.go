package authcore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tidelock/authcore/internal/audit"
	"github.com/tidelock/authcore/internal/rate"
	"github.com/tidelock/authcore/keys"
	"github.com/tidelock/authcore/permission"
	"github.com/tidelock/authcore/revocation"
	"github.com/tidelock/authcore/session"
	"github.com/tidelock/authcore/token"
)

// Engine is the token lifecycle and permission evaluation core. It is
// safe for concurrent use after construction through [Builder.Build].
type Engine struct {
	config      Config
	keyStore    *keys.Store
	codec       *token.Codec
	ledger      *revocation.Ledger
	sessions    session.Store
	cache       *session.Cache
	permissions *permission.Engine
	limiter     *rate.Limiter
	metrics     *Metrics
	audit       *audit.Dispatcher
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// CreateSession mints a fresh access/refresh pair for the principal
// and persists the session record durably and in the fast-lookup
// cache. The refresh token opens a new family; every token later
// descended from it through rotation shares that family id.
func (e *Engine) CreateSession(ctx context.Context, principal Principal) (*TokenPair, *SessionInfo, error) {
	if e == nil {
		return nil, nil, ErrEngineNotReady
	}
	if principal.ID == "" {
		return nil, nil, ErrAuthentication
	}

	family := uuid.NewString()

	access, accessJTI, accessExp, err := e.codec.Encode(
		token.TypeAccess, principal.ID, principal.TenantID, principal.OrganizationID, "")
	if err != nil {
		e.metricInc(MetricSessionCreateFailure)
		e.emitAudit(ctx, auditEventSessionCreateFailed, false,
			principal.ID, principal.TenantID, principal.OrganizationID, "", family, err, nil)
		return nil, nil, err
	}

	refresh, refreshJTI, refreshExp, err := e.codec.Encode(
		token.TypeRefresh, principal.ID, principal.TenantID, principal.OrganizationID, family)
	if err != nil {
		e.metricInc(MetricSessionCreateFailure)
		e.emitAudit(ctx, auditEventSessionCreateFailed, false,
			principal.ID, principal.TenantID, principal.OrganizationID, "", family, err, nil)
		return nil, nil, err
	}

	now := time.Now()
	sess := &session.Session{
		ID:              session.NewID(),
		PrincipalID:     principal.ID,
		TenantID:        principal.TenantID,
		OrganizationID:  principal.OrganizationID,
		Family:          family,
		AccessJTI:       accessJTI,
		RefreshJTI:      refreshJTI,
		IPAddress:       clientIPFromContext(ctx),
		UserAgent:       userAgentFromContext(ctx),
		CreatedAt:       now,
		ExpiresAt:       refreshExp,
		AccessExpiresAt: accessExp,
	}

	if err := e.sessions.Save(ctx, sess); err != nil {
		e.metricInc(MetricSessionCreateFailure)
		e.emitAudit(ctx, auditEventSessionCreateFailed, false,
			principal.ID, principal.TenantID, principal.OrganizationID, sess.ID, family, err,
			func() map[string]string {
				return map[string]string{"reason": "session_save_failed"}
			})
		return nil, nil, err
	}
	e.cachePut(ctx, sess)

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true,
		principal.ID, principal.TenantID, principal.OrganizationID, sess.ID, family, nil, nil)

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, sessionInfo(sess), nil
}

// Verify validates signature, claim shape, and revocation status of a
// presented token. This is the hot path: one codec parse plus one
// ledger read, no per-call key material work. A ledger outage denies
// with [ErrServiceUnavailable]; verification never fails open.
func (e *Engine) Verify(ctx context.Context, tokenStr string, expected token.Type) (*token.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}()
	}

	claims, err := e.codec.Decode(tokenStr, expected, true)
	if err != nil {
		e.metricInc(MetricVerifyDenied)
		return nil, mapTokenError(err)
	}

	revoked, err := e.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricVerifyUnavailable)
		return nil, ErrServiceUnavailable
	}
	if revoked {
		e.metricInc(MetricVerifyDenied)
		return nil, ErrTokenRevoked
	}

	e.metricInc(MetricVerifySuccess)
	return claims, nil
}

// Refresh rotates a refresh token: the presented jti is burned, a new
// access/refresh pair sharing the same family is minted, and the
// session row is updated through a compare-and-swap on the old jti.
// Presenting an already-rotated token is treated as theft: the whole
// family is revoked unconditionally before [ErrRefreshReuse] surfaces.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(refreshToken, token.TypeRefresh, true)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", "", "", err,
			func() map[string]string {
				return map[string]string{"reason": "decode_failed"}
			})
		return nil, mapTokenError(err)
	}

	if e.limiter != nil {
		if err := e.limiter.CheckRefresh(ctx, claims.Family); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRefreshRateLimited)
				e.emitAudit(ctx, auditEventRefreshRateLimited, false,
					claims.Subject, claims.TenantID, claims.OrganizationID, "", claims.Family,
					ErrRefreshRateLimited, nil)
				return nil, ErrRefreshRateLimited
			}
			e.metricInc(MetricRefreshFailure)
			return nil, ErrServiceUnavailable
		}
	}

	// A token revoked through logout or family revocation is dead, not
	// stolen; it must not re-trip the reuse alarm.
	revoked, err := e.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrServiceUnavailable
	}
	if revoked {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrTokenRevoked
	}

	used, err := e.ledger.IsUsed(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrServiceUnavailable
	}
	if used {
		e.handleRefreshReuse(ctx, claims)
		return nil, ErrRefreshReuse
	}

	access, accessJTI, accessExp, err := e.codec.Encode(
		token.TypeAccess, claims.Subject, claims.TenantID, claims.OrganizationID, "")
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	refresh, refreshJTI, refreshExp, err := e.codec.Encode(
		token.TypeRefresh, claims.Subject, claims.TenantID, claims.OrganizationID, claims.Family)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	sess, err := e.sessions.Rotate(ctx, claims.ID, session.Rotation{
		AccessJTI:       accessJTI,
		RefreshJTI:      refreshJTI,
		ExpiresAt:       refreshExp,
		AccessExpiresAt: accessExp,
	})
	if err != nil {
		if errors.Is(err, session.ErrRotateConflict) || errors.Is(err, session.ErrNotFound) {
			// The presented jti is not the live one: either a stale
			// token replayed after a successful rotation, or the
			// session is gone. Both are the reuse signal.
			e.handleRefreshReuse(ctx, claims)
			return nil, ErrRefreshReuse
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false,
			claims.Subject, claims.TenantID, claims.OrganizationID, "", claims.Family, err,
			func() map[string]string {
				return map[string]string{"reason": "rotate_failed"}
			})
		return nil, err
	}

	// Burn the rotated-out jti for the rest of its natural lifetime.
	// If this write fails the CAS above still protects the invariant,
	// so the failure is logged rather than surfaced.
	if err := e.ledger.MarkUsed(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		log.Print("authcore: marking rotated refresh jti failed")
	}
	e.cachePut(ctx, sess)

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true,
		sess.PrincipalID, sess.TenantID, sess.OrganizationID, sess.ID, sess.Family, nil, nil)

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) handleRefreshReuse(ctx context.Context, claims *token.Claims) {
	e.metricInc(MetricRefreshReuseDetected)
	if err := e.revokeFamily(ctx, claims.Family, session.ReasonRefreshReuse); err != nil {
		log.Print("authcore: family revocation after reuse detection failed")
	}
	e.emitAudit(ctx, auditEventRefreshReuse, false,
		claims.Subject, claims.TenantID, claims.OrganizationID, "", claims.Family,
		ErrRefreshReuse, nil)
}

// RevokeFamily terminates every session descended from one login and
// blacklists their access and refresh jtis for the remainder of each
// token's lifetime.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.revokeFamily(ctx, familyID, session.ReasonFamilyRevoked); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventFamilyRevoked, true, "", "", "", "", familyID, nil, nil)
	return nil
}

func (e *Engine) revokeFamily(ctx context.Context, familyID, reason string) error {
	sessions, err := e.sessions.FindByFamily(ctx, familyID)
	if err != nil {
		return err
	}

	now := time.Now()
	var firstErr error
	for _, s := range sessions {
		if s.RevokedAt == nil {
			if err := e.sessions.MarkRevoked(ctx, s.ID, reason, now); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := e.ledger.MarkRevoked(ctx, s.AccessJTI, time.Until(s.AccessExpiresAt)); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := e.ledger.MarkRevoked(ctx, s.RefreshJTI, time.Until(s.ExpiresAt)); err != nil && firstErr == nil {
			firstErr = err
		}
		e.cacheDelete(ctx, s.ID)
	}

	e.metricInc(MetricFamilyRevoked)
	return firstErr
}

// Logout terminates a single session after an ownership check. A
// session that does not exist or belongs to another principal reports
// false without detail; callers cannot probe for foreign sessions.
func (e *Engine) Logout(ctx context.Context, sessionID, principalID string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}

	sess, err := e.lookupSession(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sess.PrincipalID != principalID {
		return false, nil
	}

	if sess.RevokedAt == nil {
		if err := e.sessions.MarkRevoked(ctx, sessionID, session.ReasonLogout, time.Now()); err != nil {
			return false, err
		}
	}
	// The blacklist writes are what make the outstanding tokens dead;
	// a ledger outage here must surface, not be swallowed.
	if err := e.ledger.MarkRevoked(ctx, sess.AccessJTI, time.Until(sess.AccessExpiresAt)); err != nil {
		return false, ErrServiceUnavailable
	}
	if err := e.ledger.MarkRevoked(ctx, sess.RefreshJTI, time.Until(sess.ExpiresAt)); err != nil {
		return false, ErrServiceUnavailable
	}
	e.cacheDelete(ctx, sessionID)

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true,
		sess.PrincipalID, sess.TenantID, sess.OrganizationID, sess.ID, sess.Family, nil, nil)
	return true, nil
}

// GetSession returns the caller-visible view of a session, preferring
// the fast-lookup cache.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	sess, err := e.lookupSession(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// GetPublicKeys returns the JWKS document for all verification keys.
// Symmetric deployments serve an empty key set.
func (e *Engine) GetPublicKeys() keys.JWKSDocument {
	if e == nil {
		return keys.JWKSDocument{Keys: []keys.JWK{}}
	}
	return e.keyStore.JWKS()
}

// RotateSigningKey generates a fresh signing key. Tokens signed by the
// previous key keep verifying through the overlap window.
func (e *Engine) RotateSigningKey(ctx context.Context) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	kid, err := e.keyStore.Rotate()
	if err != nil {
		return "", err
	}
	e.metricInc(MetricKeyRotated)
	e.emitAudit(ctx, auditEventKeyRotated, true, "", "", "", "", "", nil,
		func() map[string]string {
			return map[string]string{"kid": kid}
		})
	return kid, nil
}

func (e *Engine) lookupSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if e.cache != nil {
		if sess, err := e.cache.Get(ctx, sessionID); err == nil {
			return sess, nil
		}
	}
	return e.sessions.GetByID(ctx, sessionID)
}

func (e *Engine) cachePut(ctx context.Context, sess *session.Session) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Put(ctx, sess); err != nil {
		log.Print("authcore: session cache write failed")
	}
}

func (e *Engine) cacheDelete(ctx context.Context, sessionID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, sessionID); err != nil {
		log.Print("authcore: session cache delete failed")
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrTypeMismatch):
		return ErrTokenTypeMismatch
	case errors.Is(err, token.ErrWrongIssuerOrAudience):
		return ErrWrongIssuerOrAudience
	case errors.Is(err, token.ErrMalformed):
		return ErrMalformedToken
	default:
		return err
	}
}
