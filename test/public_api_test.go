package test

import (
	"context"
	"net/http"
	"testing"

	authcore "github.com/tidelock/authcore"
	"github.com/tidelock/authcore/keys"
	"github.com/tidelock/authcore/middleware"
	"github.com/tidelock/authcore/permission"
	"github.com/tidelock/authcore/token"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = authcore.New
	_ = authcore.DefaultConfig

	var _ *authcore.Engine
	var _ authcore.Config
	var _ authcore.Principal
	var _ authcore.TokenPair
	var _ authcore.SessionInfo
	var _ authcore.AuditSink
	var _ authcore.MetricsSnapshot

	var _ error = authcore.ErrMalformedToken
	var _ error = authcore.ErrTokenExpired
	var _ error = authcore.ErrTokenRevoked
	var _ error = authcore.ErrTokenTypeMismatch
	var _ error = authcore.ErrWrongIssuerOrAudience
	var _ error = authcore.ErrRefreshReuse
	var _ error = authcore.ErrRefreshRateLimited
	var _ error = authcore.ErrPermissionDenied
	var _ error = authcore.ErrServiceUnavailable
	var _ error = authcore.ErrSessionNotFound
	var _ error = authcore.ErrNoSigningKey

	var _ func(*authcore.Engine, context.Context, authcore.Principal) (*authcore.TokenPair, *authcore.SessionInfo, error) = (*authcore.Engine).CreateSession
	var _ func(*authcore.Engine, context.Context, string, token.Type) (*token.Claims, error) = (*authcore.Engine).Verify
	var _ func(*authcore.Engine, context.Context, string) (*authcore.TokenPair, error) = (*authcore.Engine).Refresh
	var _ func(*authcore.Engine, context.Context, string, string) (bool, error) = (*authcore.Engine).Logout
	var _ func(*authcore.Engine, context.Context, string) error = (*authcore.Engine).RevokeFamily
	var _ func(*authcore.Engine) keys.JWKSDocument = (*authcore.Engine).GetPublicKeys
	var _ func(*authcore.Engine, context.Context, string, string) (permission.Role, error) = (*authcore.Engine).MemberRole

	var _ func(*authcore.Engine) func(http.Handler) http.Handler = middleware.RequireAccess
	var _ func(*authcore.Engine, string) func(http.Handler) http.Handler = middleware.RequirePermission
}
