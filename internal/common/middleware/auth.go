package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/common/logger"
)

const (
	keyUserID = "user_id"
	keyClaims = "validated_claims"

	// AnonymousActor is recorded in the activity log when auth is off.
	AnonymousActor = "staff"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string `json:"scope"`
}

func (c CustomClaims) Validate(context.Context) error { return nil }

// HasScope checks whether our claims have a specific scope.
func (c CustomClaims) HasScope(expectedScope string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == expectedScope {
			return true
		}
	}
	return false
}

// EnsureValidToken checks the bearer JWT against the Auth0 tenant.
func EnsureValidToken(cfg config.Auth0Config, log *logger.Logger) (gin.HandlerFunc, error) {
	if log == nil {
		log = logger.NewNop()
	}
	issuerURL, err := url.Parse("https://" + cfg.Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("parse issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims { return &CustomClaims{} }),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("set up jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("jwt_rejected", map[string]any{"path": r.URL.Path, "reason": err.Error()})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`))
	}

	mw := jwtmiddleware.New(jwtValidator.ValidateToken, jwtmiddleware.WithErrorHandler(errorHandler))

	return func(c *gin.Context) {
		passed := false
		var next http.HandlerFunc = func(_ http.ResponseWriter, r *http.Request) {
			token, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				return
			}
			passed = true
			c.Request = r
			c.Set(keyUserID, token.RegisteredClaims.Subject)
			c.Set(keyClaims, token)
			c.Next()
		}
		mw.CheckJWT(next).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}, nil
}

// RequireScope lets the request through only if the token carries scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get(keyClaims)
		claims, _ := raw.(*validator.ValidatedClaims)
		if !ok || claims == nil {
			abort(c, http.StatusUnauthorized, "MISSING_CLAIMS", "Could not retrieve token claims")
			return
		}
		custom, _ := claims.CustomClaims.(*CustomClaims)
		if custom == nil || !custom.HasScope(scope) {
			abort(c, http.StatusForbidden, "INSUFFICIENT_SCOPE", "Insufficient permissions to access this resource")
			return
		}
		c.Next()
	}
}

// Protect returns the chain guarding staff-only routes. Without an Auth0
// tenant configured every caller is treated as staff.
func Protect(cfg config.Auth0Config, log *logger.Logger) ([]gin.HandlerFunc, error) {
	if !cfg.Enabled() {
		return []gin.HandlerFunc{func(c *gin.Context) { c.Next() }}, nil
	}
	ensure, err := EnsureValidToken(cfg, log)
	if err != nil {
		return nil, err
	}
	chain := []gin.HandlerFunc{ensure}
	if cfg.AdminScope != "" {
		chain = append(chain, RequireScope(cfg.AdminScope))
	}
	return chain, nil
}

// Actor names who performed the request for the activity log.
func Actor(c *gin.Context) string {
	if id := c.GetString(keyUserID); id != "" {
		return id
	}
	return AnonymousActor
}

func abort(c *gin.Context, code int, errCode, msg string) {
	c.AbortWithStatusJSON(code, gin.H{
		"success": false,
		"error":   gin.H{"code": errCode, "message": msg},
	})
}
