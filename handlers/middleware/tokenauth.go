package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/evmstore/types"
)

// ErrUnauthorized is returned for calls that lack a sufficient token.
var ErrUnauthorized = errors.New("unauthorized")

type contextKey string

const (
	contextKeyTokenInfo contextKey = "token_info"
)

// TokenAuthMiddleware handles JWT token authentication for API requests
type TokenAuthMiddleware struct {
	logger      logrus.FieldLogger
	secret      []byte
	requireAuth bool
	proxyCount  uint
}

// NewTokenAuthMiddleware creates a new token authentication middleware instance.
// With requireAuth set, requests without a valid token are rejected.
func NewTokenAuthMiddleware(logger logrus.FieldLogger, secret string, requireAuth bool, proxyCount uint) *TokenAuthMiddleware {
	return &TokenAuthMiddleware{
		logger:      logger,
		secret:      []byte(secret),
		requireAuth: requireAuth,
		proxyCount:  proxyCount,
	}
}

// authenticateToken validates a JWT token and returns token information
func (m *TokenAuthMiddleware) authenticateToken(tokenString string) (*types.APITokenInfo, error) {
	if len(m.secret) == 0 {
		return nil, fmt.Errorf("authentication secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &types.APITokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*types.APITokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	tokenInfo := &types.APITokenInfo{
		Name:  claims.Name,
		Write: claims.Write,
	}
	if claims.IssuedAt != nil {
		tokenInfo.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		tokenInfo.ExpiresAt = &claims.ExpiresAt.Time
	}
	return tokenInfo, nil
}

// Middleware processes JWT authentication and adds token info to request context
func (m *TokenAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tokenInfo *types.APITokenInfo
		clientIP := GetClientIP(r, m.proxyCount)

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				APIErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "invalid authorization header format")
				return
			}

			var err error
			tokenInfo, err = m.authenticateToken(parts[1])
			if err != nil {
				m.logger.WithError(err).WithField("client_ip", clientIP).Warn("API authentication failed")
				APIErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "invalid authentication token")
				return
			}

			m.logger.WithFields(logrus.Fields{
				"client_ip":  clientIP,
				"token_name": tokenInfo.Name,
			}).Debug("API request with valid token")
		}

		if m.requireAuth && tokenInfo == nil {
			m.logger.WithField("client_ip", clientIP).Warn("API request rejected: authentication required")
			APIErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}

		if tokenInfo != nil {
			r = r.WithContext(WithTokenInfo(r.Context(), tokenInfo))
		}

		next.ServeHTTP(w, r)
	})
}

func WithTokenInfo(ctx context.Context, tokenInfo *types.APITokenInfo) context.Context {
	return context.WithValue(ctx, contextKeyTokenInfo, tokenInfo)
}

// GetTokenInfo extracts token information from the request context
func GetTokenInfo(ctx context.Context) *types.APITokenInfo {
	if tokenInfo, ok := ctx.Value(contextKeyTokenInfo).(*types.APITokenInfo); ok {
		return tokenInfo
	}
	return nil
}

// HasWriteAccess reports whether the request was authenticated with a write token.
func HasWriteAccess(ctx context.Context) bool {
	tokenInfo := GetTokenInfo(ctx)
	return tokenInfo != nil && tokenInfo.Write
}
