package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

// Cookie names for the browser-facing token transport. Tokens are also
// accepted via the Authorization header for non-browser clients.
const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// IdentityLoader resolves the authenticated account backing a verified token.
type IdentityLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// RequireAuth verifies the access token on each request and attaches the
// resolved identity to the context. The token is read from the accessToken
// cookie or, failing that, a Bearer Authorization header. Requests without a
// valid token are rejected with 401 before the wrapped handler runs.
func RequireAuth(verifier TokenVerifier, users IdentityLoader, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
			return
		}

		claims, err := verifier.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				respondError(ctx, w, http.StatusUnauthorized, "access token expired")
				return
			}
			respondError(ctx, w, http.StatusUnauthorized, "invalid access token")
			return
		}

		user, err := users.FindByID(ctx, claims.UserID)
		if err != nil {
			logging.FromContext(ctx).Warn("access token for unknown user", "user_id", claims.UserID)
			respondError(ctx, w, http.StatusUnauthorized, "invalid access token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, user)))
	})
}

// bearerToken extracts the access token from the request, preferring the
// cookie over the Authorization header.
func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// setSessionCookies attaches both tokens as HTTP-only cookies scoped to the
// whole site. Secure is configurable so local development over plain HTTP
// still works.
func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both token cookies.
func clearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
