package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/identity"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

// Claims are the fields read from a Supabase access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SessionResolver turns an authenticated user into a request session.
type SessionResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, email string) (*tenant.Session, error)
}

type JWTMiddleware struct {
	secret   []byte
	sessions SessionResolver
	now      func() time.Time
}

func NewJWTMiddleware(secret string, sessions SessionResolver) *JWTMiddleware {
	return &JWTMiddleware{
		secret:   []byte(secret),
		sessions: sessions,
		now:      time.Now,
	}
}

// Authenticate validates the bearer token and attaches a Session to the
// request context. A user without a profile still gets a session so the
// onboarding endpoints can run; RequireProfile guards everything else.
func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		}, jwt.WithTimeFunc(m.now))
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid user ID in token")
			return
		}

		ctx := r.Context()
		sess, err := m.sessions.Resolve(ctx, userID, claims.Email)
		switch {
		case errors.Is(err, identity.ErrProfileInactive):
			writeError(w, http.StatusForbidden, err.Error())
			return
		case err != nil:
			slog.Error("session resolve failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not load user profile")
			return
		}

		ctx = tenant.WithSession(ctx, sess)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
