package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

// ScopeCalendarSync lets a workflow engine post calendar changes.
const ScopeCalendarSync = "calendar:sync"

var errKeyNotFound = errors.New("api key not found")

type KeyStore interface {
	LookupAPIKey(ctx context.Context, hash string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, id uuid.UUID, at time.Time) error
}

type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

type PGKeyStore struct {
	db *pgxpool.Pool
}

func NewPGKeyStore(db *pgxpool.Pool) *PGKeyStore {
	return &PGKeyStore{db: db}
}

func (s *PGKeyStore) LookupAPIKey(ctx context.Context, hash string) (*models.APIKey, error) {
	var ak models.APIKey
	var scopesJSON json.RawMessage
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, user_id, key_hash, name, scopes, expires_at, created_at
		 FROM api_keys WHERE key_hash = $1`, hash,
	).Scan(&ak.ID, &ak.TenantID, &ak.UserID, &ak.KeyHash, &ak.Name, &scopesJSON, &ak.ExpiresAt, &ak.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	if err := json.Unmarshal(scopesJSON, &ak.Scopes); err != nil {
		return nil, fmt.Errorf("decode api key scopes: %w", err)
	}
	return &ak, nil
}

func (s *PGKeyStore) TouchAPIKey(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx, "UPDATE api_keys SET last_used_at = $1 WHERE id = $2", at, id)
	return err
}

// APIKeyMiddleware authenticates machine callers. The key's tenant becomes
// the session tenant; a key without a user acts as an employee.
type APIKeyMiddleware struct {
	keys       KeyStore
	tenants    TenantLookup
	headerName string
	now        func() time.Time
}

func NewAPIKeyMiddleware(keys KeyStore, tenants TenantLookup, headerName string) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		keys:       keys,
		tenants:    tenants,
		headerName: headerName,
		now:        time.Now,
	}
}

func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(m.headerName)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		hash := HashAPIKey(key)
		ctx := r.Context()
		ak, err := m.keys.LookupAPIKey(ctx, hash)
		if err != nil {
			if !errors.Is(err, errKeyNotFound) {
				slog.Error("api key lookup failed", "error", err)
			}
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(ak.KeyHash), []byte(hash)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		if ak.ExpiresAt != nil && ak.ExpiresAt.Before(m.now()) {
			writeError(w, http.StatusUnauthorized, "API key expired")
			return
		}

		if err := m.keys.TouchAPIKey(ctx, ak.ID, m.now()); err != nil {
			slog.Warn("api key touch failed", "key_id", ak.ID, "error", err)
		}

		t, err := m.tenants.GetByID(ctx, ak.TenantID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "tenant not found")
			return
		}

		tenantID := t.ID
		sess := &tenant.Session{
			Tenant:  t,
			Profile: &models.UserProfile{TenantID: &tenantID, Role: models.RoleEmployee, Status: models.ProfileActive},
		}
		if ak.UserID != nil {
			sess.UserID = *ak.UserID
			if p, err := m.tenants.GetProfile(ctx, *ak.UserID); err == nil && p.TenantID != nil && *p.TenantID == tenantID {
				sess.Profile = p
			}
		}

		ctx = tenant.WithSession(ctx, sess)
		ctx = context.WithValue(ctx, apiKeyKey, ak)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

const apiKeyKey ctxKey = "api_key"

func APIKeyFromContext(ctx context.Context) *models.APIKey {
	k, _ := ctx.Value(apiKeyKey).(*models.APIKey)
	return k
}

// RequireScope rejects API-key callers whose key lacks scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ak := APIKeyFromContext(r.Context())
			if ak == nil || !hasScope(ak.Scopes, scope) {
				writeError(w, http.StatusForbidden, "API key lacks scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want || s == "*" {
			return true
		}
	}
	return false
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
