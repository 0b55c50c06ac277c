package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const calendarScope = "https://www.googleapis.com/auth/calendar"

var (
	ErrCodeRequired    = errors.New("authorization code is required")
	ErrNoRefreshToken  = errors.New("google did not return a refresh token; revoke access and connect again")
	ErrNotTenantAdmin  = errors.New("only tenant owners and admins can connect the calendar")
	ErrEventIDRequired = errors.New("event_id is required")
)

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint
}

func (c OAuthConfig) config() *oauth2.Config {
	ep := c.Endpoint
	if ep.TokenURL == "" {
		ep = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     ep,
		Scopes:       []string{calendarScope},
	}
}

type Status struct {
	Connected  bool   `json:"connected"`
	Email      string `json:"email,omitempty"`
	CalendarID string `json:"calendar_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type AccessToken struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
}

// Service holds the OAuth flow and proxies Calendar calls on behalf of a
// tenant.
type Service struct {
	oauth  *oauth2.Config
	tokens TokenStore
	api    *Client
	audit  audit.Logger
}

func NewService(cfg OAuthConfig, tokens TokenStore, api *Client, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &Service{oauth: cfg.config(), tokens: tokens, api: api, audit: auditLog}
}

// AuthURL is where the browser goes to grant calendar access. Offline
// access with forced consent makes Google return a refresh token.
func (s *Service) AuthURL(tenantID uuid.UUID) string {
	return s.oauth.AuthCodeURL(tenantID.String(), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades the authorization code for tokens and stores the
// refresh token for the session's tenant.
func (s *Service) ExchangeCode(ctx context.Context, sess *tenant.Session, code string) (*Status, error) {
	if code == "" {
		return nil, ErrCodeRequired
	}
	if !sess.IsTenantAdmin() {
		return nil, ErrNotTenantAdmin
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange-code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	conn := &Connection{TenantID: sess.TenantID(), RefreshToken: tok.RefreshToken, CalendarID: "primary"}
	if primary, err := s.api.PrimaryCalendar(ctx, tok.AccessToken); err == nil {
		conn.ConnectedEmail = primary.ID
	} else {
		slog.Warn("could not read primary calendar", "tenant_id", conn.TenantID, "error", err)
	}
	if err := s.tokens.SaveConnection(ctx, conn); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, audit.LogEntry{
		Action:       audit.ActionCalendarConnected,
		ResourceType: "google_calendar",
		Details:      map[string]interface{}{"email": conn.ConnectedEmail},
	}); err != nil {
		slog.Warn("audit log failed", "action", audit.ActionCalendarConnected, "error", err)
	}
	return &Status{Connected: true, Email: conn.ConnectedEmail, CalendarID: conn.CalendarID}, nil
}

// RefreshToken mints a fresh access token from the stored refresh token.
func (s *Service) RefreshToken(ctx context.Context, tenantID uuid.UUID) (*AccessToken, error) {
	_, tok, err := s.token(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &AccessToken{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}

func (s *Service) token(ctx context.Context, tenantID uuid.UUID) (*Connection, *oauth2.Token, error) {
	conn, err := s.tokens.Connection(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	tok, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		return nil, nil, fmt.Errorf("refresh-token: %w", err)
	}
	return conn, tok, nil
}

// CheckConnection reports whether the stored grant still works. A revoked
// grant is reported, not returned as an error.
func (s *Service) CheckConnection(ctx context.Context, tenantID uuid.UUID) (*Status, error) {
	conn, _, err := s.token(ctx, tenantID)
	switch {
	case errors.Is(err, ErrNotConnected):
		return &Status{}, nil
	case err != nil:
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return &Status{Error: "autorização do Google expirada ou revogada"}, nil
		}
		return nil, err
	}
	return &Status{Connected: true, Email: conn.ConnectedEmail, CalendarID: conn.CalendarID}, nil
}

func (s *Service) Disconnect(ctx context.Context, sess *tenant.Session) error {
	if !sess.IsTenantAdmin() {
		return ErrNotTenantAdmin
	}
	return s.tokens.DeleteConnection(ctx, sess.TenantID())
}

func (s *Service) ListCalendars(ctx context.Context, tenantID uuid.UUID) ([]CalendarEntry, error) {
	_, tok, err := s.token(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.api.ListCalendars(ctx, tok.AccessToken)
}

func (s *Service) ListEvents(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Event, error) {
	conn, tok, err := s.token(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.api.ListEvents(ctx, tok.AccessToken, conn.CalendarID, from, to)
}

func (s *Service) GetEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*Event, error) {
	if eventID == "" {
		return nil, ErrEventIDRequired
	}
	conn, tok, err := s.token(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.api.GetEvent(ctx, tok.AccessToken, conn.CalendarID, eventID)
}

func (s *Service) CreateEvent(ctx context.Context, tenantID uuid.UUID, ev *Event) (*Event, error) {
	conn, tok, err := s.token(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.api.CreateEvent(ctx, tok.AccessToken, conn.CalendarID, ev)
}

func (s *Service) UpdateEvent(ctx context.Context, tenantID uuid.UUID, eventID string, ev *Event) (*Event, error) {
	if eventID == "" {
		return nil, ErrEventIDRequired
	}
	conn, tok, err := s.token(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.api.UpdateEvent(ctx, tok.AccessToken, conn.CalendarID, eventID, ev)
}

func (s *Service) DeleteEvent(ctx context.Context, tenantID uuid.UUID, eventID string) error {
	if eventID == "" {
		return ErrEventIDRequired
	}
	conn, tok, err := s.token(ctx, tenantID)
	if err != nil {
		return err
	}
	return s.api.DeleteEvent(ctx, tok.AccessToken, conn.CalendarID, eventID)
}
