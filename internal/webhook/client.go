package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ErrRejected is matched by errors.Is when the receiver answered with a
// non-2xx status.
var ErrRejected = errors.New("webhook rejected")

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook rejected (%d): %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRejected
}

// Client posts signed JSON events. Each Send is a single attempt.
type Client struct {
	http   *resty.Client
	secret string
}

func NewClient(timeout time.Duration, secret string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	http := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http, secret: secret}
}

type Delivery struct {
	ID         uuid.UUID
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Send posts payload to url. When a secret is configured the body is signed
// in X-Webhook-Signature.
func (c *Client) Send(ctx context.Context, url, event string, payload interface{}) (*Delivery, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	d := &Delivery{ID: uuid.New()}
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Webhook-Event", event).
		SetHeader("X-Webhook-ID", d.ID.String()).
		SetBody(body)
	if c.secret != "" {
		req.SetHeader("X-Webhook-Signature", sign(body, c.secret))
	}

	start := time.Now()
	resp, err := req.Post(url)
	d.Duration = time.Since(start)
	if err != nil {
		slog.Error("webhook delivery failed", "error", err, "event", event, "delivery_id", d.ID)
		return nil, fmt.Errorf("post webhook %s: %w", event, err)
	}

	d.StatusCode = resp.StatusCode()
	d.Body = resp.Body()
	if !resp.IsSuccess() {
		slog.Warn("webhook received non-success response", "status", d.StatusCode, "event", event, "delivery_id", d.ID)
		return d, &StatusError{StatusCode: d.StatusCode, Body: truncate(string(d.Body), 512)}
	}
	return d, nil
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// Verify checks a signature produced by sign.
func Verify(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(sign(payload, secret)), []byte(signature))
}

// maxSignedBody caps how much of an inbound body is read for verification.
const maxSignedBody = 1 << 20

// RequireSignature rejects inbound requests whose body does not match
// X-Webhook-Signature under secret. The workflow engine signs its calls
// with the same secret it receives campaign events with. An empty secret
// disables the check.
func RequireSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody))
			if err != nil {
				writeError(w, http.StatusBadRequest, "could not read body")
				return
			}
			if !Verify(body, r.Header.Get("X-Webhook-Signature"), secret) {
				slog.Warn("inbound webhook signature mismatch", "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "invalid webhook signature")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
