package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendSignsBody(t *testing.T) {
	var got []byte
	var sig, event string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		sig = r.Header.Get("X-Webhook-Signature")
		event = r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "s3cret")
	d, err := c.Send(context.Background(), srv.URL, "campaign.dispatch", map[string]string{"campanha": "Volta"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, d.StatusCode)
	assert.Equal(t, "campaign.dispatch", event)
	assert.True(t, Verify(got, sig, "s3cret"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(got, &body))
	assert.Equal(t, "Volta", body["campanha"])
}

func TestClient_NonSuccessIsRejectedWithoutRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("workflow down"))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "")
	d, err := c.Send(context.Background(), srv.URL, "campaign.dispatch", map[string]int{"n": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "workflow down", se.Body)
	assert.Equal(t, http.StatusBadGateway, d.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(time.Second, "")
	_, err := c.Send(context.Background(), url, "campaign.dispatch", struct{}{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestVerify(t *testing.T) {
	body := []byte(`{"a":1}`)
	assert.True(t, Verify(body, sign(body, "k"), "k"))
	assert.False(t, Verify(body, sign(body, "k"), "other"))
	assert.False(t, Verify([]byte(`{"a":2}`), sign(body, "k"), "k"))
}

func TestRequireSignature(t *testing.T) {
	body := []byte(`{"event_id":"evt-1","status":"cancelled"}`)
	var seen []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		secret string
		sig    string
		want   int
	}{
		{name: "valid", secret: "k", sig: sign(body, "k"), want: http.StatusOK},
		{name: "wrong secret", secret: "k", sig: sign(body, "other"), want: http.StatusUnauthorized},
		{name: "missing", secret: "k", want: http.StatusUnauthorized},
		{name: "disabled", secret: "", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/webhooks/calendar-sync", bytes.NewReader(body))
			if tt.sig != "" {
				req.Header.Set("X-Webhook-Signature", tt.sig)
			}
			rec := httptest.NewRecorder()
			RequireSignature(tt.secret)(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, body, seen)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}
