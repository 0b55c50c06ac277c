package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseStorage_RoundTrip(t *testing.T) {
	objects := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer service-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			objects[key], _ = io.ReadAll(r.Body)
			w.Write([]byte(`{"Key":"` + key + `"}`))
		case http.MethodGet:
			b, ok := objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(b)
		case http.MethodDelete:
			delete(objects, key)
		}
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL+"/", "service-key")
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "campaign-media", "t1/promo.png", strings.NewReader("png-bytes"), "image/png"))
	assert.Equal(t, []byte("png-bytes"), objects["campaign-media/t1/promo.png"])

	got, err := s.Download(ctx, "campaign-media", "/t1/promo.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))

	require.NoError(t, s.Delete(ctx, "campaign-media", "t1/promo.png"))
	_, err = s.Download(ctx, "campaign-media", "t1/promo.png")
	assert.Error(t, err)

	assert.Equal(t, srv.URL+"/storage/v1/object/public/campaign-media/t1/promo.png", s.GetPublicURL("campaign-media", "t1/promo.png"))
}

func TestSupabaseStorage_UploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte("too big"))
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "k")
	err := s.Upload(context.Background(), "b", "p", strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "413")
}
