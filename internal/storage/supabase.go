package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Storage interface {
	Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Delete(ctx context.Context, bucket, path string) error
	GetPublicURL(bucket, path string) string
}

type SupabaseStorage struct {
	baseURL string
	http    *resty.Client
}

func NewSupabaseStorage(supabaseURL, serviceKey string) *SupabaseStorage {
	baseURL := strings.TrimRight(supabaseURL, "/") + "/storage/v1"
	return &SupabaseStorage{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(2 * time.Minute).
			SetAuthToken(serviceKey),
	}
}

func objectPath(bucket, path string) string {
	return fmt.Sprintf("/object/%s/%s", bucket, strings.TrimLeft(path, "/"))
}

// Upload stores data at bucket/path, replacing any existing object.
func (s *SupabaseStorage) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(objectPath(bucket, path))
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload failed (%d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *SupabaseStorage) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		Get(objectPath(bucket, path))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download failed (%d)", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, bucket, path string) error {
	resp, err := s.http.R().
		SetContext(ctx).
		Delete(objectPath(bucket, path))
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete failed (%d)", resp.StatusCode())
	}
	return nil
}

func (s *SupabaseStorage) GetPublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, bucket, strings.TrimLeft(path, "/"))
}

var _ Storage = (*SupabaseStorage)(nil)
