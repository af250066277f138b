package docstore

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/devwebtn/facturation/internal/core"
)

// GCSStore stores documents in a Google Cloud Storage bucket. Credentials
// come from ADC, or from GCS_CREDENTIALS_JSON when set explicitly.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var client *storage.Client
	var err error
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, err
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		return nil, err
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", core.External("gcs write", err)
	}
	if err := wc.Close(); err != nil {
		return "", core.External("gcs close", err)
	}
	return name, nil
}

func (s *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(ref).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, core.NotFound("document")
		}
		return nil, core.External("gcs open", err)
	}
	return rc, nil
}

func (s *GCSStore) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(ref).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, core.External("gcs attrs", err)
}

func (s *GCSStore) Close() error { return s.client.Close() }
