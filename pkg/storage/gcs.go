package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// GCS downloads from Google Cloud Storage using Application Default Credentials.
type GCS struct {
	client *storage.Client
}

func NewGCS(ctx context.Context) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs client: %w", err)
	}
	return &GCS{client: client}, nil
}

func (g *GCS) Download(ctx context.Context, bucket, object, dst string) error {
	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("storage: gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	err = writeFile(dst, func(f *os.File) error {
		_, err := io.Copy(f, r)
		return err
	})
	if err != nil {
		return fmt.Errorf("storage: read gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

func (g *GCS) Close() error { return g.client.Close() }
