package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"diabetesml/pkg/config"
	"diabetesml/pkg/logging"
)

// Downloader copies one object out of a bucket into a local file.
type Downloader interface {
	Download(ctx context.Context, bucket, object, dst string) error
	Close() error
}

// New returns the downloader for the configured provider.
func New(ctx context.Context, cfg config.DataIngestion) (Downloader, error) {
	switch cfg.Provider {
	case config.ProviderGCS:
		return NewGCS(ctx)
	case config.ProviderAzure:
		return NewAzure(os.Getenv(cfg.AzureConnectionEnv))
	case config.ProviderFile:
		return File{}, nil
	}
	return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
}

// writeFile streams into a temporary file next to dst and renames it into place,
// so a failed download never leaves a truncated dst behind.
func writeFile(dst string, fill func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// File treats a local directory as a bucket.
type File struct{}

func (File) Download(ctx context.Context, bucket, object, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(filepath.Join(bucket, object))
	if err != nil {
		return fmt.Errorf("storage: open %s/%s: %w", bucket, object, err)
	}
	defer src.Close()

	err = writeFile(dst, func(f *os.File) error {
		_, err := io.Copy(f, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("storage: copy %s/%s: %w", bucket, object, err)
	}
	logging.Log.WithField("dst", dst).Debug("Copied object from local bucket")
	return nil
}

func (File) Close() error { return nil }
