package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// Azure downloads from Azure Blob Storage; the bucket name is the container.
type Azure struct {
	client *azblob.Client
}

func NewAzure(connectionString string) (*Azure, error) {
	if connectionString == "" {
		return nil, errors.New("storage: azure connection string is empty")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: azure client: %w", err)
	}
	return &Azure{client: client}, nil
}

func (a *Azure) Download(ctx context.Context, container, blob, dst string) error {
	err := writeFile(dst, func(f *os.File) error {
		_, err := a.client.DownloadFile(ctx, container, blob, f, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("storage: azure %s/%s: %w", container, blob, err)
	}
	return nil
}

func (a *Azure) Close() error { return nil }
