package objectstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCS uploads objects to Google Cloud Storage.
type GCS struct {
	client *storage.Client
}

// NewGCS creates a GCS putter using application default credentials.
func NewGCS(ctx context.Context) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Put implements Putter.
func (g *GCS) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object: %w", err)
	}
	return nil
}

// Close implements Putter.
func (g *GCS) Close() error {
	return g.client.Close()
}
