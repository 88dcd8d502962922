// Package objectstore uploads the dataset CSV to S3 or Google Cloud Storage.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

const contentTypeCSV = "text/csv"

// Putter stores one object.
type Putter interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Close() error
}

// Target is a parsed upload URL.
type Target struct {
	Scheme string
	Bucket string
	Key    string
}

func (t Target) String() string {
	return t.Scheme + "://" + t.Bucket + "/" + t.Key
}

// ParseURL parses s3://bucket/key or gs://bucket/key.
func ParseURL(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse upload url: %w", err)
	}
	if u.Scheme != "s3" && u.Scheme != "gs" {
		return Target{}, fmt.Errorf("upload url %q: scheme must be s3 or gs", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return Target{}, fmt.Errorf("upload url %q: want <scheme>://<bucket>/<key>", raw)
	}
	return Target{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
}

// Uploader encodes the records as CSV and stores them at the target.
// It implements pipeline.BatchLoader.
type Uploader struct {
	putter Putter
	target Target
	logger *slog.Logger
}

// New returns an Uploader for rawURL, backed by S3 (in awsRegion) or GCS.
func New(ctx context.Context, rawURL, awsRegion string, logger *slog.Logger) (*Uploader, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	var p Putter
	switch target.Scheme {
	case "s3":
		p, err = NewS3(awsRegion)
	case "gs":
		p, err = NewGCS(ctx)
	}
	if err != nil {
		return nil, err
	}
	return NewUploader(p, target, logger), nil
}

// NewUploader wraps an existing Putter.
func NewUploader(p Putter, target Target, logger *slog.Logger) *Uploader {
	return &Uploader{putter: p, target: target, logger: logger}
}

// LoadBatch uploads the dataset as a single CSV object.
func (u *Uploader) LoadBatch(ctx context.Context, records []domain.Record) error {
	var buf bytes.Buffer
	if err := csvfile.Encode(&buf, records); err != nil {
		return err
	}
	if err := u.putter.Put(ctx, u.target.Bucket, u.target.Key, buf.Bytes(), contentTypeCSV); err != nil {
		return fmt.Errorf("upload %s: %w", u.target, err)
	}
	u.logger.Info("dataset uploaded", "url", u.target.String(), "bytes", buf.Len(), "records", len(records))
	return nil
}

// Close releases the backing client.
func (u *Uploader) Close() error {
	return u.putter.Close()
}
