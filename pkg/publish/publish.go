// Package publish uploads a finished output file to object storage.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ObjectStore is the subset of an S3 API the publisher needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
}

// Publisher copies output files into a bucket under a per-run prefix.
type Publisher struct {
	store  ObjectStore
	bucket string
	prefix string
}

// New creates a publisher writing to bucket under prefix.
func New(store ObjectStore, bucket, prefix string) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Publisher{store: store, bucket: bucket, prefix: prefix}, nil
}

// NewRunID returns a fresh identifier for one harvest run.
func NewRunID() string {
	return uuid.NewString()
}

// ObjectKey returns prefix/runID/filename with empty segments dropped.
func ObjectKey(prefix, runID, filename string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{strings.Trim(prefix, "/"), runID, filename} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return path.Join(parts...)
}

// Publish uploads the file at localPath and returns its s3:// location.
func (p *Publisher) Publish(ctx context.Context, localPath, runID string) (string, error) {
	start := time.Now()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	if err := p.store.EnsureBucket(ctx, p.bucket); err != nil {
		return "", err
	}

	key := ObjectKey(p.prefix, runID, filepath.Base(localPath))
	if err := p.store.PutObject(ctx, p.bucket, key, f, info.Size(), contentType(localPath)); err != nil {
		return "", err
	}

	location := fmt.Sprintf("s3://%s/%s", p.bucket, key)
	log.Info().
		Str("location", location).
		Int64("bytes", info.Size()).
		Dur("duration", time.Since(start)).
		Msg("Output published")

	return location, nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
