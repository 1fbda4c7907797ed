// Package archive stores raw uploaded files in S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrBucketMissing is returned by Ping when the bucket no longer exists.
var ErrBucketMissing = errors.New("archive bucket does not exist")

// Config holds object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStore is the subset of *minio.Client the archive needs.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ ObjectStore = (*minio.Client)(nil)

// Client archives uploads into a single bucket.
type Client struct {
	store  ObjectStore
	bucket string
	now    func() time.Time
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return NewWithStore(ctx, mc, cfg.Bucket)
}

// NewWithStore builds a Client on top of an existing ObjectStore and makes
// sure the bucket exists.
func NewWithStore(ctx context.Context, store ObjectStore, bucket string) (*Client, error) {
	c := &Client{
		store:  store,
		bucket: bucket,
		now:    time.Now,
	}

	if err := c.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}
	return c, nil
}

func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.store.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.store.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Store writes body under a key derived from uploadID and the current month.
func (c *Client) Store(ctx context.Context, uploadID string, body []byte) (string, error) {
	key := ObjectKey(uploadID, c.now())

	_, err := c.store.PutObject(ctx, c.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return key, nil
}

// Ping checks that the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	exists, err := c.store.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return ErrBucketMissing
	}
	return nil
}

// ObjectKey returns uploads/<yyyy>/<mm>/<uploadID>.csv in UTC.
func ObjectKey(uploadID string, at time.Time) string {
	return fmt.Sprintf("uploads/%s/%s.csv", at.UTC().Format("2006/01"), uploadID)
}
