// Package blob stores image payloads in object storage. Uploads are keyed by
// page and section id, which is how the save side channel pairs a pending
// file with its owning section regardless of reordering in between.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: client, bucket: bucket}, nil
}

// ObjectKey derives the storage key for a section's image. The section id in
// the key is what keeps the payload paired with its section across reorders.
func ObjectKey(pageID, sectionID, filename string) string {
	if filename == "" {
		filename = "image"
	}
	return path.Join(pageID, sectionID, filename)
}

// PutImage uploads an image payload and returns its object key.
func (s *Store) PutImage(ctx context.Context, pageID, sectionID, filename, contentType string, data []byte) (string, error) {
	key := ObjectKey(pageID, sectionID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put image %s: %w", key, err)
	}
	return key, nil
}

// ImageURL returns a presigned read URL for an object key.
func (s *Store) ImageURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes an object. Missing objects are not an error: a page delete
// retries blob cleanup without caring whether a prior attempt got there
// first.
func (s *Store) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
