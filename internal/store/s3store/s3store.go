// Package s3store is the S3-backed object-store adapter (spec §4.5, §9
// "implementations... {in-memory, filesystem, s3-like}"), grounded on
// scottshuffler-go-cache-plugin's S3-backed cache server
// (lib/revproxy/revproxy.go), which is the one pack example wiring a real
// object-store SDK into an HTTP cache proxy.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/camrail/dejafoo/internal/store"
)

// Client is the subset of *s3.Client this package needs, narrowed so tests
// can supply a fake.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store stores each key as one object in an S3 bucket, optionally under a
// key prefix.
type Store struct {
	client Client
	bucket string
	prefix string
}

// New returns a Store writing to bucket, with every key namespaced under
// prefix (no intervening slash is added if prefix is already suffixed with
// one).
func New(client Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	if strings.HasSuffix(s.prefix, "/") {
		return s.prefix + key
	}
	return s.prefix + "/" + key
}

func (s *Store) Put(ctx context.Context, key string, e *store.Entry) error {
	blob, err := store.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (s *Store) Get(ctx context.Context, key string) (*store.Entry, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return store.Unmarshal(data)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	return err
}
