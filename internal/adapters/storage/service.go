// Package storage writes archived documents to S3-compatible object storage.
package storage

import "context"

// Object is one document to store. Metadata becomes x-amz-meta-* headers.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
	Metadata    map[string]string
}

type ObjectStore interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket string, obj Object) error
}

type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}
