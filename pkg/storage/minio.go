package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIO implements FileStore on a MinIO (or other S3-compatible) server
// through the minio-go client.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// MinIOOptions configures a MinIO connection.
type MinIOOptions struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// NewMinIO connects to a MinIO server. The bucket must already exist.
func NewMinIO(opts MinIOOptions) (*MinIO, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("storage: minio endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}
	return NewMinIOFromClient(client, opts.Bucket, opts.Prefix), nil
}

// NewMinIOFromClient wraps an existing minio client.
func NewMinIOFromClient(client *minio.Client, bucket, prefix string) *MinIO {
	return &MinIO{client: client, bucket: bucket, prefix: prefix}
}

func (m *MinIO) key(name string) string {
	return path.Join(m.prefix, name)
}

// Read opens the named object. Missing objects wrap os.ErrNotExist.
func (m *MinIO) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	key := m.key(name)
	// GetObject is lazy; Stat first so a missing key fails here.
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMinIONotFound(err) {
			return nil, fmt.Errorf("storage: read %s: %w", name, os.ErrNotExist)
		}
		return nil, err
	}
	return m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
}

// Write streams to PutObject through a pipe; the object is published when
// Close returns nil.
func (m *MinIO) Write(ctx context.Context, name string) (io.WriteCloser, error) {
	key := m.key(name)
	pr, pw := io.Pipe()
	w := &pipeWriter{pw: pw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		_, w.uploadErr = m.client.PutObject(ctx, m.bucket, key, pr, -1, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		pr.CloseWithError(w.uploadErr)
	}()
	return w, nil
}

// Delete removes the named object; missing objects are not an error.
func (m *MinIO) Delete(ctx context.Context, name string) error {
	err := m.client.RemoveObject(ctx, m.bucket, m.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isMinIONotFound(err) {
		return err
	}
	return nil
}

// Exists reports whether the named object exists.
func (m *MinIO) Exists(ctx context.Context, name string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, m.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isMinIONotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isMinIONotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

var _ FileStore = (*MinIO)(nil)
