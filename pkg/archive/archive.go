// Package archive copies certified artifacts and rendered reports to an
// external object store. Archiving is an external collaborator: the
// pipeline holds no persistent state itself and never depends on the
// archive for correctness.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Client represents the capabilities the certification service expects.
type Client interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Close() error
}

// New creates an archive client based on the given configuration. The
// "none" provider disables archiving.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "none":
		return noopClient{}, nil
	case "minio", "s3":
		return newMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported archive provider: %s", cfg.Provider)
	}
}

type noopClient struct{}

func (noopClient) Put(context.Context, string, []byte, string, map[string]string) error { return nil }
func (noopClient) Close() error                                                        { return nil }

type minioClient struct {
	client *minio.Client
	bucket string
}

func newMinioClient(cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &minioClient{client: cl, bucket: cfg.Bucket}, nil
}

func (m *minioClient) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	return err
}

func (m *minioClient) Close() error {
	return nil
}
