package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/abduss/mediahost/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultObjectStoreTimeout = 5 * time.Second

// minioEndpoint returns the host:port the client dials. Public object URLs
// are built from the same value so they point where uploads landed.
func minioEndpoint(raw string) string {
	if !strings.Contains(raw, ":") {
		// default to MinIO API port when not supplied explicitly
		return fmt.Sprintf("%s:9000", raw)
	}
	return raw
}

// NewMinIOClient establishes a MinIO client using the provided configuration.
func NewMinIOClient(cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(minioEndpoint(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return client, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultObjectStoreTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}

	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}

	return nil
}

// MinIOAdapter implements Adapter for the enterprise object storage provider.
// The client is built on first use; building it performs no network calls.
type MinIOAdapter struct {
	cfg config.MinIOConfig

	once      sync.Once
	client    *minio.Client
	clientErr error
}

// NewMinIOAdapter constructs an adapter.
func NewMinIOAdapter(cfg config.MinIOConfig) *MinIOAdapter {
	return &MinIOAdapter{cfg: cfg}
}

func (a *MinIOAdapter) Provider() Provider { return ProviderMinIO }

// EnsureBucket creates the configured bucket when it does not exist yet.
func (a *MinIOAdapter) EnsureBucket(ctx context.Context) error {
	client, err := a.getClient()
	if err != nil {
		return err
	}
	return ensureBucket(ctx, client, a.cfg.Bucket, a.cfg.Region)
}

func (a *MinIOAdapter) IsConfigured() bool {
	return a.cfg.Endpoint != "" && a.cfg.AccessKeyID != "" && a.cfg.SecretAccessKey != "" && a.cfg.Bucket != ""
}

func (a *MinIOAdapter) ObjectURL(objectName string) string {
	if a.cfg.PublicBaseURL != "" {
		return joinObjectURL(a.cfg.PublicBaseURL, objectName)
	}
	scheme := "http"
	if a.cfg.UseSSL {
		scheme = "https"
	}
	return joinObjectURL(fmt.Sprintf("%s://%s/%s", scheme, minioEndpoint(a.cfg.Endpoint), a.cfg.Bucket), objectName)
}

func (a *MinIOAdapter) CreatePresignedUpload(ctx context.Context, in PresignInput) (PresignedUpload, error) {
	client, err := a.getClient()
	if err != nil {
		return PresignedUpload{}, err
	}

	issuedAt := time.Now()
	u, err := client.PresignedPutObject(ctx, a.cfg.Bucket, in.ObjectName, in.ExpiresIn)
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put %q: %w", in.ObjectName, err)
	}

	return PresignedUpload{
		URL:       u.String(),
		ObjectURL: a.ObjectURL(in.ObjectName),
		ExpiresAt: issuedAt.Add(in.ExpiresIn),
	}, nil
}

func (a *MinIOAdapter) UploadObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	client, err := a.getClient()
	if err != nil {
		return "", err
	}

	_, err = client.PutObject(ctx, a.cfg.Bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", objectName, err)
	}
	return a.ObjectURL(objectName), nil
}

func (a *MinIOAdapter) DownloadObject(ctx context.Context, objectName string) ([]byte, error) {
	client, err := a.getClient()
	if err != nil {
		return nil, err
	}

	object, err := client.GetObject(ctx, a.cfg.Bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, a.translate(objectName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, a.translate(objectName, err)
	}
	return data, nil
}

func (a *MinIOAdapter) DeleteObject(ctx context.Context, objectName string) error {
	client, err := a.getClient()
	if err != nil {
		return err
	}

	if err := client.RemoveObject(ctx, a.cfg.Bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		if isMinIONotFound(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", objectName, err)
	}
	return nil
}

func (a *MinIOAdapter) getClient() (*minio.Client, error) {
	if !a.IsConfigured() {
		return nil, ErrProviderNotConfigured
	}
	a.once.Do(func() {
		a.client, a.clientErr = NewMinIOClient(a.cfg)
	})
	return a.client, a.clientErr
}

func (a *MinIOAdapter) translate(objectName string, err error) error {
	if isMinIONotFound(err) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	return fmt.Errorf("get object %q: %w", objectName, err)
}

func isMinIONotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
