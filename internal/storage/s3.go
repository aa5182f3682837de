package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/abduss/mediahost/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Adapter implements Adapter for the S3-compatible edge storage provider.
type S3Adapter struct {
	cfg config.S3Config

	once      sync.Once
	client    *s3.Client
	presigner *s3.PresignClient
	clientErr error
}

// NewS3Adapter constructs an adapter. No client is built until first use.
func NewS3Adapter(cfg config.S3Config) *S3Adapter {
	return &S3Adapter{cfg: cfg}
}

func (a *S3Adapter) Provider() Provider { return ProviderS3 }

func (a *S3Adapter) IsConfigured() bool {
	return a.cfg.Endpoint != "" && a.cfg.AccessKeyID != "" && a.cfg.SecretAccessKey != "" && a.cfg.Bucket != ""
}

func (a *S3Adapter) ObjectURL(objectName string) string {
	if a.cfg.PublicBaseURL != "" {
		return joinObjectURL(a.cfg.PublicBaseURL, objectName)
	}
	return joinObjectURL(joinObjectURL(a.cfg.Endpoint, a.cfg.Bucket), objectName)
}

func (a *S3Adapter) CreatePresignedUpload(ctx context.Context, in PresignInput) (PresignedUpload, error) {
	if err := a.init(); err != nil {
		return PresignedUpload{}, err
	}

	issuedAt := time.Now()
	input := &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(in.ObjectName),
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}

	req, err := a.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(in.ExpiresIn))
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put %q: %w", in.ObjectName, err)
	}

	return PresignedUpload{
		URL:       req.URL,
		ObjectURL: a.ObjectURL(in.ObjectName),
		ExpiresAt: issuedAt.Add(in.ExpiresIn),
	}, nil
}

func (a *S3Adapter) UploadObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if err := a.init(); err != nil {
		return "", err
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.cfg.Bucket),
		Key:           aws.String(objectName),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", objectName, err)
	}
	return a.ObjectURL(objectName), nil
}

func (a *S3Adapter) DownloadObject(ctx context.Context, objectName string) ([]byte, error) {
	if err := a.init(); err != nil {
		return nil, err
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
		}
		return nil, fmt.Errorf("get object %q: %w", objectName, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", objectName, err)
	}
	return data, nil
}

func (a *S3Adapter) DeleteObject(ctx context.Context, objectName string) error {
	if err := a.init(); err != nil {
		return err
	}

	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(objectName),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("delete object %q: %w", objectName, err)
	}
	return nil
}

func (a *S3Adapter) init() error {
	if !a.IsConfigured() {
		return ErrProviderNotConfigured
	}
	a.once.Do(func() {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(a.cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				a.cfg.AccessKeyID,
				a.cfg.SecretAccessKey,
				"",
			)),
		)
		if err != nil {
			a.clientErr = fmt.Errorf("load s3 config: %w", err)
			return
		}

		a.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(a.cfg.Endpoint)
			o.UsePathStyle = true
		})
		a.presigner = s3.NewPresignClient(a.client)
	})
	return a.clientErr
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
