package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domainlistings "homestay/internal/domain/listings"
)

var ErrObjectKeyRequired = errors.New("s3: object key is required")

// Linker turns cover picture keys into URLs clients can fetch. With a positive
// expiry it presigns GET requests, otherwise it returns plain object URLs for
// publicly readable buckets.
type Linker struct {
	bucket        string
	publicBaseURL string
	expiry        time.Duration
	client        *minio.Client
	logger        *slog.Logger
}

type Options struct {
	Endpoint string
	// PublicEndpoint is the host clients reach; URLs are signed against it.
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	Expiry         time.Duration
}

func NewLinker(opts Options, logger *slog.Logger) (*Linker, error) {
	endpoint := strings.TrimSpace(opts.PublicEndpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(opts.Endpoint)
	}
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	// A fixed region keeps presigning local: no bucket location lookup.
	minioClient, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	return &Linker{
		bucket:        bucket,
		publicBaseURL: scheme + "://" + parseEndpoint(endpoint),
		expiry:        opts.Expiry,
		client:        minioClient,
		logger:        logger,
	}, nil
}

func (l *Linker) Link(ctx context.Context, picture domainlistings.Picture) (string, error) {
	if picture.URL != "" {
		return picture.URL, nil
	}
	key := strings.Trim(strings.TrimSpace(picture.Key), "/")
	if key == "" {
		return "", ErrObjectKeyRequired
	}
	if l.expiry <= 0 {
		return l.objectURL(key), nil
	}
	params := url.Values{}
	if picture.ContentType != "" {
		params.Set("response-content-type", picture.ContentType)
	}
	signed, err := l.client.PresignedGetObject(ctx, l.bucket, key, l.expiry, params)
	if err != nil {
		return "", fmt.Errorf("s3: presign %s: %w", key, err)
	}
	if l.logger != nil {
		l.logger.DebugContext(ctx, "s3 cover presigned", "bucket", l.bucket, "key", key)
	}
	return signed.String(), nil
}

func (l *Linker) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(l.publicBaseURL, "/"), l.bucket, key)
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}
