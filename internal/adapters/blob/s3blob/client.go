// Package s3blob reads and writes objects in S3-compatible storage such as
// AWS S3 or MinIO.
package s3blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Scheme prefixes object locations, as in s3://bucket/key.
const Scheme = "s3://"

// ClientConfig holds the configuration for connecting to an S3-compatible
// object store.
type ClientConfig struct {
	// Endpoint is the S3-compatible endpoint, e.g. "localhost:9000". Leave
	// empty for AWS S3.
	Endpoint string

	Region string
	Bucket string

	// AccessKey and SecretKey select static credentials. When both are
	// empty the default AWS credential chain is used.
	AccessKey string
	SecretKey string

	// UseSSL picks https for an Endpoint given without a scheme.
	UseSSL bool

	// ForcePathStyle puts the bucket in the path instead of the host.
	ForcePathStyle bool
}

// Client wraps the AWS S3 SDK client and the bucket it works on.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New creates a client for cfg.Bucket.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

// S3 returns the underlying SDK client.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// IsLocation reports whether loc uses the s3:// scheme.
func IsLocation(loc string) bool {
	return strings.HasPrefix(loc, Scheme)
}

// ParseLocation splits s3://bucket/key into bucket and key.
func ParseLocation(loc string) (bucket, key string, err error) {
	if !IsLocation(loc) {
		return "", "", fmt.Errorf("s3blob: %q: %w", loc, ErrInvalidLocation)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(loc, Scheme), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3blob: %q: %w", loc, ErrInvalidLocation)
	}
	return bucket, key, nil
}

// normaliseEndpoint prepends https:// or http:// to an endpoint without a
// scheme.
func normaliseEndpoint(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
