// Package obs manages the object storage buckets trackers write into.
package obs

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"otcextensions/cli/pkg/config"
)

// Client is an S3-compatible object storage client
type Client struct {
	s3     *s3.Client
	region string
}

// New builds a client for the object storage of the configured region
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.OBS.AccessKey == "" || cfg.OBS.SecretKey == "" {
		return nil, fmt.Errorf("object storage credentials are required (set OS_ACCESS_KEY and OS_SECRET_KEY)")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.OBS.AccessKey, cfg.OBS.SecretKey, ""),
		),
	}
	if cfg.Insecure {
		opts = append(opts, awsconfig.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	endpoint := cfg.OBSEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Client{s3: client, region: cfg.Region}, nil
}

// CreateBucket creates a bucket in the client region
func (c *Client) CreateBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	log.Debug().Str("bucket", name).Msg("Bucket created")
	return nil
}

// DeleteBucket deletes an empty bucket. A missing bucket is not an error.
func (c *Client) DeleteBucket(ctx context.Context, name string) error {
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)})
	if err != nil {
		if IsNoSuchBucket(err) {
			log.Debug().Str("bucket", name).Msg("Bucket already gone")
			return nil
		}
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	log.Debug().Str("bucket", name).Msg("Bucket deleted")
	return nil
}

// ListBuckets returns the names of the buckets owned by the account
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := c.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// IsNoSuchBucket checks if an error reports a missing bucket
func IsNoSuchBucket(err error) bool {
	var noSuch *types.NoSuchBucket
	if errors.As(err, &noSuch) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}
