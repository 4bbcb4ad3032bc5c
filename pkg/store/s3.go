// Package store persists published artifact bodies in S3-compatible object
// storage and serves them back for downstream synthesis.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var errForeignLink = errors.New("link does not belong to this store")

// ContentStore is the object-storage contract the publisher and pipeline
// depend on.
type ContentStore interface {
	// Put stores body under key and returns the public link to it.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	// Get fetches the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// PublicHost is the host under which stored objects are reachable.
	PublicHost() string
}

// S3Config carries the connection settings for an S3-compatible endpoint.
type S3Config struct {
	// Endpoint is the API endpoint URL, e.g. "https://us-southeast-1.linodeobjects.com".
	Endpoint string
	// EndpointDomain is the bare domain public links are built from, e.g.
	// "us-southeast-1.linodeobjects.com".
	EndpointDomain string
	Region         string
	Key            string
	Secret         string
	Bucket         string
	// UsePathStyle forces path-style addressing, needed by some
	// S3-compatible providers and by test servers.
	UsePathStyle bool
}

// S3Store stores objects in a single bucket of an S3-compatible service.
type S3Store struct {
	client         *s3.Client
	bucket         string
	endpointDomain string
}

// NewS3Store builds a store for the configured bucket.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:         client,
		bucket:         cfg.Bucket,
		endpointDomain: cfg.EndpointDomain,
	}, nil
}

// Put uploads body under key with public-read access and returns the public
// link.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("https://%s/%s", s.PublicHost(), key), nil
}

// Get downloads the object stored under key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// PublicHost returns the virtual-hosted domain for this bucket.
func (s *S3Store) PublicHost() string {
	return s.bucket + "." + s.endpointDomain
}

// KeyFromLink extracts the object key from a public link produced by a
// store's Put.
func KeyFromLink(link, publicHost string) (string, error) {
	prefix := "https://" + publicHost + "/"
	if !strings.HasPrefix(link, prefix) {
		return "", fmt.Errorf("%w: %s", errForeignLink, link)
	}
	key := strings.TrimPrefix(link, prefix)
	if key == "" {
		return "", fmt.Errorf("%w: %s", errForeignLink, link)
	}
	return key, nil
}
