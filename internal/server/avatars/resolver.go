// Package avatars turns stored avatar references into URLs a browser can
// load. References of the form s3://key are presigned against the
// configured bucket; anything else is returned as is.
package avatars

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
)

const (
	s3Scheme      = "s3://"
	presignExpiry = 15 * time.Minute
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type Resolver struct {
	config *sc.Config

	mu     sync.Mutex
	client *s3.PresignClient
}

func NewResolver(config *sc.Config) *Resolver {
	return &Resolver{config: config}
}

// Enabled reports whether a bucket is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && r.config != nil && r.config.S3Bucket != ""
}

func (r *Resolver) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(r.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			r.config.S3RootUser,
			r.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	r.client = newS3PresignClient(client)
	return r.client, nil
}

// Resolve returns a URL for ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, s3Scheme)
	if !ok || key == "" || !r.Enabled() {
		return ref, nil
	}

	presignClient, err := r.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := r.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
