package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 client built by [Open]. Empty credentials
// fall back to AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY.
type S3Options struct {
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	SessionToken    string `yaml:"session_token,omitempty" json:"session_token,omitempty"`
	// UsePathStyle is needed by most self-hosted stores such as MinIO.
	UsePathStyle bool `yaml:"use_path_style,omitempty" json:"use_path_style,omitempty"`
}

// Open returns the FileStore for uri. "s3://bucket/prefix" opens an S3
// store; anything else is treated as a local directory.
func Open(_ context.Context, uri string, opts S3Options) (FileStore, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return NewLocal(uri)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("storage: parse %q: %w", uri, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("storage: %q has no bucket", uri)
	}
	return NewS3(NewS3Client(opts), u.Host, strings.Trim(u.Path, "/")), nil
}

// NewS3Client builds an [s3.Client] from opts.
func NewS3Client(opts S3Options) *s3.Client {
	region := opts.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	akid, secret, token := opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken
	if akid == "" {
		akid = os.Getenv("AWS_ACCESS_KEY_ID")
		secret = os.Getenv("AWS_SECRET_ACCESS_KEY")
		token = os.Getenv("AWS_SESSION_TOKEN")
	}

	o := s3.Options{
		Region:       region,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	if akid != "" {
		o.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     akid,
				SecretAccessKey: secret,
				SessionToken:    token,
				Source:          "sherpa",
			}, nil
		})
	}
	return s3.New(o)
}
