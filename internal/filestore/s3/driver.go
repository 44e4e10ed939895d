// Package s3 provides an AWS S3 implementation of filestore.Store. It also
// serves S3-compatible services reached through an explicit endpoint.
package s3

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/filestore"
)

// DefaultRegion is used when the configuration names none.
const DefaultRegion = "us-east-1"

// Driver is an S3 implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *awss3.Client
}

var _ filestore.Store = (*Driver)(nil)

// New builds an S3 client from cfg and pings it. Static credentials are used
// when AccessKey is set; otherwise the SDK's default chain applies
// (environment, shared config files, then the instance role). A non-empty
// Endpoint switches to path-style addressing.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if cfg.Provider != filestore.ProviderS3 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported storage provider %q", cfg.Provider)
	}

	awsCfg, err := loadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	d := &Driver{client: awss3.NewFromConfig(awsCfg, endpointOptions(cfg))}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// loadConfig resolves region and credentials. Explicit settings in cfg win
// over the environment; DefaultRegion applies when neither names a region.
func loadConfig(ctx context.Context, cfg *filestore.Config) (aws.Config, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, errs.Wrap(errs.ErrKindInvalidInput, "cannot load AWS configuration", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = DefaultRegion
	}
	return awsCfg, nil
}

func endpointOptions(cfg *filestore.Config) func(*awss3.Options) {
	return func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			o.UsePathStyle = true
		}
	}
}

// endpointURL turns a host:port endpoint into a URL. Endpoints that already
// carry a scheme are kept.
func endpointURL(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	u := url.URL{Scheme: "http", Host: endpoint}
	if useSSL {
		u.Scheme = "https"
	}
	return u.String()
}

// Ping verifies the service is reachable and the credentials are accepted.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx, &awss3.ListBucketsInput{MaxBuckets: aws.Int32(1)})
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op: the SDK client holds no resources that need releasing.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	out, err := d.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to get object "+bucket+"/"+key)
	}

	return &object{
		ReadCloser: out.Body,
		info:       objectInfo(key, out.ContentLength, out.ContentType, out.ETag, out.LastModified),
	}, nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	in := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}

	out, err := d.client.PutObject(ctx, in)
	if err != nil {
		return nil, mapError(err, "failed to put object "+bucket+"/"+key)
	}

	now := time.Now().UTC()
	return objectInfo(key, in.ContentLength, in.ContentType, out.ETag, &now), nil
}

func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	out, err := d.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	return objectInfo(key, out.ContentLength, out.ContentType, out.ETag, out.LastModified), nil
}

func objectInfo(key string, size *int64, contentType, etag *string, modified *time.Time) *filestore.ObjectInfo {
	return &filestore.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(size),
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), `"`),
		LastModified: aws.ToTime(modified),
	}
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}
