package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/indexlib/blobstore"
	miniostore "github.com/hupe1980/indexlib/blobstore/minio"
	s3store "github.com/hupe1980/indexlib/blobstore/s3"
	"github.com/hupe1980/indexlib/directory"
)

type location struct {
	scheme   string
	endpoint string
	bucket   string
	prefix   string
	path     string
}

func (l location) String() string {
	switch l.scheme {
	case "s3":
		return "s3://" + l.bucket + "/" + l.prefix
	case "minio":
		return "minio://" + l.endpoint + "/" + l.bucket + "/" + l.prefix
	default:
		return l.path
	}
}

// parseLocation splits a --store value.
func parseLocation(s string) (location, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		if s == "" {
			return location{}, fmt.Errorf("empty store location")
		}
		return location{scheme: "file", path: s}, nil
	}

	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 3)
	switch scheme {
	case "file":
		return location{scheme: "file", path: rest}, nil
	case "s3":
		if parts[0] == "" {
			return location{}, fmt.Errorf("store %q: missing bucket", s)
		}
		return location{scheme: "s3", bucket: parts[0], prefix: strings.Join(parts[1:], "/")}, nil
	case "minio":
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return location{}, fmt.Errorf("store %q: want minio://endpoint/bucket[/prefix]", s)
		}
		l := location{scheme: "minio", endpoint: parts[0], bucket: parts[1]}
		if len(parts) == 3 {
			l.prefix = parts[2]
		}
		return l, nil
	default:
		return location{}, fmt.Errorf("store %q: unsupported scheme %q", s, scheme)
	}
}

// openRoot returns the global root directory of the table at opts.Store.
func openRoot(ctx context.Context) (*directory.Directory, error) {
	loc, err := parseLocation(opts.Store)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, loc)
	if err != nil {
		return nil, err
	}
	return directory.New(store, "", directory.WithLogger(logger().Logger)), nil
}

func openStore(ctx context.Context, loc location) (blobstore.BlobStore, error) {
	switch loc.scheme {
	case "s3":
		return openS3(ctx, loc)
	case "minio":
		client, err := minio.New(loc.endpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
			Secure: !opts.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, loc.bucket, loc.prefix), nil
	default:
		return blobstore.NewLocalStore(loc.path), nil
	}
}

func openS3(ctx context.Context, loc location) (blobstore.BlobStore, error) {
	var cfgOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		cfgOpts = append(cfgOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	store := s3store.NewStore(client, loc.bucket, loc.prefix)
	if opts.DDBTable == "" {
		return store, nil
	}
	return s3store.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), opts.DDBTable, loc.String()), nil
}
