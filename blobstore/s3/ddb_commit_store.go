package s3

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/indexlib/blobstore"
)

// DDBCommitStore implements blobstore.BlobStore backed by S3 with DynamoDB
// conditional writes guarding exclusive creates.
//
// S3 conditional writes are not available on every S3-compatible backend.
// The commit store claims the blob name in DynamoDB first and only then
// writes the object, so two writers publishing the same version file are
// serialized by the table:
//   - PutIfAbsent of a guarded name inserts (base_uri, blob_name) with
//     attribute_not_exists; a failed condition maps to blobstore.ErrExists
//   - the object is written to S3 after the claim succeeded
//   - Delete of a guarded name removes the object and the claim
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 prefix/path
//   - Sort key: blob_name (string) - the guarded blob name
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name indexlib-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=blob_name,AttributeType=S \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=blob_name,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	s3Store   *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
	guarded   func(name string) bool
}

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DDBOption configures a DDBCommitStore.
type DDBOption func(*DDBCommitStore)

// WithGuardedNames replaces the predicate selecting which blob names are
// claimed through DynamoDB. The default guards version files.
func WithGuardedNames(fn func(name string) bool) DDBOption {
	return func(s *DDBCommitStore) {
		s.guarded = fn
	}
}

// NewDDBCommitStore creates a new S3+DynamoDB commit store.
// The baseURI should be "s3://bucket/prefix" format used as partition key.
func NewDDBCommitStore(s3Store *Store, ddbClient DDBClient, tableName, baseURI string, optFns ...DDBOption) *DDBCommitStore {
	s := &DDBCommitStore{
		s3Store:   s3Store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
		guarded:   isVersionFile,
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func isVersionFile(name string) bool {
	return strings.HasPrefix(path.Base(name), "version.")
}

// Open opens a blob for reading.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return s.s3Store.Open(ctx, name)
}

// Create creates a writable blob.
func (s *DDBCommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return s.s3Store.Create(ctx, name)
}

// Put writes a blob.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	return s.s3Store.Put(ctx, name, data)
}

// PutIfAbsent claims guarded names in DynamoDB before writing them to S3.
func (s *DDBCommitStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	if !s.guarded(name) {
		return s.s3Store.PutIfAbsent(ctx, name, data)
	}

	_, err := s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":  &types.AttributeValueMemberS{Value: s.baseURI},
			"blob_name": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(blob_name)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return &fs.PathError{Op: "put-if-absent", Path: name, Err: blobstore.ErrExists}
		}
		return fmt.Errorf("failed to claim %s in DynamoDB: %w", name, err)
	}

	if err := s.s3Store.Put(ctx, name, data); err != nil {
		// Release the claim so a retry of the same name is possible.
		_ = s.deleteClaim(ctx, name)
		return err
	}
	return nil
}

// Delete deletes a blob and, for guarded names, its claim.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if err := s.s3Store.Delete(ctx, name); err != nil {
		return err
	}
	if s.guarded(name) {
		return s.deleteClaim(ctx, name)
	}
	return nil
}

// List lists blobs with prefix.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.s3Store.List(ctx, prefix)
}

// Claimed reports whether name is claimed in DynamoDB.
func (s *DDBCommitStore) Claimed(ctx context.Context, name string) (bool, error) {
	resp, err := s.ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.claimKey(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	return len(resp.Item) > 0, nil
}

func (s *DDBCommitStore) deleteClaim(ctx context.Context, name string) error {
	_, err := s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.claimKey(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete claim %s: %w", name, err)
	}
	return nil
}

func (s *DDBCommitStore) claimKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"base_uri":  &types.AttributeValueMemberS{Value: s.baseURI},
		"blob_name": &types.AttributeValueMemberS{Value: name},
	}
}
