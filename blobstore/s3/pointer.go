package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConcurrentModification is returned when another writer published a
// version concurrently.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// ErrNoVersions is returned when no index version has been published yet.
var ErrNoVersions = errors.New("s3: no published index version")

// DDBClient is the subset of the DynamoDB API the pointer store uses.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// PointerStore tracks the latest published index file per index name in
// DynamoDB. S3 holds the immutable index files; DynamoDB supplies the
// compare-and-swap semantics S3 lacks, so concurrent publishers cannot
// silently overwrite each other's pointer update.
//
// Table schema:
//   - Partition key: index_name (string)
//   - Sort key: version (number), monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name annforest-versions \
//	  --attribute-definitions AttributeName=index_name,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=index_name,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type PointerStore struct {
	client    DDBClient
	tableName string
}

// NewPointerStore creates a pointer store on the given DynamoDB table.
func NewPointerStore(client DDBClient, tableName string) *PointerStore {
	return &PointerStore{
		client:    client,
		tableName: tableName,
	}
}

// Publish records blobName as the next version of the named index. It
// fails with ErrConcurrentModification if another writer claimed the
// same version first.
func (p *PointerStore) Publish(ctx context.Context, indexName, blobName string) (uint64, error) {
	current, _, err := p.latest(ctx, indexName)
	if err != nil && !errors.Is(err, ErrNoVersions) {
		return 0, err
	}

	next := current + 1

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item: map[string]types.AttributeValue{
			"index_name": &types.AttributeValueMemberS{Value: indexName},
			"version":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", next)},
			"blob_name":  &types.AttributeValueMemberS{Value: blobName},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentModification
		}

		return 0, fmt.Errorf("s3: failed to publish version: %w", err)
	}

	return next, nil
}

// Current returns the blob name of the latest published version of the
// named index.
func (p *PointerStore) Current(ctx context.Context, indexName string) (string, error) {
	_, blobName, err := p.latest(ctx, indexName)
	if err != nil {
		return "", err
	}

	return blobName, nil
}

func (p *PointerStore) latest(ctx context.Context, indexName string) (uint64, string, error) {
	resp, err := p.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(p.tableName),
		KeyConditionExpression: aws.String("index_name = :name"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: indexName},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: failed to query versions: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", ErrNoVersions
	}

	item := resp.Items[0]

	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: invalid version attribute")
	}

	blobAttr, ok := item["blob_name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: invalid blob_name attribute")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("s3: failed to parse version: %w", err)
	}

	return version, blobAttr.Value, nil
}
