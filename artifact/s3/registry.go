package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConcurrentCommit is returned when another writer committed the same
// run version first.
var ErrConcurrentCommit = errors.New("concurrent checkpoint commit detected")

// DDBClient is the interface for DynamoDB operations used by the run
// registry. *dynamodb.Client satisfies it; tests supply fakes.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Entry describes one committed checkpoint of a run.
type Entry struct {
	Version      uint64
	ArtifactName string
	Iteration    int
	CommittedAt  time.Time
}

// RunRegistry tracks the latest checkpoint of each active-learning run in
// DynamoDB. Conditional writes give the compare-and-swap semantics that S3
// alone lacks, so multiple writers can coordinate safely.
//
// Table schema:
//   - Partition key: run_id (string)
//   - Sort key: version (number), monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name relational-runs \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type RunRegistry struct {
	client    DDBClient
	tableName string
	runID     string
}

// NewRunRegistry creates a registry for a single run.
func NewRunRegistry(client DDBClient, tableName, runID string) *RunRegistry {
	return &RunRegistry{
		client:    client,
		tableName: tableName,
		runID:     runID,
	}
}

// Latest returns the most recently committed entry. The boolean is false
// when the run has no commits yet.
func (r *RunRegistry) Latest(ctx context.Context) (Entry, bool, error) {
	resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("run_id = :run"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":run": &types.AttributeValueMemberS{Value: r.runID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("query run registry: %w", err)
	}
	if len(resp.Items) == 0 {
		return Entry{}, false, nil
	}

	entry, err := decodeEntry(resp.Items[0])
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Commit records a new checkpoint version. The version must be exactly one
// past the latest committed version; a conditional write rejects races
// between concurrent writers with ErrConcurrentCommit.
func (r *RunRegistry) Commit(ctx context.Context, artifactName string, iteration int) (uint64, error) {
	latest, _, err := r.Latest(ctx)
	if err != nil {
		return 0, err
	}
	version := latest.Version + 1

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"run_id":       &types.AttributeValueMemberS{Value: r.runID},
			"version":      &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
			"artifact":     &types.AttributeValueMemberS{Value: artifactName},
			"iteration":    &types.AttributeValueMemberN{Value: strconv.Itoa(iteration)},
			"committed_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentCommit
		}
		return 0, fmt.Errorf("commit run version: %w", err)
	}

	return version, nil
}

func decodeEntry(item map[string]types.AttributeValue) (Entry, error) {
	var entry Entry

	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return Entry{}, errors.New("invalid version attribute in run registry")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parse run version: %w", err)
	}
	entry.Version = version

	if attr, ok := item["artifact"].(*types.AttributeValueMemberS); ok {
		entry.ArtifactName = attr.Value
	}
	if attr, ok := item["iteration"].(*types.AttributeValueMemberN); ok {
		iteration, err := strconv.Atoi(attr.Value)
		if err != nil {
			return Entry{}, fmt.Errorf("parse run iteration: %w", err)
		}
		entry.Iteration = iteration
	}
	if attr, ok := item["committed_at"].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339Nano, attr.Value); err == nil {
			entry.CommittedAt = t
		}
	}

	return entry, nil
}
