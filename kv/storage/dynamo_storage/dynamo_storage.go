package dynamo_storage

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/config"
	"go.uber.org/zap"
)

// maxBatchWrite is the BatchWriteItem limit on requests per call.
const maxBatchWrite = 25

const (
	defaultTimeout    = 30 * time.Second
	maxUnprocessedTry = 8
)

// API is the part of the DynamoDB client the storage uses.
type API interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// record is one item of the table. The table's partition key is the string
// attribute "k".
type record struct {
	Key   string `dynamodbav:"k"`
	Value []byte `dynamodbav:"v"`
}

// DynamoStorage persists snapshots into a DynamoDB table, one item per key.
type DynamoStorage struct {
	client  API
	table   string
	timeout time.Duration
	backoff time.Duration
}

func NewDynamoStorage(client API, table string) *DynamoStorage {
	return &DynamoStorage{
		client:  client,
		table:   table,
		timeout: defaultTimeout,
		backoff: 50 * time.Millisecond,
	}
}

// NewFromConfig builds a DynamoStorage with a client resolved from the default
// AWS credential chain. Region and endpoint override the environment when set.
func NewFromConfig(ctx context.Context, conf config.DynamoDBConfig) (*DynamoStorage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if conf.Region != "" {
		opts = append(opts, awsconfig.WithRegion(conf.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "load aws config")
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	})
	return NewDynamoStorage(client, conf.Table), nil
}

func (s *DynamoStorage) Start() error {
	log.Info("dynamodb storage ready", zap.String("table", s.table))
	return nil
}

func (s *DynamoStorage) Stop() error {
	return nil
}

func (s *DynamoStorage) Load() (map[string][]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.scanAll(ctx)
}

func (s *DynamoStorage) scanAll(ctx context.Context) (map[string][]byte, error) {
	result := make(map[string][]byte)
	input := &dynamodb.ScanInput{
		TableName:      aws.String(s.table),
		ConsistentRead: aws.Bool(true),
	}
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, errors.Annotatef(err, "scan table %s", s.table)
		}
		var records []record
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
			return nil, errors.Annotate(err, "decode items")
		}
		for _, r := range records {
			if r.Value == nil {
				r.Value = []byte{}
			}
			result[r.Key] = r.Value
		}
		if len(out.LastEvaluatedKey) == 0 {
			return result, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Persist makes the table equal to snapshot. Unchanged items are not
// rewritten. The writes are batched and are not atomic across batches.
func (s *DynamoStorage) Persist(snapshot map[string][]byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	current, err := s.scanAll(ctx)
	if err != nil {
		return err
	}
	var requests []types.WriteRequest
	for key, value := range snapshot {
		if old, ok := current[key]; ok && bytes.Equal(old, value) {
			continue
		}
		item, err := attributevalue.MarshalMap(record{Key: key, Value: value})
		if err != nil {
			return errors.Annotatef(err, "encode key %q", key)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	for key := range current {
		if _, ok := snapshot[key]; ok {
			continue
		}
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{"k": &types.AttributeValueMemberS{Value: key}},
		}})
	}

	for start := 0; start < len(requests); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		if err := s.writeBatch(ctx, requests[start:end]); err != nil {
			return err
		}
	}
	if len(requests) > 0 {
		log.Debug("snapshot persisted to dynamodb",
			zap.String("table", s.table),
			zap.Int("keys", len(snapshot)),
			zap.Int("writes", len(requests)))
	}
	return nil
}

func (s *DynamoStorage) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{s.table: requests}
	backoff := s.backoff
	for try := 0; try < maxUnprocessedTry; try++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return errors.Annotatef(err, "batch write to %s", s.table)
		}
		if len(out.UnprocessedItems[s.table]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return errors.Errorf("%d writes to %s still unprocessed after %d tries",
		len(pending[s.table]), s.table, maxUnprocessedTry)
}
