package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"congressd/internal/config"
	"congressd/internal/models"
)

// DynamoStore is the DynamoDB-backed store adapter. Credentials come
// from the standard AWS credential chain.
type DynamoStore struct {
	db    *dynamodb.DynamoDB
	table string
}

// NewDynamoStore creates the adapter from store configuration. A
// non-empty endpoint overrides the regional one (local development).
func NewDynamoStore(cfg config.StoreConfig) *DynamoStore {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	sess := session.Must(session.NewSession(awsCfg))

	return &DynamoStore{
		db:    dynamodb.New(sess),
		table: cfg.TableName,
	}
}

// DescribeTable verifies the table exists and credentials are valid.
func (s *DynamoStore) DescribeTable(ctx context.Context) error {
	_, err := s.db.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return mapAWSError("", err)
	}

	return nil
}

// PutItem writes one record with the conditional expression that
// leaves an existing item of equal or newer schema version alone.
func (s *DynamoStore) PutItem(ctx context.Context, record *models.Record) error {
	item, err := marshalRecord(record)
	if err != nil {
		return &Error{Code: CodeValidationRejected, ID: record.ID, Err: err}
	}

	_, err = s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id) OR version < :v"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":v": {N: aws.String(fmt.Sprintf("%d", record.Version))},
		},
	})
	if err != nil {
		return mapAWSError(record.ID, err)
	}

	return nil
}

// BatchPut writes up to MaxBatchItems records via BatchWriteItem.
// Unprocessed items come back as throughput_exceeded so the caller's
// backoff loop can retry them.
func (s *DynamoStore) BatchPut(ctx context.Context, records []*models.Record) ([]ItemResult, error) {
	if len(records) > MaxBatchItems {
		return nil, &Error{
			Code: CodeValidationRejected,
			Err:  fmt.Errorf("batch of %d exceeds the %d item limit", len(records), MaxBatchItems),
		}
	}

	results := make([]ItemResult, 0, len(records))
	requests := make([]*dynamodb.WriteRequest, 0, len(records))
	pending := make([]*models.Record, 0, len(records))

	for _, record := range records {
		item, err := marshalRecord(record)
		if err != nil {
			results = append(results, ItemResult{
				ID:  record.ID,
				Err: &Error{Code: CodeValidationRejected, ID: record.ID, Err: err},
			})

			continue
		}

		requests = append(requests, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		})
		pending = append(pending, record)
	}

	if len(requests) == 0 {
		return results, nil
	}

	out, err := s.db.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]*dynamodb.WriteRequest{
			s.table: requests,
		},
	})
	if err != nil {
		mapped := mapAWSError("", err)
		if serr := asStoreError(mapped); serr != nil && serr.Code.Fatal() {
			return nil, mapped
		}

		// Whole-call failure: every pending item shares the outcome.
		for _, record := range pending {
			results = append(results, ItemResult{
				ID:  record.ID,
				Err: &Error{Code: CodeOf(mapped), ID: record.ID, Err: err},
			})
		}

		return results, nil
	}

	unprocessed := make(map[string]bool)

	for _, reqs := range out.UnprocessedItems {
		for _, req := range reqs {
			if req.PutRequest == nil {
				continue
			}

			if id, ok := req.PutRequest.Item["id"]; ok && id.S != nil {
				unprocessed[*id.S] = true
			}
		}
	}

	for _, record := range pending {
		if unprocessed[record.ID] {
			results = append(results, ItemResult{
				ID: record.ID,
				Err: &Error{
					Code: CodeThroughputExceeded,
					ID:   record.ID,
					Err:  errors.New("unprocessed by BatchWriteItem"),
				},
			})

			continue
		}

		results = append(results, ItemResult{ID: record.ID})
	}

	return results, nil
}

// QueryPrefix streams items from a secondary index, following
// pagination until exhausted or the callback stops it.
func (s *DynamoStore) QueryPrefix(ctx context.Context, q Query, fn IterFunc) error {
	keyCondition := "#h = :h"
	names := map[string]*string{"#h": aws.String(q.HashKey)}
	values := map[string]*dynamodb.AttributeValue{
		":h": {S: aws.String(q.HashValue)},
	}

	if q.RangeKey != "" && q.RangeFrom != "" && q.RangeTo != "" {
		keyCondition += " AND #r BETWEEN :from AND :to"
		names["#r"] = aws.String(q.RangeKey)
		values[":from"] = &dynamodb.AttributeValue{S: aws.String(q.RangeFrom)}
		values[":to"] = &dynamodb.AttributeValue{S: aws.String(q.RangeTo)}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(q.Index),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	for {
		out, err := s.db.QueryWithContext(ctx, input)
		if err != nil {
			return mapAWSError("", err)
		}

		for _, av := range out.Items {
			var item map[string]any
			if err := dynamodbattribute.UnmarshalMap(av, &item); err != nil {
				return &Error{Code: CodeValidationRejected, Err: err}
			}

			if err := fn(item); err != nil {
				return err
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}

		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// marshalRecord flattens a record and stamps the write time, matching
// the table's timestamp index attribute.
func marshalRecord(record *models.Record) (map[string]*dynamodb.AttributeValue, error) {
	item := record.Item()
	item["timestamp"] = time.Now().Unix()

	return dynamodbattribute.MarshalMap(item)
}

// mapAWSError classifies an SDK error into a store failure code.
func mapAWSError(id string, err error) error {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{Code: CodeTimeout, ID: id, Err: err}
		}

		return &Error{Code: CodeTransient, ID: id, Err: err}
	}

	switch aerr.Code() {
	case dynamodb.ErrCodeProvisionedThroughputExceededException,
		dynamodb.ErrCodeRequestLimitExceeded:
		return &Error{Code: CodeThroughputExceeded, ID: id, Err: err}

	case dynamodb.ErrCodeConditionalCheckFailedException:
		return &Error{Code: CodeConditionalFailed, ID: id, Err: err}

	case dynamodb.ErrCodeResourceNotFoundException:
		return &Error{Code: CodeTableMissing, ID: id, Err: err}

	case "ValidationException":
		return &Error{Code: CodeValidationRejected, ID: id, Err: err}

	case "AccessDeniedException", "UnrecognizedClientException",
		"ExpiredTokenException", "MissingAuthenticationToken":
		return &Error{Code: CodeAuthFailed, ID: id, Err: err}

	case "RequestTimeout", "RequestTimeoutException":
		return &Error{Code: CodeTimeout, ID: id, Err: err}

	default:
		return &Error{Code: CodeTransient, ID: id, Err: err}
	}
}

func asStoreError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}

	return nil
}
