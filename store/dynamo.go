package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	dynamodb.QueryAPIClient
	dynamodb.ScanAPIClient
}

// DynamoStore persists records in DynamoDB. Items are (un)marshalled through
// their json tags so the same models serve every driver.
type DynamoStore struct {
	client DynamoAPI
}

func NewDynamoStore(client DynamoAPI) *DynamoStore {
	return &DynamoStore{client: client}
}

func useJSONTags(o *attributevalue.EncoderOptions) { o.TagKey = "json" }

func useJSONTagsDecode(o *attributevalue.DecoderOptions) { o.TagKey = "json" }

// keyAttributes builds the primary-key attribute map for k.
func keyAttributes(t Table, k Key) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		t.PartitionKey: &types.AttributeValueMemberS{Value: k.Partition},
	}
	if t.SortKey != "" {
		key[t.SortKey] = &types.AttributeValueMemberS{Value: k.Sort}
	}
	return key
}

func (s *DynamoStore) Get(ctx context.Context, t Table, k Key, out any) error {
	res, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.Name),
		Key:       keyAttributes(t, k),
	})
	if err != nil {
		return fmt.Errorf("dynamodb get %s: %w", t.Name, err)
	}
	if len(res.Item) == 0 {
		return ErrNotFound
	}
	if err := attributevalue.UnmarshalMapWithOptions(res.Item, out, useJSONTagsDecode); err != nil {
		return fmt.Errorf("decode %s item: %w", t.Name, err)
	}
	return nil
}

func (s *DynamoStore) Put(ctx context.Context, t Table, k Key, item any) error {
	av, err := attributevalue.MarshalMapWithOptions(item, useJSONTags)
	if err != nil {
		return fmt.Errorf("encode %s item: %w", t.Name, err)
	}
	// key attributes always win over whatever the item carries
	for name, v := range keyAttributes(t, k) {
		av[name] = v
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.Name),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("dynamodb put %s: %w", t.Name, err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, t Table, k Key) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(t.Name),
		Key:                 keyAttributes(t, k),
		ConditionExpression: aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": t.PartitionKey,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("dynamodb delete %s: %w", t.Name, err)
	}
	return nil
}

func (s *DynamoStore) Query(ctx context.Context, t Table, partition string, out any) error {
	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                aws.String(t.Name),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": t.PartitionKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: partition},
		},
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("dynamodb query %s: %w", t.Name, err)
		}
		items = append(items, page.Items...)
	}
	if err := attributevalue.UnmarshalListOfMapsWithOptions(items, out, useJSONTagsDecode); err != nil {
		return fmt.Errorf("decode %s items: %w", t.Name, err)
	}
	return nil
}

func (s *DynamoStore) Scan(ctx context.Context, t Table, out any) error {
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(t.Name),
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("dynamodb scan %s: %w", t.Name, err)
		}
		items = append(items, page.Items...)
	}
	if err := attributevalue.UnmarshalListOfMapsWithOptions(items, out, useJSONTagsDecode); err != nil {
		return fmt.Errorf("decode %s items: %w", t.Name, err)
	}
	return nil
}
