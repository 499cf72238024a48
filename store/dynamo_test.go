package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo keeps items per table and serves Query one item per page.
type fakeDynamo struct {
	tables map[string][]map[string]types.AttributeValue
	pages  int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string][]map[string]types.AttributeValue)}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func matches(item, key map[string]types.AttributeValue) bool {
	for name, v := range key {
		if str(item[name]) != str(v) {
			return false
		}
	}
	return true
}

func (f *fakeDynamo) find(table string, key map[string]types.AttributeValue) int {
	for i, item := range f.tables[table] {
		if matches(item, key) {
			return i
		}
	}
	return -1
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if i := f.find(*in.TableName, in.Key); i >= 0 {
		return &dynamodb.GetItemOutput{Item: f.tables[*in.TableName][i]}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.tables[*in.TableName] = append(f.tables[*in.TableName], in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	i := f.find(*in.TableName, in.Key)
	if i < 0 {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	items := f.tables[*in.TableName]
	f.tables[*in.TableName] = append(items[:i], items[i+1:]...)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.pages++
	pkName := in.ExpressionAttributeNames["#pk"]
	want := str(in.ExpressionAttributeValues[":pk"])
	var all []map[string]types.AttributeValue
	for _, item := range f.tables[*in.TableName] {
		if str(item[pkName]) == want {
			all = append(all, item)
		}
	}
	start := 0
	if in.ExclusiveStartKey != nil {
		start = 1
	}
	if start >= len(all) {
		return &dynamodb.QueryOutput{}, nil
	}
	out := &dynamodb.QueryOutput{Items: all[start : start+1]}
	if start+1 < len(all) {
		out.LastEvaluatedKey = all[start]
	}
	return out, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{Items: f.tables[*in.TableName]}, nil
}

func TestKeyAttributes(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		key   Key
		want  map[string]string
	}{
		{"partition only", Table{Name: "UserProgress", PartitionKey: "userId"}, Key{Partition: "u1", Sort: "ignored"}, map[string]string{"userId": "u1"}},
		{"composite", Table{Name: "Leaderboard", PartitionKey: "timeframe", SortKey: "userId"}, Key{Partition: "all", Sort: "u1"}, map[string]string{"timeframe": "all", "userId": "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyAttributes(tt.table, tt.key)
			if len(got) != len(tt.want) {
				t.Fatalf("keyAttributes() has %d attributes, want %d", len(got), len(tt.want))
			}
			for name, v := range tt.want {
				if str(got[name]) != v {
					t.Errorf("keyAttributes()[%s] = %q, want %q", name, str(got[name]), v)
				}
			}
		})
	}
}

func TestDynamoStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	s := NewDynamoStore(fake)
	k := Key{Partition: "u1", Sort: "a"}

	var got record
	if err := s.Get(ctx, testTable, k, &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	// the key attributes come from k, not the item
	if err := s.Put(ctx, testTable, k, record{UserID: "stale", Value: 7}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	stored := fake.tables["Records"][0]
	if str(stored["userId"]) != "u1" || str(stored["itemId"]) != "a" {
		t.Errorf("stored key = %v/%v, want u1/a", stored["userId"], stored["itemId"])
	}
	if _, ok := stored["value"].(*types.AttributeValueMemberN); !ok {
		t.Errorf("value stored as %T, want number", stored["value"])
	}

	if err := s.Get(ctx, testTable, k, &got); err != nil || got.Value != 7 || got.UserID != "u1" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	if err := s.Delete(ctx, testTable, k); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, testTable, k); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDynamoStoreQueryFollowsPages(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	s := NewDynamoStore(fake)
	for _, k := range []Key{{"u1", "a"}, {"u2", "a"}, {"u1", "b"}} {
		if err := s.Put(ctx, testTable, k, record{Value: 1}); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	var rs []record
	if err := s.Query(ctx, testTable, "u1", &rs); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := keysOf(rs); got != "u1/a u1/b" {
		t.Errorf("Query() = %s, want u1/a u1/b", got)
	}
	if fake.pages != 2 {
		t.Errorf("Query made %d page requests, want 2", fake.pages)
	}

	var all []record
	if err := s.Scan(ctx, testTable, &all); err != nil || len(all) != 3 {
		t.Errorf("Scan() = %d records, %v, want 3", len(all), err)
	}
}
