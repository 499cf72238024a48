package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type record struct {
	UserID string `json:"userId"`
	ItemID string `json:"itemId"`
	Value  int    `json:"value"`
}

var testTable = Table{Name: "Records", PartitionKey: "userId", SortKey: "itemId"}

func TestMemoryStoreGetPutDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	k := Key{Partition: "u1", Sort: "a"}

	var got record
	if err := m.Get(ctx, testTable, k, &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := m.Put(ctx, testTable, k, record{UserID: "u1", ItemID: "a", Value: 1}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := m.Put(ctx, testTable, k, record{UserID: "u1", ItemID: "a", Value: 2}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := m.Get(ctx, testTable, k, &got); err != nil || got.Value != 2 {
		t.Fatalf("Get() = %+v, %v, want value 2", got, err)
	}

	other := Table{Name: "Other", PartitionKey: "userId", SortKey: "itemId"}
	if err := m.Get(ctx, other, k, &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(other table) error = %v, want ErrNotFound", err)
	}

	if err := m.Delete(ctx, testTable, k); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete(ctx, testTable, k); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreQueryAndScanOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for _, k := range []Key{{"u2", "b"}, {"u1", "c"}, {"u1", "a"}, {"u2", "a"}, {"u1", "b"}} {
		if err := m.Put(ctx, testTable, k, record{UserID: k.Partition, ItemID: k.Sort}); err != nil {
			t.Fatalf("Put(%v) error = %v", k, err)
		}
	}

	var q []record
	if err := m.Query(ctx, testTable, "u1", &q); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := keysOf(q); got != "u1/a u1/b u1/c" {
		t.Errorf("Query(u1) = %s, want u1/a u1/b u1/c", got)
	}

	var empty []record
	if err := m.Query(ctx, testTable, "nobody", &empty); err != nil || len(empty) != 0 {
		t.Errorf("Query(nobody) = %v, %v, want empty", empty, err)
	}

	var all []record
	if err := m.Scan(ctx, testTable, &all); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := keysOf(all); got != "u1/a u1/b u1/c u2/a u2/b" {
		t.Errorf("Scan() = %s", got)
	}
}

func keysOf(rs []record) string {
	s := ""
	for i, r := range rs {
		if i > 0 {
			s += " "
		}
		s += r.UserID + "/" + r.ItemID
	}
	return s
}

func TestMemoryStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := Key{Partition: "u1", Sort: fmt.Sprintf("%03d", i)}
			if err := m.Put(ctx, testTable, k, record{UserID: "u1", ItemID: k.Sort, Value: i}); err != nil {
				t.Errorf("Put() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	var rs []record
	if err := m.Query(ctx, testTable, "u1", &rs); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rs) != 50 || rs[0].Value != 0 || rs[49].Value != 49 {
		t.Errorf("Query() returned %d records", len(rs))
	}
}
