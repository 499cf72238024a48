package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVItem is one record of any logical table, stored as JSONB.
type KVItem struct {
	Table     string         `gorm:"primaryKey;column:table_name;type:varchar(64)"`
	PK        string         `gorm:"primaryKey;column:pk;type:varchar(255)"`
	SK        string         `gorm:"primaryKey;column:sk;type:varchar(255)"`
	Data      datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (KVItem) TableName() string { return "kv_items" }

// GormStore keeps every logical table in a single kv_items relation.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&KVItem{}); err != nil {
		return nil, fmt.Errorf("migrate kv_items: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Get(ctx context.Context, t Table, k Key, out any) error {
	var row KVItem
	err := s.DB.WithContext(ctx).
		Where("table_name = ? AND pk = ? AND sk = ?", t.Name, k.Partition, k.Sort).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", t.Name, err)
	}
	if err := json.Unmarshal(row.Data, out); err != nil {
		return fmt.Errorf("decode %s record: %w", t.Name, err)
	}
	return nil
}

func (s *GormStore) Put(ctx context.Context, t Table, k Key, item any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", t.Name, err)
	}
	row := KVItem{Table: t.Name, PK: k.Partition, SK: k.Sort, Data: datatypes.JSON(raw)}
	err = s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "table_name"}, {Name: "pk"}, {Name: "sk"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", t.Name, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, t Table, k Key) error {
	res := s.DB.WithContext(ctx).
		Where("table_name = ? AND pk = ? AND sk = ?", t.Name, k.Partition, k.Sort).
		Delete(&KVItem{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", t.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, t Table, partition string, out any) error {
	var rows []KVItem
	if err := s.DB.WithContext(ctx).
		Where("table_name = ? AND pk = ?", t.Name, partition).
		Order("sk ASC").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("query %s: %w", t.Name, err)
	}
	return decodeList(t, rowData(rows), out)
}

func (s *GormStore) Scan(ctx context.Context, t Table, out any) error {
	var rows []KVItem
	if err := s.DB.WithContext(ctx).
		Where("table_name = ?", t.Name).
		Order("pk ASC, sk ASC").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("scan %s: %w", t.Name, err)
	}
	return decodeList(t, rowData(rows), out)
}

func rowData(rows []KVItem) [][]byte {
	raws := make([][]byte, len(rows))
	for i, r := range rows {
		raws[i] = r.Data
	}
	return raws
}
