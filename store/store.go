// Package store is the key-value persistence layer shared by every handler.
// Records are addressed by table + partition key (+ optional sort key), which
// maps one-to-one onto DynamoDB and onto a generic kv_items table in Postgres.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Delete when no record exists under the key.
var ErrNotFound = errors.New("store: record not found")

// Table describes a logical table and the attribute names of its key.
type Table struct {
	Name         string
	PartitionKey string
	SortKey      string // empty for partition-only tables
}

// Key addresses a single record.
type Key struct {
	Partition string
	Sort      string
}

// Store is the capability interface the services depend on.
//
// Query and Scan decode into out, which must be a pointer to a slice.
// Query returns records of one partition ordered by sort key.
type Store interface {
	Get(ctx context.Context, t Table, k Key, out any) error
	Put(ctx context.Context, t Table, k Key, item any) error
	Delete(ctx context.Context, t Table, k Key) error
	Query(ctx context.Context, t Table, partition string, out any) error
	Scan(ctx context.Context, t Table, out any) error
}

// Tables groups the tables used by the assessment handler.
type Tables struct {
	TestResults               Table
	UserProgress              Table
	Leaderboard               Table
	DailyChallenges           Table
	DailyChallengeCompletions Table
	StudyResources            Table
	Assessments               Table
}

// DefaultTables returns the table layout of the deployed stack, with every
// table name prefixed by prefix (e.g. "dev-").
func DefaultTables(prefix string) Tables {
	return Tables{
		TestResults:               Table{Name: prefix + "TestResults", PartitionKey: "userId", SortKey: "testResultId"},
		UserProgress:              Table{Name: prefix + "UserProgress", PartitionKey: "userId"},
		Leaderboard:               Table{Name: prefix + "Leaderboard", PartitionKey: "timeframe", SortKey: "userId"},
		DailyChallenges:           Table{Name: prefix + "DailyChallenges", PartitionKey: "date", SortKey: "challengeId"},
		DailyChallengeCompletions: Table{Name: prefix + "DailyChallengeCompletions", PartitionKey: "userId", SortKey: "challengeId"},
		StudyResources:            Table{Name: prefix + "StudyResources", PartitionKey: "resourceId"},
		Assessments:               Table{Name: prefix + "Assessments", PartitionKey: "id"},
	}
}
