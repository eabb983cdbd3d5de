package store

import (
	"context"
	"errors"

	"github.com/gamma-omg/lexi-review/internal/model"
)

var ErrNotFound = errors.New("not found")

// RecordStore is the persistence contract the review core requires. Upsert is
// atomic per record; no cross-record transactions are needed, so the contract
// stays single-key throughout.
type RecordStore interface {
	GetRecord(ctx context.Context, r GetRecordRequest) (model.ReviewRecord, error)
	UpsertRecord(ctx context.Context, r UpsertRecordRequest) error
	FindDue(ctx context.Context, r FindDueRequest) ([]model.ReviewRecord, error)
	CountIntroducedSince(ctx context.Context, r CountIntroducedRequest) (int, error)
	GetSeenItems(ctx context.Context, r SeenItemsRequest) ([]int64, error)
	GetUserStats(ctx context.Context, r UserStatsRequest) (UserStatsResponse, error)
	GetCategoryCounts(ctx context.Context, r CategoryCountsRequest) (CategoryCountsResponse, error)
}
