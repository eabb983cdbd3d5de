package store

import (
	"time"

	"github.com/gamma-omg/lexi-review/internal/model"
)

type GetRecordRequest struct {
	UserID string
	ItemID int64
}

type UpsertRecordRequest struct {
	Record model.ReviewRecord
}

type FindDueRequest struct {
	UserID string
	AsOf   time.Time
	Limit  int
}

type CountIntroducedRequest struct {
	UserID string
	Since  time.Time
}

type SeenItemsRequest struct {
	UserID  string
	ItemIDs []int64
}

type UserStatsRequest struct {
	UserID string
	AsOf   time.Time
}

type UserStatsResponse struct {
	TotalTracked  int
	DueNow        int
	Learned       int
	Lapses        int
	AvgEaseFactor float64
}

type CategoryCountsRequest struct {
	UserID  string
	ItemIDs []int64
	AsOf    time.Time
}

type CategoryCountsResponse struct {
	Tracked int
	DueNow  int
}
