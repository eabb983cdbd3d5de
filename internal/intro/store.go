package intro

import (
	"context"
	"fmt"
	"time"

	"github.com/gamma-omg/lexi-review/internal/store"
)

// StoreCounter derives the daily count from review_records created_at. It is
// the fallback when no Redis is configured. Add is a no-op: admitted items
// become visible to the count once their first grade persists a record, so an
// abandoned session's admissions do not burn the cap.
type StoreCounter struct {
	records store.RecordStore
}

func NewStoreCounter(records store.RecordStore) *StoreCounter {
	return &StoreCounter{records: records}
}

func (c *StoreCounter) CountToday(ctx context.Context, userID string, now time.Time) (int, error) {
	count, err := c.records.CountIntroducedSince(ctx, store.CountIntroducedRequest{
		UserID: userID,
		Since:  MidnightUTC(now),
	})
	if err != nil {
		return 0, fmt.Errorf("count introduced since midnight: %w", err)
	}

	return count, nil
}

func (c *StoreCounter) Add(ctx context.Context, userID string, n int, now time.Time) error {
	return nil
}
