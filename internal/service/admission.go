package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/gamma-omg/lexi-review/internal/model"
	"github.com/gamma-omg/lexi-review/internal/srs"
	"github.com/gamma-omg/lexi-review/internal/store"
)

type AdmitNewRequest struct {
	UserID string
	Pool   []model.ReviewItem
	// Limit bounds this call regardless of the daily budget; zero means
	// "daily budget only".
	Limit       int
	DailyNewCap int
}

// AdmitNew decides which never-reviewed items from the pool enter the user's
// rotation, bounded by what is left of the daily cap. Selection is ascending
// item ID so a re-run over the same pool is deterministic. Returned records
// are not persisted; they are written on first grade.
func (s *ReviewService) AdmitNew(ctx context.Context, r AdmitNewRequest) ([]model.ReviewRecord, error) {
	if r.DailyNewCap <= 0 || len(r.Pool) == 0 {
		return nil, nil
	}

	now := s.now()

	introduced, err := s.intros.CountToday(ctx, r.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("count introduced today: %w", err)
	}

	remaining := r.DailyNewCap - introduced
	if remaining <= 0 {
		return nil, nil
	}
	if r.Limit > 0 && r.Limit < remaining {
		remaining = r.Limit
	}

	poolIDs := make([]int64, 0, len(r.Pool))
	byID := make(map[int64]model.ReviewItem, len(r.Pool))
	for _, item := range r.Pool {
		poolIDs = append(poolIDs, item.ID)
		byID[item.ID] = item
	}

	seen, err := s.records.GetSeenItems(ctx, store.SeenItemsRequest{UserID: r.UserID, ItemIDs: poolIDs})
	if err != nil {
		return nil, fmt.Errorf("get seen items: %w", err)
	}

	seenSet := make(map[int64]struct{}, len(seen))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}

	unseen := make([]int64, 0, len(poolIDs))
	for _, id := range poolIDs {
		if _, ok := seenSet[id]; !ok {
			unseen = append(unseen, id)
		}
	}
	sort.Slice(unseen, func(i, j int) bool { return unseen[i] < unseen[j] })

	if len(unseen) > remaining {
		unseen = unseen[:remaining]
	}

	admitted := make([]model.ReviewRecord, 0, len(unseen))
	for _, id := range unseen {
		admitted = append(admitted, srs.NewRecord(r.UserID, byID[id], now))
	}

	if err := s.intros.Add(ctx, r.UserID, len(admitted), now); err != nil {
		return nil, fmt.Errorf("record introductions: %w", err)
	}

	return admitted, nil
}
