package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gamma-omg/lexi-review/internal/model"
	"github.com/gamma-omg/lexi-review/internal/pkg/serr"
	"github.com/gamma-omg/lexi-review/internal/srs"
	"github.com/gamma-omg/lexi-review/internal/store"
)

type catalogReader interface {
	ItemsByCategory(ctx context.Context, itemType model.ItemType, categoryID int64) ([]model.ReviewItem, error)
}

type introCounter interface {
	CountToday(ctx context.Context, userID string, now time.Time) (int, error)
	Add(ctx context.Context, userID string, n int, now time.Time) error
}

// ReviewService drives review sessions: selecting due items, admitting new
// ones under the daily cap, and applying grades through the scheduling engine.
type ReviewService struct {
	records store.RecordStore
	catalog catalogReader
	intros  introCounter
	params  srs.Params
	cfg     ReviewServiceConfig
	now     func() time.Time
}

type ReviewServiceConfig struct {
	SessionCap    int
	DailyNewCap   int
	UpsertRetries int
	RetryBackoff  time.Duration
}

func NewReviewService(records store.RecordStore, catalog catalogReader, intros introCounter, params srs.Params, cfg ReviewServiceConfig) *ReviewService {
	if cfg.UpsertRetries <= 0 {
		cfg.UpsertRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}

	return &ReviewService{
		records: records,
		catalog: catalog,
		intros:  intros,
		params:  params,
		cfg:     cfg,
		now:     time.Now,
	}
}

type DueSetRequest struct {
	UserID     string
	SessionCap int
}

// DueSet returns the ordered queue of records due for the user right now,
// capped at SessionCap. A non-positive cap yields an empty queue; that is a
// caller mistake, not a scheduler fault, so no error is raised here.
func (s *ReviewService) DueSet(ctx context.Context, r DueSetRequest) ([]model.ReviewRecord, error) {
	if r.SessionCap <= 0 {
		return nil, nil
	}

	records, err := s.records.FindDue(ctx, store.FindDueRequest{
		UserID: r.UserID,
		AsOf:   s.now(),
		Limit:  r.SessionCap,
	})
	if err != nil {
		return nil, fmt.Errorf("find due records: %w", err)
	}

	return records, nil
}

type GradeRequest struct {
	UserID   string
	ItemID   int64
	ItemType string
	Grade    string
}

// Grade applies one graded review: it loads the current record (or starts a
// fresh one for a never-seen item), runs the scheduling engine, and persists
// the result. The upsert is retried a bounded number of times so one flaky
// write does not kill the rest of the session.
func (s *ReviewService) Grade(ctx context.Context, r GradeRequest) (model.ReviewRecord, error) {
	if r.UserID == "" {
		return model.ReviewRecord{}, serr.NewServiceError(nil, http.StatusBadRequest, "user id is required")
	}

	grade, err := model.ParseGrade(r.Grade)
	if err != nil {
		se := serr.NewServiceError(err, http.StatusBadRequest, "invalid grade")
		se.Env["grade"] = r.Grade
		return model.ReviewRecord{}, se
	}

	itemType, err := model.ParseItemType(r.ItemType)
	if err != nil {
		se := serr.NewServiceError(err, http.StatusBadRequest, "invalid item type")
		se.Env["item_type"] = r.ItemType
		return model.ReviewRecord{}, se
	}

	now := s.now()

	rec, err := s.records.GetRecord(ctx, store.GetRecordRequest{UserID: r.UserID, ItemID: r.ItemID})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return model.ReviewRecord{}, fmt.Errorf("get record: %w", err)
		}

		rec = srs.NewRecord(r.UserID, model.ReviewItem{ID: r.ItemID, Type: itemType}, now)
	}

	if rec.IntervalDays < 0 {
		slog.Warn("negative interval read from storage, clamping",
			"user_id", rec.UserID,
			"item_id", rec.ItemID,
			"interval_days", rec.IntervalDays,
		)
	}

	next := s.params.Schedule(rec, grade, now)

	if err := s.upsertWithRetry(ctx, next); err != nil {
		return model.ReviewRecord{}, fmt.Errorf("persist graded record: %w", err)
	}

	return next, nil
}

func (s *ReviewService) upsertWithRetry(ctx context.Context, rec model.ReviewRecord) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.UpsertRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}

		lastErr = s.records.UpsertRecord(ctx, store.UpsertRecordRequest{Record: rec})
		if lastErr == nil {
			return nil
		}

		slog.Warn("upsert failed, retrying",
			"user_id", rec.UserID,
			"item_id", rec.ItemID,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	return fmt.Errorf("upsert after %d attempts: %w", s.cfg.UpsertRetries, lastErr)
}

type UserStatsResponse struct {
	TotalTracked  int
	DueNow        int
	Learned       int
	Lapses        int
	AvgEaseFactor float64
}

// Stats aggregates the user's review state for the dashboard.
func (s *ReviewService) Stats(ctx context.Context, userID string) (UserStatsResponse, error) {
	stats, err := s.records.GetUserStats(ctx, store.UserStatsRequest{UserID: userID, AsOf: s.now()})
	if err != nil {
		return UserStatsResponse{}, fmt.Errorf("get user stats: %w", err)
	}

	return UserStatsResponse{
		TotalTracked:  stats.TotalTracked,
		DueNow:        stats.DueNow,
		Learned:       stats.Learned,
		Lapses:        stats.Lapses,
		AvgEaseFactor: stats.AvgEaseFactor,
	}, nil
}

type CategorySummaryRequest struct {
	UserID     string
	ItemType   string
	CategoryID int64
}

type CategorySummaryResponse struct {
	CategoryID int64
	TotalItems int
	Tracked    int
	DueNow     int
}

// CategorySummary reports how much of one category the user tracks and how
// much of it is due. Category membership comes from the catalog; this service
// only owns scheduling state.
func (s *ReviewService) CategorySummary(ctx context.Context, r CategorySummaryRequest) (CategorySummaryResponse, error) {
	itemType, err := model.ParseItemType(r.ItemType)
	if err != nil {
		se := serr.NewServiceError(err, http.StatusBadRequest, "invalid item type")
		se.Env["item_type"] = r.ItemType
		return CategorySummaryResponse{}, se
	}

	items, err := s.catalog.ItemsByCategory(ctx, itemType, r.CategoryID)
	if err != nil {
		return CategorySummaryResponse{}, fmt.Errorf("get category items: %w", err)
	}

	resp := CategorySummaryResponse{CategoryID: r.CategoryID, TotalItems: len(items)}
	if len(items) == 0 {
		return resp, nil
	}

	itemIDs := make([]int64, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}

	counts, err := s.records.GetCategoryCounts(ctx, store.CategoryCountsRequest{
		UserID:  r.UserID,
		ItemIDs: itemIDs,
		AsOf:    s.now(),
	})
	if err != nil {
		return CategorySummaryResponse{}, fmt.Errorf("get category counts: %w", err)
	}

	resp.Tracked = counts.Tracked
	resp.DueNow = counts.DueNow
	return resp, nil
}
