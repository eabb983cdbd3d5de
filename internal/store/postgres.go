package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gamma-omg/lexi-review/internal/model"
	"github.com/lib/pq"
)

// PostgresConfig holds the configuration for connecting to a Postgres database
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

// PostgresStore implements RecordStore using a Postgres database
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresDB creates a new Postgres database connection
func NewPostgresDB(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DB))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// NewPostgresStore creates a new PostgresStore instance
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `user_id, item_id, item_type, state, interval_days, ease_factor,
	repetition_count, lapse_count, due_at, last_reviewed_at, created_at`

// GetRecord retrieves the review record for a (user, item) pair
func (s *PostgresStore) GetRecord(ctx context.Context, r GetRecordRequest) (model.ReviewRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+`
		 FROM review_records
		 WHERE user_id=$1 AND item_id=$2`, r.UserID, r.ItemID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, ErrNotFound
		}

		return rec, fmt.Errorf("scan: %w", err)
	}

	return rec, nil
}

// UpsertRecord inserts or replaces the record for its (user, item) pair in a
// single statement, which gives the per-record atomicity the core relies on.
func (s *PostgresStore) UpsertRecord(ctx context.Context, r UpsertRecordRequest) error {
	rec := r.Record
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, item_id) DO UPDATE SET
			item_type = EXCLUDED.item_type,
			state = EXCLUDED.state,
			interval_days = EXCLUDED.interval_days,
			ease_factor = EXCLUDED.ease_factor,
			repetition_count = EXCLUDED.repetition_count,
			lapse_count = EXCLUDED.lapse_count,
			due_at = EXCLUDED.due_at,
			last_reviewed_at = EXCLUDED.last_reviewed_at`,
		rec.UserID,
		rec.ItemID,
		string(rec.ItemType),
		string(rec.State),
		rec.IntervalDays,
		rec.EaseFactor,
		rec.RepetitionCount,
		rec.LapseCount,
		rec.DueAt,
		nullTime(rec.LastReviewedAt),
		rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	return nil
}

// FindDue returns records due at or before AsOf, ordered by due_at then
// item_id so the queue is deterministic.
func (s *PostgresStore) FindDue(ctx context.Context, r FindDueRequest) ([]model.ReviewRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		 FROM review_records
		 WHERE user_id=$1 AND due_at<=$2
		 ORDER BY due_at ASC, item_id ASC
		 LIMIT $3`, r.UserID, r.AsOf, r.Limit)
	if err != nil {
		return nil, fmt.Errorf("query due records: %w", err)
	}
	defer rows.Close()

	var records []model.ReviewRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due records: %w", err)
	}

	return records, nil
}

// CountIntroducedSince counts records created at or after Since, which is how
// many items entered the user's rotation during that window.
func (s *PostgresStore) CountIntroducedSince(ctx context.Context, r CountIntroducedRequest) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM review_records WHERE user_id=$1 AND created_at>=$2`,
		r.UserID, r.Since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count introduced records: %w", err)
	}

	return count, nil
}

// GetSeenItems returns the subset of ItemIDs for which the user already has a
// review record.
func (s *PostgresStore) GetSeenItems(ctx context.Context, r SeenItemsRequest) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id FROM review_records WHERE user_id=$1 AND item_id = ANY($2)`,
		r.UserID, pq.Array(r.ItemIDs))
	if err != nil {
		return nil, fmt.Errorf("query seen items: %w", err)
	}
	defer rows.Close()

	var seen []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		seen = append(seen, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen items: %w", err)
	}

	return seen, nil
}

// GetUserStats aggregates review state for one user in a single query.
func (s *PostgresStore) GetUserStats(ctx context.Context, r UserStatsRequest) (UserStatsResponse, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE due_at<=$2),
		        COUNT(*) FILTER (WHERE repetition_count>=5 AND interval_days>=30),
		        COALESCE(SUM(lapse_count), 0),
		        COALESCE(AVG(ease_factor), 2.5)
		 FROM review_records
		 WHERE user_id=$1`, r.UserID, r.AsOf)

	var resp UserStatsResponse
	err := row.Scan(&resp.TotalTracked, &resp.DueNow, &resp.Learned, &resp.Lapses, &resp.AvgEaseFactor)
	if err != nil {
		return resp, fmt.Errorf("scan stats: %w", err)
	}

	return resp, nil
}

// GetCategoryCounts reports how many of the given items the user tracks and
// how many of those are currently due. The caller supplies the category's item
// IDs since the catalog, not this table, owns category membership.
func (s *PostgresStore) GetCategoryCounts(ctx context.Context, r CategoryCountsRequest) (CategoryCountsResponse, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE due_at<=$3)
		 FROM review_records
		 WHERE user_id=$1 AND item_id = ANY($2)`,
		r.UserID, pq.Array(r.ItemIDs), r.AsOf)

	var resp CategoryCountsResponse
	err := row.Scan(&resp.Tracked, &resp.DueNow)
	if err != nil {
		return resp, fmt.Errorf("scan category counts: %w", err)
	}

	return resp, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.ReviewRecord, error) {
	var rec model.ReviewRecord
	var itemType, state string
	var lastReviewed sql.NullTime

	err := row.Scan(
		&rec.UserID,
		&rec.ItemID,
		&itemType,
		&state,
		&rec.IntervalDays,
		&rec.EaseFactor,
		&rec.RepetitionCount,
		&rec.LapseCount,
		&rec.DueAt,
		&lastReviewed,
		&rec.CreatedAt)
	if err != nil {
		return rec, err
	}

	rec.ItemType = model.ItemType(itemType)
	rec.State = model.State(state)
	if lastReviewed.Valid {
		t := lastReviewed.Time
		rec.LastReviewedAt = &t
	}

	return rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
