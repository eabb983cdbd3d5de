package store

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/gamma-omg/lexi-review/internal/model"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type postgresStartRequest struct {
	user     string
	password string
	db       string
}

type postgresStartResponse struct {
	host string
	port string
}

func startPostgres(ctx context.Context, cfg postgresStartRequest) (postgresStartResponse, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     cfg.user,
			"POSTGRES_PASSWORD": cfg.password,
			"POSTGRES_DB":       cfg.db,
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		log.Fatalf("failed to get host: %v", err)
	}

	port, err := cont.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to get port: %v", err)
	}

	closer := func() {
		_ = cont.Terminate(ctx)
	}
	return postgresStartResponse{
		host: host,
		port: port.Port(),
	}, closer
}

func runMigrations(db *sql.DB) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("failed to get postgres driver: %v", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(
		"file://../../db/migrations",
		"test", driver)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("failed to run migrations: %v", err)
	}
}

var db *sql.DB
var pgstore *PostgresStore

func TestMain(m *testing.M) {
	res, closer := startPostgres(context.Background(), postgresStartRequest{
		user:     "test",
		password: "test",
		db:       "test",
	})
	defer closer()

	var err error
	db, err = NewPostgresDB(PostgresConfig{
		Host:     res.host,
		Port:     res.port,
		User:     "test",
		Password: "test",
		DB:       "test",
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	runMigrations(db)
	pgstore = NewPostgresStore(db)

	os.Exit(m.Run())
}

func truncate(t *testing.T) {
	t.Helper()

	_, err := db.Exec("TRUNCATE review_records")
	require.NoError(t, err)
}

func makeRecord(userID string, itemID int64, dueAt time.Time) model.ReviewRecord {
	return model.ReviewRecord{
		UserID:       userID,
		ItemID:       itemID,
		ItemType:     model.Vocabulary,
		State:        model.StateNew,
		IntervalDays: 0,
		EaseFactor:   2.5,
		DueAt:        dueAt,
		CreatedAt:    dueAt,
	}
}

func TestUpsertRecord_InsertAndGet(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := makeRecord("user-1", 10, now)
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: rec}))

	got, err := pgstore.GetRecord(ctx, GetRecordRequest{UserID: "user-1", ItemID: 10})
	require.NoError(t, err)

	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.ItemID, got.ItemID)
	assert.Equal(t, model.Vocabulary, got.ItemType)
	assert.Equal(t, model.StateNew, got.State)
	assert.Equal(t, 2.5, got.EaseFactor)
	assert.Nil(t, got.LastReviewedAt)
	assert.True(t, got.DueAt.Equal(now))
}

func TestUpsertRecord_ConflictUpdates(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := makeRecord("user-1", 10, now)
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: rec}))

	reviewed := now.Add(time.Hour)
	rec.State = model.StateLearning
	rec.IntervalDays = 1
	rec.RepetitionCount = 1
	rec.DueAt = now.AddDate(0, 0, 1)
	rec.LastReviewedAt = &reviewed
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: rec}))

	got, err := pgstore.GetRecord(ctx, GetRecordRequest{UserID: "user-1", ItemID: 10})
	require.NoError(t, err)

	assert.Equal(t, model.StateLearning, got.State)
	assert.Equal(t, 1.0, got.IntervalDays)
	assert.Equal(t, 1, got.RepetitionCount)
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, got.LastReviewedAt.Equal(reviewed))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM review_records").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetRecord_NotFound(t *testing.T) {
	truncate(t)

	_, err := pgstore.GetRecord(context.Background(), GetRecordRequest{UserID: "user-1", ItemID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindDue_OrderAndLimit(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// 5 due records, two sharing a due_at so the item_id tie-break matters
	due := []struct {
		itemID int64
		dueAt  time.Time
	}{
		{5, now.Add(-4 * time.Hour)},
		{3, now.Add(-2 * time.Hour)},
		{9, now.Add(-2 * time.Hour)},
		{1, now.Add(-1 * time.Hour)},
		{7, now},
	}
	for _, d := range due {
		require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-1", d.itemID, d.dueAt)}))
	}

	// not yet due, and another user's record
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-1", 2, now.Add(time.Hour))}))
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-2", 5, now.Add(-time.Hour))}))

	records, err := pgstore.FindDue(ctx, FindDueRequest{UserID: "user-1", AsOf: now, Limit: 3})
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, int64(5), records[0].ItemID)
	assert.Equal(t, int64(3), records[1].ItemID)
	assert.Equal(t, int64(9), records[2].ItemID)
}

func TestCountIntroducedSince(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	midnight := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	before := makeRecord("user-1", 1, midnight.Add(-2*time.Hour))
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: before}))

	for i := int64(2); i <= 4; i++ {
		rec := makeRecord("user-1", i, midnight.Add(time.Duration(i)*time.Hour))
		require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: rec}))
	}

	count, err := pgstore.CountIntroducedSince(ctx, CountIntroducedRequest{UserID: "user-1", Since: midnight})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGetSeenItems(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-1", 10, now)}))
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-1", 30, now)}))

	seen, err := pgstore.GetSeenItems(ctx, SeenItemsRequest{UserID: "user-1", ItemIDs: []int64{10, 20, 30, 40}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{10, 30}, seen)
}

func TestGetUserStats(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	learned := makeRecord("user-1", 1, now.AddDate(0, 0, 40))
	learned.State = model.StateReview
	learned.RepetitionCount = 6
	learned.IntervalDays = 45
	learned.EaseFactor = 2.7
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: learned}))

	lapsed := makeRecord("user-1", 2, now.Add(-time.Hour))
	lapsed.State = model.StateLapsed
	lapsed.LapseCount = 3
	lapsed.EaseFactor = 1.3
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: lapsed}))

	stats, err := pgstore.GetUserStats(ctx, UserStatsRequest{UserID: "user-1", AsOf: now})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalTracked)
	assert.Equal(t, 1, stats.DueNow)
	assert.Equal(t, 1, stats.Learned)
	assert.Equal(t, 3, stats.Lapses)
	assert.InDelta(t, 2.0, stats.AvgEaseFactor, 1e-9)
}

func TestGetUserStats_EmptyUser(t *testing.T) {
	truncate(t)

	stats, err := pgstore.GetUserStats(context.Background(), UserStatsRequest{UserID: "nobody", AsOf: time.Now()})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalTracked)
	assert.Equal(t, 2.5, stats.AvgEaseFactor)
}

func TestGetCategoryCounts(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-1", 10, now.Add(-time.Hour))}))
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-1", 20, now.Add(time.Hour))}))
	require.NoError(t, pgstore.UpsertRecord(ctx, UpsertRecordRequest{Record: makeRecord("user-1", 99, now.Add(-time.Hour))}))

	counts, err := pgstore.GetCategoryCounts(ctx, CategoryCountsRequest{
		UserID:  "user-1",
		ItemIDs: []int64{10, 20, 30},
		AsOf:    now,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, counts.Tracked)
	assert.Equal(t, 1, counts.DueNow)
}
