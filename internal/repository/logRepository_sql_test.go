package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/proxylogs/proxylogs/internal/storage"
)

// newMockRepo backs the repository with a sqlmock connection so the
// generated SQL and its bound parameters can be asserted without a live
// database.
func newMockRepo(t *testing.T) (*LogRepository, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewLogRepository(&storage.Postgres{DB: db}, 0), mock
}

func TestSaveLogInsertsOneRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "api_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	id, err := repo.SaveLog(context.Background(), LogEntry{
		RequestMethod: "GET",
		RequestPath:   "/api/users",
	})
	require.NoError(t, err)

	assert.Equal(t, uint(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLogsBindsEveryParameter(t *testing.T) {
	repo, mock := newMockRepo(t)

	status := 404
	filter := LogFilter{RequestMethod: "GET", ResponseStatus: &status}

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM api_logs WHERE 1=1 AND request_method = $1 AND response_status = $2")).
		WithArgs("GET", 404).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	// LIMIT and OFFSET ride along as placeholders, never interpolated.
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM api_logs WHERE 1=1 AND request_method = $1 AND response_status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("GET", 404, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_method"}).
			AddRow(11, "GET").
			AddRow(12, "GET"))

	total, logs, err := repo.FindLogs(context.Background(), filter, 10, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(25), total)
	require.Len(t, logs, 2)
	assert.Equal(t, uint(11), logs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyStatsGroupsByUTCDay(t *testing.T) {
	repo, mock := newMockRepo(t)

	start := time.Date(2025, 11, 25, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 11, 25, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery(`GROUP BY DATE\(created_at AT TIME ZONE 'UTC'\)`).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(
			[]string{"date", "total_requests", "success_requests", "failed_requests", "avg_duration"}).
			AddRow("2025-11-25", 25, 20, 5, 12.5))

	stats, err := repo.DailyStats(context.Background(), StatsFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)

	require.Len(t, stats, 1)
	assert.Equal(t, "2025-11-25", stats[0].Date)
	assert.Equal(t, int64(25), stats[0].TotalRequests)
	assert.Equal(t, int64(20), stats[0].SuccessRequests)
	assert.Equal(t, int64(5), stats[0].FailedRequests)
	assert.InDelta(t, 12.5, stats[0].AvgDuration, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusCodeStatsSharesRangeWithSubquery(t *testing.T) {
	repo, mock := newMockRepo(t)

	start := time.Date(2025, 11, 25, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC)

	// The percentage denominator subquery and the outer WHERE take the
	// same pair of bounds, in that order.
	mock.ExpectQuery(`ROUND\(COUNT\(\*\) \* 100\.0 /`).
		WithArgs(start, end, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"status_code", "count", "percentage"}).
			AddRow(200, 8, 80.0).
			AddRow(nil, 2, 20.0))

	stats, err := repo.StatusCodeStats(context.Background(), DateRange{Start: &start, End: &end})
	require.NoError(t, err)

	require.Len(t, stats, 2)
	require.NotNil(t, stats[0].StatusCode)
	assert.Equal(t, 200, *stats[0].StatusCode)
	assert.Nil(t, stats[1].StatusCode)
	assert.InDelta(t, 100.0, stats[0].Percentage+stats[1].Percentage, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopPathsBindsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	start := time.Date(2025, 11, 25, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`GROUP BY request_path`).
		WithArgs(start, end, 5).
		WillReturnRows(sqlmock.NewRows(
			[]string{"request_path", "count", "avg_duration", "success_count", "success_rate"}).
			AddRow("/api/users", 12, 30.5, 11, 91.67))

	stats, err := repo.TopPaths(context.Background(), DateRange{Start: &start, End: &end}, 5)
	require.NoError(t, err)

	require.Len(t, stats, 1)
	assert.Equal(t, "/api/users", stats[0].RequestPath)
	assert.Equal(t, int64(12), stats[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHourlyTrendExtractsUTCHour(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`EXTRACT\(HOUR FROM created_at AT TIME ZONE 'UTC'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"hour", "count", "avg_duration"}).
			AddRow(0, 3, 10.0).
			AddRow(23, 1, 42.0))

	stats, err := repo.HourlyTrend(context.Background(), DateRange{})
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, 0, stats[0].Hour)
	assert.Equal(t, 23, stats[1].Hour)
	assert.NoError(t, mock.ExpectationsWereMet())
}
