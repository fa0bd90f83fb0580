package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/proxylogs/proxylogs/internal/models"
	"github.com/proxylogs/proxylogs/internal/storage"
)

// TooLargeMarker replaces any serialized body over the size ceiling.
// Truncating instead would corrupt JSON bodies, so the whole value is
// swapped for the marker.
const TooLargeMarker = "data too large"

// LogEntry is the flattened input of one proxied exchange, before
// serialization.
type LogEntry struct {
	RequestID       string
	RequestMethod   string
	RequestURL      string
	RequestPath     string
	RequestQuery    url.Values
	RequestHeaders  http.Header
	RequestBody     []byte
	ResponseStatus  *int
	ResponseHeaders http.Header
	ResponseBody    []byte
	Duration        int64
	Success         bool
	ErrorMessage    string
	IPAddress       string
	UserAgent       string
}

type LogRepository struct {
	db          *storage.Postgres
	maxBodySize int64
}

func NewLogRepository(db *storage.Postgres, maxBodySize int64) *LogRepository {
	if maxBodySize <= 0 {
		maxBodySize = 16 * 1024 * 1024
	}
	return &LogRepository{db: db, maxBodySize: maxBodySize}
}

// SaveLog persists one exchange and returns the row id. Absent optional
// fields get defined defaults; a missing request id is generated.
func (r *LogRepository) SaveLog(ctx context.Context, entry LogEntry) (uint, error) {
	var errMsg *string
	if entry.ErrorMessage != "" {
		errMsg = &entry.ErrorMessage
	}

	record := models.APILog{
		RequestID:       entry.RequestID,
		RequestMethod:   entry.RequestMethod,
		RequestURL:      entry.RequestURL,
		RequestPath:     entry.RequestPath,
		RequestQuery:    serializeValues(entry.RequestQuery),
		RequestHeaders:  serializeHeaders(entry.RequestHeaders),
		RequestBody:     r.serializeBody(entry.RequestBody),
		ResponseStatus:  entry.ResponseStatus,
		ResponseHeaders: serializeHeaders(entry.ResponseHeaders),
		ResponseBody:    r.serializeBody(entry.ResponseBody),
		Duration:        entry.Duration,
		Success:         entry.Success,
		ErrorMessage:    errMsg,
		IPAddress:       entry.IPAddress,
		UserAgent:       entry.UserAgent,
	}
	if record.RequestID == "" {
		record.RequestID = GenerateRequestID()
	}
	if record.Duration < 0 {
		record.Duration = 0
	}

	if err := r.db.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, fmt.Errorf("failed to save log: %w", err)
	}

	return record.ID, nil
}

// FindLogs counts the rows matching the filter, then fetches one page
// ordered newest first. Every dynamic value, including the pagination
// bounds, is a bound parameter.
func (r *LogRepository) FindLogs(ctx context.Context, f LogFilter, limit, offset int) (int64, []models.APILog, error) {
	where, args := f.conditions()

	var total int64
	countSQL := "SELECT COUNT(*) FROM api_logs WHERE " + where
	if err := r.db.DB.WithContext(ctx).Raw(countSQL, args...).Scan(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to count logs: %w", err)
	}

	logs := make([]models.APILog, 0, limit)
	pageSQL := "SELECT * FROM api_logs WHERE " + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	pageArgs := append(args, limit, offset)
	if err := r.db.DB.WithContext(ctx).Raw(pageSQL, pageArgs...).Scan(&logs).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to query logs: %w", err)
	}

	return total, logs, nil
}

// DailyStat is one calendar day of request totals.
type DailyStat struct {
	Date            string  `json:"date"`
	TotalRequests   int64   `json:"total_requests"`
	SuccessRequests int64   `json:"success_requests"`
	FailedRequests  int64   `json:"failed_requests"`
	AvgDuration     float64 `json:"avg_duration"`
}

func (r *LogRepository) DailyStats(ctx context.Context, f StatsFilter) ([]DailyStat, error) {
	where, args := f.conditions()

	// Rows carry UTC instants; grouping goes through AT TIME ZONE so the
	// calendar day does not depend on the session timezone.
	query := `
		SELECT
			DATE(created_at AT TIME ZONE 'UTC')::text AS date,
			COUNT(*) AS total_requests,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) AS success_requests,
			SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failed_requests,
			COALESCE(AVG(duration), 0) AS avg_duration
		FROM api_logs
		WHERE ` + where + `
		GROUP BY DATE(created_at AT TIME ZONE 'UTC')
		ORDER BY date DESC`

	var stats []DailyStat
	if err := r.db.DB.WithContext(ctx).Raw(query, args...).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}

	return stats, nil
}

// StatusCodeStat is the share of one response status within a range.
// StatusCode is nil for pure network failures.
type StatusCodeStat struct {
	StatusCode *int    `json:"status_code"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

func (r *LogRepository) StatusCodeStats(ctx context.Context, dr DateRange) ([]StatusCodeStat, error) {
	start, end := dr.Bounds()

	query := `
		SELECT
			response_status AS status_code,
			COUNT(*) AS count,
			ROUND(COUNT(*) * 100.0 / (SELECT COUNT(*) FROM api_logs WHERE created_at >= ? AND created_at <= ?), 2) AS percentage
		FROM api_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY response_status
		ORDER BY count DESC`

	var stats []StatusCodeStat
	if err := r.db.DB.WithContext(ctx).Raw(query, start, end, start, end).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to query status code stats: %w", err)
	}

	return stats, nil
}

// PathStat describes one request path's traffic within a range.
type PathStat struct {
	RequestPath  string  `json:"request_path"`
	Count        int64   `json:"count"`
	AvgDuration  float64 `json:"avg_duration"`
	SuccessCount int64   `json:"success_count"`
	SuccessRate  float64 `json:"success_rate"`
}

func (r *LogRepository) TopPaths(ctx context.Context, dr DateRange, limit int) ([]PathStat, error) {
	if limit <= 0 {
		limit = 10
	}
	start, end := dr.Bounds()

	query := `
		SELECT
			request_path,
			COUNT(*) AS count,
			COALESCE(AVG(duration), 0) AS avg_duration,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) AS success_count,
			ROUND(SUM(CASE WHEN success THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2) AS success_rate
		FROM api_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY request_path
		ORDER BY count DESC
		LIMIT ?`

	var stats []PathStat
	if err := r.db.DB.WithContext(ctx).Raw(query, start, end, limit).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to query top paths: %w", err)
	}

	return stats, nil
}

// HourlyStat is request volume for one hour of the day (0-23) across the
// range.
type HourlyStat struct {
	Hour        int     `json:"hour"`
	Count       int64   `json:"count"`
	AvgDuration float64 `json:"avg_duration"`
}

func (r *LogRepository) HourlyTrend(ctx context.Context, dr DateRange) ([]HourlyStat, error) {
	start, end := dr.Bounds()

	query := `
		SELECT
			EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC')::int AS hour,
			COUNT(*) AS count,
			COALESCE(AVG(duration), 0) AS avg_duration
		FROM api_logs
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC')
		ORDER BY hour ASC`

	var stats []HourlyStat
	if err := r.db.DB.WithContext(ctx).Raw(query, start, end).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to query hourly trend: %w", err)
	}

	return stats, nil
}

// GenerateRequestID builds a correlation id from the current timestamp and
// a random suffix. Good enough for debugging correlation, not cryptographic
// uniqueness.
func GenerateRequestID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

func serializeValues(values url.Values) *string {
	if len(values) == 0 {
		return nil
	}
	return marshalFlat(flattenValues(values))
}

func serializeHeaders(h http.Header) *string {
	if len(h) == 0 {
		return nil
	}
	return marshalFlat(flattenValues(url.Values(h)))
}

// serializeBody applies the size ceiling. Oversized bodies are replaced
// wholesale with the marker.
func (r *LogRepository) serializeBody(body []byte) *string {
	if body == nil {
		return nil
	}
	if int64(len(body)) > r.maxBodySize {
		marker := TooLargeMarker
		return &marker
	}
	s := string(body)
	return &s
}

func flattenValues(values url.Values) map[string]string {
	flat := make(map[string]string, len(values))
	for key, vals := range values {
		flat[key] = strings.Join(vals, ", ")
	}
	return flat
}

func marshalFlat(flat map[string]string) *string {
	data, err := json.Marshal(flat)
	if err != nil {
		// Best-effort fallback rather than dropping the record.
		s := fmt.Sprintf("%v", flat)
		return &s
	}
	s := string(data)
	return &s
}
