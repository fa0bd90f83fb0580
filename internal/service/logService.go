package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/proxylogs/proxylogs/internal/models"
	"github.com/proxylogs/proxylogs/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LogStore is the persistence surface the query service depends on.
// *repository.LogRepository satisfies it.
type LogStore interface {
	FindLogs(ctx context.Context, f repository.LogFilter, limit, offset int) (int64, []models.APILog, error)
	DailyStats(ctx context.Context, f repository.StatsFilter) ([]repository.DailyStat, error)
	StatusCodeStats(ctx context.Context, dr repository.DateRange) ([]repository.StatusCodeStat, error)
	TopPaths(ctx context.Context, dr repository.DateRange, limit int) ([]repository.PathStat, error)
	HourlyTrend(ctx context.Context, dr repository.DateRange) ([]repository.HourlyStat, error)
}

// LogQuery is the loosely-typed filter bag as received from the admin API.
// Values are raw strings; normalization happens here, at the engine
// boundary. Blank or unparsable values contribute no predicate.
type LogQuery struct {
	Page           int
	PageSize       int
	RequestMethod  string
	RequestPath    string
	ResponseStatus string
	Success        string
	StartDate      string
	EndDate        string
}

type StatsQuery struct {
	StartDate     string
	EndDate       string
	RequestPath   string
	RequestMethod string
}

type RangeQuery struct {
	StartDate string
	EndDate   string
}

// LogPage is one page of log rows plus pagination metadata.
type LogPage struct {
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
	Data       []models.APILog `json:"data"`
}

// Overview summarizes today's traffic.
type Overview struct {
	Today           string  `json:"today"`
	TotalRequests   int64   `json:"totalRequests"`
	SuccessRequests int64   `json:"successRequests"`
	FailedRequests  int64   `json:"failedRequests"`
	AvgDuration     int64   `json:"avgDuration"`
	SuccessRate     float64 `json:"successRate"`
}

type LogService struct {
	store LogStore
}

func NewLogService(store LogStore) *LogService {
	return &LogService{store: store}
}

// GetLogs returns one page of logs, newest first. Page and page size are
// clamped before use.
func (s *LogService) GetLogs(ctx context.Context, q LogQuery) (*LogPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := repository.LogFilter{
		RequestMethod:  strings.TrimSpace(q.RequestMethod),
		RequestPath:    strings.TrimSpace(q.RequestPath),
		ResponseStatus: parseIntField(q.ResponseStatus),
		Success:        parseBoolField(q.Success),
		StartDate:      ParseDateTime(q.StartDate),
		EndDate:        ParseDateTime(q.EndDate),
	}

	offset := (page - 1) * pageSize
	total, logs, err := s.store.FindLogs(ctx, filter, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &LogPage{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		Data:       logs,
	}, nil
}

// GetStats returns per-day request totals, newest day first.
func (s *LogService) GetStats(ctx context.Context, q StatsQuery) ([]repository.DailyStat, error) {
	filter := repository.StatsFilter{
		StartDate:     ParseDateTime(q.StartDate),
		EndDate:       ParseDateTime(q.EndDate),
		RequestPath:   strings.TrimSpace(q.RequestPath),
		RequestMethod: strings.TrimSpace(q.RequestMethod),
	}
	return s.store.DailyStats(ctx, filter)
}

func (s *LogService) GetStatusCodeStats(ctx context.Context, q RangeQuery) ([]repository.StatusCodeStat, error) {
	return s.store.StatusCodeStats(ctx, toDateRange(q))
}

func (s *LogService) GetTopPaths(ctx context.Context, q RangeQuery, limit int) ([]repository.PathStat, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.TopPaths(ctx, toDateRange(q), limit)
}

func (s *LogService) GetHourlyTrend(ctx context.Context, q RangeQuery) ([]repository.HourlyStat, error) {
	return s.store.HourlyTrend(ctx, toDateRange(q))
}

// GetOverview derives today's summary from the daily stats query bounded
// to the current calendar day. Rows are stored as UTC instants and the
// daily grouping is evaluated in UTC, so the window must be the UTC day
// or the two drift apart on hosts running in another zone.
func (s *LogService) GetOverview(ctx context.Context) (*Overview, error) {
	day := now.With(time.Now().UTC())
	dayStart := day.BeginningOfDay()
	dayEnd := day.EndOfDay()

	stats, err := s.store.DailyStats(ctx, repository.StatsFilter{
		StartDate: &dayStart,
		EndDate:   &dayEnd,
	})
	if err != nil {
		return nil, err
	}

	overview := &Overview{Today: dayStart.Format("2006-01-02")}
	if len(stats) == 0 {
		return overview, nil
	}

	today := stats[0]
	overview.TotalRequests = today.TotalRequests
	overview.SuccessRequests = today.SuccessRequests
	overview.FailedRequests = today.FailedRequests
	overview.AvgDuration = int64(math.Round(today.AvgDuration))
	if today.TotalRequests > 0 {
		rate := float64(today.SuccessRequests) / float64(today.TotalRequests) * 100
		overview.SuccessRate = math.Round(rate*100) / 100
	}

	return overview, nil
}

// ParseDateTime normalizes a datetime-local value ("2025-11-25T00:00") to a
// timestamp. Missing seconds default to :00. Blank or unparsable input is
// treated as absent.
func ParseDateTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	s = strings.Replace(s, "T", " ", 1)
	t, err := now.Parse(s)
	if err != nil {
		return nil
	}
	return &t
}

func toDateRange(q RangeQuery) repository.DateRange {
	return repository.DateRange{
		Start: ParseDateTime(q.StartDate),
		End:   ParseDateTime(q.EndDate),
	}
}

func parseIntField(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func parseBoolField(s string) *bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}
