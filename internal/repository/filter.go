package repository

import (
	"time"
)

// LogFilter is the normalized predicate set for api_logs queries. Zero
// values mean "no constraint on this dimension".
type LogFilter struct {
	RequestMethod  string
	RequestPath    string
	ResponseStatus *int
	Success        *bool
	StartDate      *time.Time
	EndDate        *time.Time
}

// StatsFilter narrows the daily statistics query.
type StatsFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	RequestPath   string
	RequestMethod string
}

// DateRange bounds an aggregate query; nil bounds are unbounded.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Effectively unbounded defaults for absent range bounds.
var (
	rangeFloor   = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeCeiling = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Bounds resolves the range to concrete timestamps.
func (dr DateRange) Bounds() (time.Time, time.Time) {
	start, end := rangeFloor, rangeCeiling
	if dr.Start != nil {
		start = *dr.Start
	}
	if dr.End != nil {
		end = *dr.End
	}
	return start, end
}

// conditions builds the conjunctive WHERE fragment with bound parameters.
// Count and page queries share the exact same fragment so pagination never
// drifts from the total.
func (f LogFilter) conditions() (string, []interface{}) {
	where := "1=1"
	args := make([]interface{}, 0, 6)

	if f.RequestMethod != "" {
		where += " AND request_method = ?"
		args = append(args, f.RequestMethod)
	}
	if f.RequestPath != "" {
		where += " AND request_path LIKE ?"
		args = append(args, "%"+f.RequestPath+"%")
	}
	if f.ResponseStatus != nil {
		where += " AND response_status = ?"
		args = append(args, *f.ResponseStatus)
	}
	if f.Success != nil {
		where += " AND success = ?"
		args = append(args, *f.Success)
	}
	if f.StartDate != nil {
		where += " AND created_at >= ?"
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		where += " AND created_at <= ?"
		args = append(args, *f.EndDate)
	}

	return where, args
}

func (f StatsFilter) conditions() (string, []interface{}) {
	where := "1=1"
	args := make([]interface{}, 0, 4)

	if f.StartDate != nil {
		where += " AND created_at >= ?"
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		where += " AND created_at <= ?"
		args = append(args, *f.EndDate)
	}
	if f.RequestPath != "" {
		where += " AND request_path LIKE ?"
		args = append(args, "%"+f.RequestPath+"%")
	}
	if f.RequestMethod != "" {
		where += " AND request_method = ?"
		args = append(args, f.RequestMethod)
	}

	return where, args
}
