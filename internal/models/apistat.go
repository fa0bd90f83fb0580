package models

import "time"

// APIStat is a pre-aggregated daily statistics row keyed by
// (date, path, method). The table is provisioned by migration for external
// aggregation jobs; the proxy itself never reads or writes it.
type APIStat struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Date            time.Time `gorm:"type:date;not null;uniqueIndex:idx_date_path_method" json:"date"`
	RequestPath     string    `gorm:"size:500;uniqueIndex:idx_date_path_method" json:"request_path"`
	RequestMethod   string    `gorm:"size:10;uniqueIndex:idx_date_path_method" json:"request_method"`
	TotalRequests   int       `gorm:"default:0" json:"total_requests"`
	SuccessRequests int       `gorm:"default:0" json:"success_requests"`
	FailedRequests  int       `gorm:"default:0" json:"failed_requests"`
	AvgDuration     int       `gorm:"default:0" json:"avg_duration"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (APIStat) TableName() string {
	return "api_stats"
}
