package models

import "time"

// APILog is one persisted request/response exchange.
type APILog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RequestID       string    `gorm:"size:64;not null;index" json:"request_id"`
	RequestMethod   string    `gorm:"size:10;index" json:"request_method"`
	RequestURL      string    `gorm:"size:1000" json:"request_url"`
	RequestPath     string    `gorm:"size:500;index" json:"request_path"`
	RequestQuery    *string   `gorm:"type:text" json:"request_query"`
	RequestHeaders  *string   `gorm:"type:text" json:"request_headers"`
	RequestBody     *string   `gorm:"type:text" json:"request_body"`
	ResponseStatus  *int      `gorm:"index" json:"response_status"`
	ResponseHeaders *string   `gorm:"type:text" json:"response_headers"`
	ResponseBody    *string   `gorm:"type:text" json:"response_body"`
	Duration        int64     `gorm:"not null;default:0" json:"duration"`
	Success         bool      `gorm:"index" json:"success"`
	ErrorMessage    *string   `gorm:"size:1000" json:"error_message"`
	IPAddress       string    `gorm:"size:50" json:"ip_address"`
	UserAgent       string    `gorm:"size:500" json:"user_agent"`
	CreatedAt       time.Time `gorm:"index;autoCreateTime" json:"created_at"`
}

func (APILog) TableName() string {
	return "api_logs"
}
