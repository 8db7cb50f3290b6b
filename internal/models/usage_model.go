package models

import "time"

// UsageTracker counts billable actions per user and billing period
// ("YYYY-MM"). Trackers are created lazily and counters never decrease.
type UsageTracker struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Period       string    `db:"period" json:"period"`
	PostCount    int       `db:"post_count" json:"post_count"`
	AiTextCount  int       `db:"ai_text_count" json:"ai_text_count"`
	AiImageCount int       `db:"ai_image_count" json:"ai_image_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
