package models

import (
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID           int64          `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	Content      string         `db:"content" json:"content"`
	Platforms    pq.StringArray `db:"platforms" json:"platforms"`
	PostKind     string         `db:"post_kind" json:"post_kind"`
	ScheduledAt  time.Time      `db:"scheduled_at" json:"scheduled_at"`
	Status       string         `db:"status" json:"status"`
	ErrorMessage string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

type MediaItem struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	StorageURL   string    `db:"storage_url" json:"storage_url"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
	PostStatusInactive  = "inactive_by_downgrade"
)

const (
	PostKindFeed  = "feed"
	PostKindStory = "story"
	PostKindReels = "reels"
)
