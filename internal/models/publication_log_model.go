package models

import "time"

// PublicationLog records one publish attempt against one platform. Rows are
// append-only and removed only together with the owning post.
type PublicationLog struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Platform     string    `db:"platform" json:"platform"`
	Status       string    `db:"status" json:"status"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PublicationSuccess = "success"
	PublicationFailed  = "failed"
)
