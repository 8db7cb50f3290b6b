package models

import "time"

type Subscription struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	PackageTier int       `db:"package_tier" json:"package_tier"`
	HasAiAddon  bool      `db:"has_ai_addon" json:"has_ai_addon"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Tier 0 is the free base tier; the downgrade deactivation rule applies when
// a subscription drops to it.
const TierFreemium = 0
