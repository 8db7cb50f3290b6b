package transfer

import "github.com/simplifika/postline/internal/models"

type SubscriptionUpdateInput struct {
	PackageTier int  `json:"package_tier"`
	HasAiAddon  bool `json:"has_ai_addon"`
}

// SubscriptionInfo is the GET /api/subscription response: the current plan,
// this period's consumption, and the limits that apply to the plan.
type SubscriptionInfo struct {
	Subscription *models.Subscription `json:"subscription"`
	Usage        *models.UsageTracker `json:"usage"`
	Limits       *PackageLimits       `json:"limits"`
}

type PackageLimits struct {
	Posts    int `json:"posts"`
	AiTexts  int `json:"ai_texts"`
	AiImages int `json:"ai_images"`
}
