package plan

type Tier string
type Feature string
type Action string

const (
	FreeTier       Tier = "free"
	ProTier        Tier = "pro"
	EnterpriseTier Tier = "enterprise"
)

const (
	CustomBranding  Feature = "custom_branding"
	CustomDomain    Feature = "custom_domain"
	CustomCSS       Feature = "custom_css"
	RemoveBadge     Feature = "remove_badge"
	APIAccess       Feature = "api_access"
	PrioritySupport Feature = "priority_support"
)

// Tracked usage actions. Every quota counter is one of these.
const (
	ActionForms         Action = "forms"
	ActionResponses     Action = "responses"
	ActionStorage       Action = "storage"
	ActionAPICalls      Action = "api_calls"
	ActionAIGenerations Action = "ai_generations"
	ActionTeamMembers   Action = "team_members"
)

// Unlimited is the sentinel limit value. It must never be compared
// numerically against a counter.
const Unlimited int64 = -1

type Limits struct {
	Actions         map[Action]int64
	AllowedFeatures map[Feature]bool
}

var TierLimits = map[Tier]Limits{
	FreeTier: {
		Actions: map[Action]int64{
			ActionForms:         3,
			ActionResponses:     100,
			ActionStorage:       100 * 1024 * 1024, // bytes
			ActionAPICalls:      0,
			ActionAIGenerations: 10,
			ActionTeamMembers:   1,
		},
		AllowedFeatures: map[Feature]bool{
			CustomBranding:  false,
			CustomDomain:    false,
			CustomCSS:       false,
			RemoveBadge:     false,
			APIAccess:       false,
			PrioritySupport: false,
		},
	},
	ProTier: {
		Actions: map[Action]int64{
			ActionForms:         50,
			ActionResponses:     5000,
			ActionStorage:       5 * 1024 * 1024 * 1024,
			ActionAPICalls:      10000,
			ActionAIGenerations: 500,
			ActionTeamMembers:   5,
		},
		AllowedFeatures: map[Feature]bool{
			CustomBranding:  true,
			CustomDomain:    false,
			CustomCSS:       true,
			RemoveBadge:     true,
			APIAccess:       true,
			PrioritySupport: false,
		},
	},
	EnterpriseTier: {
		Actions: map[Action]int64{
			ActionForms:         Unlimited,
			ActionResponses:     Unlimited,
			ActionStorage:       Unlimited,
			ActionAPICalls:      Unlimited,
			ActionAIGenerations: Unlimited,
			ActionTeamMembers:   Unlimited,
		},
		AllowedFeatures: map[Feature]bool{
			CustomBranding:  true,
			CustomDomain:    true,
			CustomCSS:       true,
			RemoveBadge:     true,
			APIAccess:       true,
			PrioritySupport: true,
		},
	},
}

func ValidAction(a Action) bool {
	switch a {
	case ActionForms, ActionResponses, ActionStorage, ActionAPICalls, ActionAIGenerations, ActionTeamMembers:
		return true
	}
	return false
}

func CanUseFeature(tier Tier, feature Feature) bool {
	limits, exists := TierLimits[tier]
	if !exists {
		return false
	}
	return limits.AllowedFeatures[feature]
}

// LimitFor returns the plan limit for an action. Unknown tiers get the free
// tier limits; unknown actions get 0.
func LimitFor(tier Tier, action Action) int64 {
	limits, exists := TierLimits[tier]
	if !exists {
		limits = TierLimits[FreeTier]
	}
	limit, ok := limits.Actions[action]
	if !ok {
		return 0
	}
	return limit
}

func GetTierLimits(tier Tier) Limits {
	if limits, exists := TierLimits[tier]; exists {
		return limits
	}
	return TierLimits[FreeTier]
}
