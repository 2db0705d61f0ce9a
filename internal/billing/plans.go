package billing

// PlanTier is the internal plan a subscription grants.
type PlanTier string

const (
	PlanFree  PlanTier = "free"
	PlanPro   PlanTier = "pro"
	PlanScale PlanTier = "scale"
)

// featureSets is the catalog of entitlements per tier. subscription_deleted
// reverts an account to FreeFeatures.
var featureSets = map[PlanTier][]string{
	PlanFree:  {"profile", "search", "messaging"},
	PlanPro:   {"profile", "search", "messaging", "opportunities", "analytics"},
	PlanScale: {"profile", "search", "messaging", "opportunities", "analytics", "priority_support", "team_seats"},
}

var planRank = map[PlanTier]int{
	PlanFree:  0,
	PlanPro:   1,
	PlanScale: 2,
}

// NormalizePlan maps unknown tiers to free rather than failing; the
// processor's catalog can run ahead of ours.
func NormalizePlan(tier string) PlanTier {
	p := PlanTier(tier)
	if _, ok := planRank[p]; ok {
		return p
	}
	return PlanFree
}

// FeaturesFor returns a copy of the tier's feature set.
func FeaturesFor(tier PlanTier) []string {
	return append([]string{}, featureSets[tier]...)
}
