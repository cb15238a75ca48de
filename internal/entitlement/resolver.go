// Package entitlement maps subscription plans to the ping categories they
// unlock. All category gating lives here; nothing else in the codebase
// checks plan tiers.
package entitlement

import "github.com/pingmyweb/pingd/internal/ping"

// categoryMinTier is the fixed category-to-tier mapping.
var categoryMinTier = map[ping.Category]ping.Tier{
	ping.CategorySearchEngines:    ping.TierFree,
	ping.CategoryContentDiscovery: ping.TierPro,
	ping.CategoryAggregators:      ping.TierPro,
	ping.CategoryRegionalEngines:  ping.TierEnterprise,
	ping.CategoryWebSub:           ping.TierEnterprise,
}

// Entitlement is the resolved access of one user.
type Entitlement struct {
	Tier              ping.Tier
	AllowedCategories []ping.Category
}

// Allows reports whether the entitlement covers a category.
func (e Entitlement) Allows(category ping.Category) bool {
	for _, c := range e.AllowedCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Resolve computes the categories a plan may ping. Pure function of the plan
// row; no I/O.
func Resolve(plan ping.Plan) Entitlement {
	var allowed []ping.Category
	for _, c := range ping.AllCategories() {
		if plan.Tier.Covers(categoryMinTier[c]) {
			allowed = append(allowed, c)
		}
	}
	return Entitlement{Tier: plan.Tier, AllowedCategories: allowed}
}

// Restrict intersects the entitlement with a caller-requested subset.
// Requested categories the entitlement does not allow are silently dropped,
// never an error. An empty request keeps the full entitled set.
func (e Entitlement) Restrict(requested []ping.Category) []ping.Category {
	if len(requested) == 0 {
		out := make([]ping.Category, len(e.AllowedCategories))
		copy(out, e.AllowedCategories)
		return out
	}
	want := make(map[ping.Category]struct{}, len(requested))
	for _, c := range requested {
		want[c] = struct{}{}
	}
	var out []ping.Category
	for _, c := range e.AllowedCategories {
		if _, ok := want[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
