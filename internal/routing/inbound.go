package routing

import (
	"voip-routing/internal/models"
)

// MatchInbound returns the enabled route of the tenant whose DID equals did
// exactly. The lowest priority wins; equal priorities go to the first
// declared route.
func MatchInbound(routes []models.InboundRoute, tenantID, did string) (models.InboundRoute, bool) {
	var (
		best  models.InboundRoute
		found bool
	)
	if did == "" {
		return best, false
	}
	for _, r := range routes {
		if r.TenantID != tenantID || !r.Enabled || r.DIDNumber != did {
			continue
		}
		if !found || r.Priority < best.Priority {
			best, found = r, true
		}
	}
	return best, found
}
