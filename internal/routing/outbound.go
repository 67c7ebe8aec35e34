package routing

import (
	"log/slog"
	"sort"
	"strings"

	"voip-routing/internal/models"
	"voip-routing/internal/store"
)

// OutboundMatch is the gateway and the number to send to it.
type OutboundMatch struct {
	Route   models.OutboundRoute
	Gateway models.Gateway
	Number  string
}

// MatchOutbound picks the tenant's outbound route for dialed. Candidates are
// enabled routes whose prefix starts dialed; they are ordered by priority,
// then longer prefix, then declaration order. Routes whose gateway is
// missing or disabled are skipped. A route without a gateway uses
// defaultGateway. The prefix is matched against dialed as given, but the
// leading + of an E.164 number never reaches the gateway: StripDigits
// counts digits after it.
func MatchOutbound(s store.DirectoryStore, tenant models.Tenant, dialed, defaultGateway string, logger *slog.Logger) (OutboundMatch, bool) {
	var candidates []models.OutboundRoute
	for _, r := range s.OutboundRoutes(tenant.ID) {
		if r.TenantID != tenant.ID || !r.Enabled {
			continue
		}
		if strings.HasPrefix(dialed, r.MatchPrefix) {
			candidates = append(candidates, r)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return len(candidates[i].MatchPrefix) > len(candidates[j].MatchPrefix)
	})

	for _, r := range candidates {
		gw, ok := routeGateway(s, r, defaultGateway)
		if !ok {
			if logger != nil {
				logger.Warn("outbound route skipped, gateway unavailable",
					"tenant", tenant.ID,
					"route", r.ID,
					"gateway_id", r.GatewayID,
				)
			}
			continue
		}
		return OutboundMatch{
			Route:   r,
			Gateway: gw,
			Number:  TransformNumber(strings.TrimPrefix(dialed, "+"), r.StripDigits, r.Prepend),
		}, true
	}
	return OutboundMatch{}, false
}

func routeGateway(s store.DirectoryStore, r models.OutboundRoute, defaultGateway string) (models.Gateway, bool) {
	if r.GatewayID == "" {
		if defaultGateway == "" {
			return models.Gateway{}, false
		}
		return models.Gateway{Name: defaultGateway, Enabled: true}, true
	}
	gw, ok := s.Gateway(r.GatewayID)
	if !ok || !gw.Enabled {
		return models.Gateway{}, false
	}
	if gw.TenantID != "" && gw.TenantID != r.TenantID {
		return models.Gateway{}, false
	}
	return gw, true
}

// TransformNumber removes strip leading characters, then prepends prepend.
func TransformNumber(number string, strip int, prepend string) string {
	if strip > len(number) {
		strip = len(number)
	}
	if strip > 0 {
		number = number[strip:]
	}
	return prepend + number
}

// SelectCallerID picks the outbound caller ID for a call through gatewayID.
// Active entries scoped to that gateway are preferred over tenant-wide
// ones; within a scope the highest weight wins, ties go to the first
// declared.
func SelectCallerID(s store.DirectoryStore, tenantID, gatewayID string) (models.CallerID, bool) {
	var scoped, wide *models.CallerID
	pool := s.CallerIDs(tenantID)
	for i := range pool {
		c := &pool[i]
		if !c.Active || c.Number == "" {
			continue
		}
		switch {
		case gatewayID != "" && c.GatewayID == gatewayID:
			if scoped == nil || c.Weight > scoped.Weight {
				scoped = c
			}
		case c.GatewayID == "":
			if wide == nil || c.Weight > wide.Weight {
				wide = c
			}
		}
	}
	if scoped != nil {
		return *scoped, true
	}
	if wide != nil {
		return *wide, true
	}
	return models.CallerID{}, false
}

func callerIDActions(c models.CallerID) []Action {
	out := []Action{{Application: "set", Data: "effective_caller_id_number=" + c.Number}}
	if c.Name != "" {
		out = append(out, Action{Application: "set", Data: "effective_caller_id_name=" + c.Name})
	}
	return out
}
