package routing

import (
	"log/slog"
	"strings"

	"voip-routing/internal/models"
	"voip-routing/internal/store"
)

const contextPrefix = "context_"

// TenantSignals is whatever identity the switch put on the request.
type TenantSignals struct {
	Domain      string
	Realm       string
	Context     string
	Destination string
	Username    string
}

// TenantResolver picks the acting tenant. It never fails: when no signal
// matches, the default tenant is returned.
type TenantResolver struct {
	DefaultTenantID string
	Logger          *slog.Logger
}

// Resolve returns the tenant and the name of the signal that selected it.
func (r *TenantResolver) Resolve(s store.DirectoryStore, sig TenantSignals) (models.Tenant, string) {
	domain, altDomain := sig.Domain, sig.Realm
	if domain == "" {
		domain, altDomain = sig.Realm, ""
	}

	if domain != "" {
		if t, ok := s.TenantByDomain(domain); ok {
			return t, "domain"
		}
	}

	if id, ok := strings.CutPrefix(sig.Context, contextPrefix); ok && id != "" {
		if t, ok := s.TenantByID(id); ok {
			return t, "context"
		}
	}

	key := Normalize(sig.Destination).Value
	if key == "" {
		key = sig.Username
	}
	if key != "" {
		if exts := s.ExtensionsByID(key); len(exts) > 0 {
			if t, ok := s.TenantByID(exts[0].TenantID); ok {
				return t, "extension"
			}
		}
		if t, ok := tenantByDID(s, key); ok {
			return t, "did"
		}
	}

	if altDomain != "" && !strings.EqualFold(altDomain, domain) {
		if t, ok := s.TenantByDomain(altDomain); ok {
			return t, "realm"
		}
	}

	return r.fallback(s, sig), "default"
}

func tenantByDID(s store.DirectoryStore, did string) (models.Tenant, bool) {
	var (
		best  models.InboundRoute
		found bool
	)
	for _, rt := range s.InboundRoutesByDID(did) {
		if !rt.Enabled {
			continue
		}
		if !found || rt.Priority < best.Priority {
			best, found = rt, true
		}
	}
	if !found {
		return models.Tenant{}, false
	}
	return s.TenantByID(best.TenantID)
}

func (r *TenantResolver) fallback(s store.DirectoryStore, sig TenantSignals) models.Tenant {
	if r.DefaultTenantID != "" {
		if t, ok := s.TenantByID(r.DefaultTenantID); ok {
			return t
		}
	}
	if ts := s.Tenants(); len(ts) > 0 {
		return ts[0]
	}

	r.logger().Warn("directory snapshot has no tenants, using synthetic default",
		"domain", sig.Domain,
		"destination", sig.Destination,
	)
	return models.Tenant{ID: "default", Name: "default", Domain: "default"}
}

func (r *TenantResolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
