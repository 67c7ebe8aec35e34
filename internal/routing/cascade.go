package routing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"voip-routing/internal/metrics"
	"voip-routing/internal/models"
	"voip-routing/internal/store"
)

// RouteConfig is a tenant's effective routing configuration: its own
// overrides on top of the deployment defaults.
type RouteConfig struct {
	InternalPrefix  string
	VoicemailPrefix string
	PSTNGateway     string
	E164Enabled     bool
	Hook            string
}

// Defaults are the deployment-wide routing settings.
type Defaults struct {
	InternalPrefix  string
	VoicemailPrefix string
	PSTNGateway     string
	E164Enabled     bool
	HookTimeout     time.Duration
}

// DefaultRouting returns the built-in defaults.
func DefaultRouting() Defaults {
	return Defaults{
		InternalPrefix:  "9",
		VoicemailPrefix: "*9",
		PSTNGateway:     "pstn",
		E164Enabled:     true,
		HookTimeout:     500 * time.Millisecond,
	}
}

// For merges the tenant's overrides onto d.
func (d Defaults) For(t models.Tenant) RouteConfig {
	cfg := RouteConfig{
		InternalPrefix:  d.InternalPrefix,
		VoicemailPrefix: d.VoicemailPrefix,
		PSTNGateway:     d.PSTNGateway,
		E164Enabled:     d.E164Enabled,
		Hook:            t.Routing.Hook,
	}
	if t.Routing.InternalPrefix != "" {
		cfg.InternalPrefix = t.Routing.InternalPrefix
	}
	if t.Routing.VoicemailPrefix != "" {
		cfg.VoicemailPrefix = t.Routing.VoicemailPrefix
	}
	if t.Routing.PSTNGateway != "" {
		cfg.PSTNGateway = t.Routing.PSTNGateway
	}
	if t.Routing.E164Enabled != nil {
		cfg.E164Enabled = *t.Routing.E164Enabled
	}
	return cfg
}

// Cascade is the fixed-order routing strategy chain. The first strategy
// that yields a target wins.
type Cascade struct {
	Hooks       *HookRegistry
	HookTimeout time.Duration
	Logger      *slog.Logger
}

// Resolve runs, in order: direct extension, internal-dial prefix,
// voicemail prefix, SIP URI, PSTN, custom hook, no route.
func (c *Cascade) Resolve(ctx context.Context, s store.DirectoryStore, tenant models.Tenant, dest Destination, cfg RouteConfig) Decision {
	v := dest.Value

	if dest.ExtensionShaped() {
		if _, ok := s.Extension(tenant.ID, v); ok {
			return bridge(StrategyExtension, "user_"+v, userTarget(v, tenant.Domain))
		}
	}

	if ext, ok := cutPrefix(v, cfg.InternalPrefix); ok {
		if _, found := s.Extension(tenant.ID, ext); found {
			return bridge(StrategyInternalPrefix, "user_"+ext, userTarget(ext, tenant.Domain))
		}
	}

	if ext, ok := cutPrefix(v, cfg.VoicemailPrefix); ok {
		if _, found := s.Extension(tenant.ID, ext); found {
			return voicemail(ext, tenant.Domain)
		}
	}

	if user, domain, ok := strings.Cut(v, "@"); ok && user != "" && domain != "" {
		return bridge(StrategySIPURI, "sip_uri", userTarget(user, domain))
	}

	if d, ok := c.pstn(s, tenant, v, cfg); ok {
		return d
	}

	if cfg.Hook != "" {
		if d, ok := c.hook(ctx, tenant, v, cfg.Hook); ok {
			return d
		}
	}

	return NoRoute()
}

func (c *Cascade) pstn(s store.DirectoryStore, tenant models.Tenant, v string, cfg RouteConfig) (Decision, bool) {
	var number string
	switch {
	case international.MatchString(v):
		number = v[2:]
	case cfg.E164Enabled && e164Shape.MatchString(v):
		number = strings.TrimPrefix(v, "+")
	default:
		return Decision{}, false
	}

	if m, ok := MatchOutbound(s, tenant, v, cfg.PSTNGateway, c.logger()); ok {
		var pre []Action
		if cid, ok := SelectCallerID(s, tenant.ID, m.Gateway.ID); ok {
			pre = callerIDActions(cid)
		}
		label := "outbound_" + m.Route.ID
		return bridge(StrategyOutboundRoute, label, gatewayTarget(m.Gateway.Name, m.Number), pre...), true
	}

	if cfg.PSTNGateway == "" {
		c.logger().Warn("pstn destination without gateway", "tenant", tenant.ID, "destination", v)
		return Decision{}, false
	}
	var pre []Action
	if cid, ok := SelectCallerID(s, tenant.ID, ""); ok {
		pre = callerIDActions(cid)
	}
	return bridge(StrategyPSTN, "pstn", gatewayTarget(cfg.PSTNGateway, number), pre...), true
}

func (c *Cascade) hook(ctx context.Context, tenant models.Tenant, v, name string) (Decision, bool) {
	h, timeout, err := c.Hooks.Lookup(name)
	if err != nil {
		c.logger().Warn("tenant routing hook not registered", "tenant", tenant.ID, "hook", name)
		return Decision{}, false
	}

	if timeout == 0 {
		timeout = c.HookTimeout
	}

	reqID := uuid.NewString()
	target, err := callHook(ctx, h, HookRequest{
		RequestID:   reqID,
		TenantID:    tenant.ID,
		Domain:      tenant.Domain,
		Destination: v,
	}, timeout)
	if err != nil {
		metrics.HookFailures.WithLabelValues(name).Inc()
		c.logger().Warn("routing hook gave no result",
			"tenant", tenant.ID,
			"hook", name,
			"hook_request_id", reqID,
			"destination", v,
			"error", err,
		)
		return Decision{}, false
	}
	return bridge(StrategyHook, "hook_"+name, target), true
}

func cutPrefix(v, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(v, prefix)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

func (c *Cascade) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
