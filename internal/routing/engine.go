package routing

import (
	"context"
	"log/slog"

	"voip-routing/internal/metrics"
	"voip-routing/internal/models"
	"voip-routing/internal/store"
)

// Section names of the XML-fetch protocol.
const (
	SectionDialplan  = "dialplan"
	SectionDirectory = "directory"
)

// Request is one XML-fetch request after field-alias resolution.
type Request struct {
	Section     string
	Context     string
	Destination string
	Domain      string
	Realm       string
	User        string
}

// SnapshotSource hands out the directory snapshot to resolve against.
type SnapshotSource interface {
	Snapshot() store.DirectoryStore
}

// DialplanAnswer is the resolved dialplan for one call leg.
type DialplanAnswer struct {
	Context     string
	Destination string
	Tenant      models.Tenant
	Decision    Decision
}

// Options configures an Engine.
type Options struct {
	Defaults        Defaults
	DefaultTenantID string
	Hooks           *HookRegistry
	DirectorySecret []byte
}

// Engine resolves dialplan and directory requests. It holds no per-request
// state; each call reads one snapshot and uses it throughout.
type Engine struct {
	source    SnapshotSource
	defaults  Defaults
	tenants   *TenantResolver
	cascade   *Cascade
	rules     *RuleEngine
	directory *DirectoryResponder
	logger    *slog.Logger
}

func NewEngine(source SnapshotSource, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("subsystem", "routing")

	return &Engine{
		source:   source,
		defaults: opts.Defaults,
		tenants:  &TenantResolver{DefaultTenantID: opts.DefaultTenantID, Logger: logger},
		cascade: &Cascade{
			Hooks:       opts.Hooks,
			HookTimeout: opts.Defaults.HookTimeout,
			Logger:      logger,
		},
		rules:     &RuleEngine{Logger: logger},
		directory: &DirectoryResponder{Secret: opts.DirectorySecret, Logger: logger},
		logger:    logger,
	}
}

// ResolveDialplan never fails: unresolvable input yields the no-route
// decision.
func (e *Engine) ResolveDialplan(ctx context.Context, req Request) DialplanAnswer {
	snap := e.source.Snapshot()
	dest := Normalize(req.Destination)

	tenant, via := e.tenants.Resolve(snap, TenantSignals{
		Domain:      req.Domain,
		Realm:       req.Realm,
		Context:     req.Context,
		Destination: req.Destination,
		Username:    req.User,
	})
	cfg := e.defaults.For(tenant)

	decision := e.decide(ctx, snap, tenant, dest, cfg)

	contextName := req.Context
	if contextName == "" {
		contextName = tenant.Context()
	}

	metrics.RoutingDecisions.WithLabelValues(decision.Strategy).Inc()
	e.logger.Debug("dialplan resolved",
		"generation", snap.Generation(),
		"tenant", tenant.ID,
		"tenant_via", via,
		"context", contextName,
		"destination", dest.Value,
		"kind", dest.Kind.String(),
		"strategy", decision.Strategy,
		"target", decision.Target,
	)

	return DialplanAnswer{
		Context:     contextName,
		Destination: req.Destination,
		Tenant:      tenant,
		Decision:    decision,
	}
}

func (e *Engine) decide(ctx context.Context, snap store.DirectoryStore, tenant models.Tenant, dest Destination, cfg RouteConfig) Decision {
	if route, ok := MatchInbound(snap.InboundRoutes(tenant.ID), tenant.ID, dest.Value); ok {
		if d, ok := e.inbound(snap, tenant, route); ok {
			return d
		}
	}

	rr := e.rules.Evaluate(snap.Generation(), tenant, dest.Value, snap.DialplanRules(tenant.ID))
	if !rr.Matched {
		return e.cascade.Resolve(ctx, snap, tenant, dest, cfg)
	}

	d := Decision{
		Kind:     DecisionActions,
		Strategy: StrategyRules,
		Label:    "rule_" + rr.RuleIDs[0],
		Actions:  rr.Actions,
	}
	if rr.InheritDefault {
		fallback := e.cascade.Resolve(ctx, snap, tenant, dest, cfg)
		if fallback.Terminal {
			return fallback
		}
		d.Actions = append(append([]Action(nil), rr.Actions...), fallback.Actions...)
		d.Target = fallback.Target
	}
	return d
}

func (e *Engine) inbound(snap store.DirectoryStore, tenant models.Tenant, route models.InboundRoute) (Decision, bool) {
	label := "inbound_" + route.DIDNumber
	v := route.DestinationValue

	switch route.DestinationType {
	case models.DestExtension:
		if _, ok := snap.Extension(tenant.ID, v); ok {
			return bridge(StrategyInbound, label, userTarget(v, tenant.Domain)), true
		}
	case models.DestSIPURI:
		if v != "" {
			return bridge(StrategyInbound, label, v), true
		}
	case models.DestVoicemail:
		if _, ok := snap.Extension(tenant.ID, v); ok {
			d := voicemail(v, tenant.Domain)
			d.Strategy = StrategyInbound
			d.Label = label
			return d, true
		}
	case models.DestIVR:
		if menu, ok := snap.IvrMenu(tenant.ID, v); ok {
			return Decision{
				Kind:     DecisionActions,
				Strategy: StrategyInbound,
				Label:    label,
				Actions:  ivrActions(menu, tenant.Domain),
			}, true
		}
	}

	e.logger.Warn("inbound route destination unavailable, falling through",
		"tenant", tenant.ID,
		"route", route.ID,
		"did", route.DIDNumber,
		"destination_type", route.DestinationType,
		"destination_value", v,
	)
	return Decision{}, false
}

// ivrActions answers, plays the greeting and runs the first option.
func ivrActions(menu models.IvrMenu, domain string) []Action {
	actions := []Action{{Application: "answer"}}
	if menu.Greeting != "" {
		actions = append(actions, Action{Application: "playback", Data: menu.Greeting})
	}
	if len(menu.Options) == 0 {
		return actions
	}

	first := menu.Options[0]
	for _, o := range menu.Options[1:] {
		if o.Position < first.Position {
			first = o
		}
	}

	switch first.ActionType {
	case models.DestExtension:
		actions = append(actions, Action{Application: "bridge", Data: userTarget(first.ActionValue, domain)})
	case models.DestSIPURI:
		actions = append(actions, Action{Application: "bridge", Data: first.ActionValue})
	case models.DestVoicemail:
		actions = append(actions, voicemailAction(first.ActionValue, domain))
	case models.DestHangup:
		cause := first.ActionValue
		if cause == "" {
			cause = "NORMAL_CLEARING"
		}
		actions = append(actions, Action{Application: "hangup", Data: cause})
	}
	return actions
}

// ResolveDirectory always answers; unknown users get synthetic credentials.
func (e *Engine) ResolveDirectory(ctx context.Context, req Request) DirectoryAnswer {
	snap := e.source.Snapshot()

	tenant, via := e.tenants.Resolve(snap, TenantSignals{
		Domain:   req.Domain,
		Realm:    req.Realm,
		Context:  req.Context,
		Username: req.User,
	})

	ans := e.directory.Resolve(snap, tenant, req.User)
	e.logger.Debug("directory resolved",
		"generation", snap.Generation(),
		"tenant", tenant.ID,
		"tenant_via", via,
		"user", req.User,
		"synthetic", ans.Synthetic,
	)
	return ans
}
