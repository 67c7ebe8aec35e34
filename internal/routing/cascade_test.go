package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voip-routing/internal/models"
	"voip-routing/internal/store"
)

func newCascade(hooks *HookRegistry) *Cascade {
	return &Cascade{Hooks: hooks, HookTimeout: 100 * time.Millisecond}
}

func TestCascadeStrategies(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t1 := tenant(t, s, "t1")
	cfg := DefaultRouting().For(t1)

	tests := []struct {
		name         string
		dialed       string
		wantStrategy string
		wantTarget   string
	}{
		{name: "direct extension", dialed: "1001", wantStrategy: StrategyExtension, wantTarget: "user/1001@t1.local"},
		{name: "internal prefix", dialed: "91001", wantStrategy: StrategyInternalPrefix, wantTarget: "user/1001@t1.local"},
		{name: "cross tenant uri", dialed: "2002@t2.local", wantStrategy: StrategySIPURI, wantTarget: "user/2002@t2.local"},
		{name: "international", dialed: "0084987654321", wantStrategy: StrategyPSTN, wantTarget: "sofia/gateway/pstn/84987654321"},
		{name: "e164 plus", dialed: "+84987654321", wantStrategy: StrategyPSTN, wantTarget: "sofia/gateway/pstn/84987654321"},
		{name: "outbound route", dialed: "004930123456", wantStrategy: StrategyOutboundRoute, wantTarget: "sofia/gateway/acme-trunk/4930123456"},
	}

	c := newCascade(nil)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := c.Resolve(context.Background(), s, t1, Normalize(tt.dialed), cfg)
			assert.Equal(t, DecisionBridge, d.Kind)
			assert.Equal(t, tt.wantStrategy, d.Strategy)
			assert.Equal(t, tt.wantTarget, d.Target)

			last := d.Actions[len(d.Actions)-1]
			assert.Equal(t, Action{Application: "bridge", Data: tt.wantTarget}, last)
		})
	}
}

func TestCascadeVoicemailShortCircuit(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t1 := tenant(t, s, "t1")

	d := newCascade(nil).Resolve(context.Background(), s, t1, Normalize("*91001"), DefaultRouting().For(t1))
	assert.True(t, d.Terminal)
	assert.Equal(t, StrategyVoicemail, d.Strategy)
	assert.Equal(t, []Action{
		{Application: "answer"},
		{Application: "lua", Data: "voicemail.lua check default t1.local 1001"},
	}, d.Actions)
	assert.NotContains(t, applications(d.Actions), "bridge")
}

func TestCascadeNoRoute(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t1 := tenant(t, s, "t1")
	c := newCascade(nil)

	for _, dialed := range []string{"abc", "*97777", "97777", "", "@t2.local"} {
		d := c.Resolve(context.Background(), s, t1, Normalize(dialed), DefaultRouting().For(t1))
		assert.Equal(t, DecisionNoRoute, d.Kind, dialed)
		assert.Equal(t, []Action{
			{Application: "answer"},
			{Application: "playback", Data: "ivr/ivr-that_was_an_invalid_entry.wav"},
			{Application: "hangup", Data: HangupNoRoute},
		}, d.Actions, dialed)
	}
}

func TestCascadeCallerIDOnPSTN(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t1 := tenant(t, s, "t1")
	c := newCascade(nil)

	// Gateway-scoped caller ID beats the heavier tenant-wide one.
	d := c.Resolve(context.Background(), s, t1, Normalize("004930123456"), DefaultRouting().For(t1))
	assert.Equal(t, []Action{
		{Application: "set", Data: "effective_caller_id_number=4930123456"},
		{Application: "set", Data: "effective_caller_id_name=Acme DE"},
		{Application: "bridge", Data: "sofia/gateway/acme-trunk/4930123456"},
	}, d.Actions)

	d = c.Resolve(context.Background(), s, t1, Normalize("0084987654321"), DefaultRouting().For(t1))
	assert.Equal(t, "set", d.Actions[0].Application)
	assert.Equal(t, "effective_caller_id_number=842811111", d.Actions[0].Data)
}

func TestCascadeE164ThroughCatchAllRoute(t *testing.T) {
	t.Parallel()

	ds := fixtureDataset()
	ds.OutboundRoutes = append(ds.OutboundRoutes,
		models.OutboundRoute{ID: "catch-all", TenantID: "t1", GatewayID: "gw1", Priority: 100, Enabled: true})
	s, err := store.Build(ds)
	require.NoError(t, err)
	t1 := tenant(t, s, "t1")

	d := newCascade(nil).Resolve(context.Background(), s, t1, Normalize("+84987654321"), DefaultRouting().For(t1))
	assert.Equal(t, StrategyOutboundRoute, d.Strategy)
	assert.Equal(t, "sofia/gateway/acme-trunk/84987654321", d.Target)
	assert.NotContains(t, d.Target, "+")
}

func TestCascadeTenantOverrides(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t2 := tenant(t, s, "t2")
	cfg := DefaultRouting().For(t2)
	require.Equal(t, "8", cfg.InternalPrefix)
	require.False(t, cfg.E164Enabled)

	registry := NewHookRegistry()
	registry.Register("lookup", HookFunc(func(ctx context.Context, req HookRequest) (string, error) {
		if req.Destination == "+84987654321" {
			return "sofia/gateway/globex-trunk/84987654321", nil
		}
		return "", errors.New("unknown destination")
	}))
	c := newCascade(registry)

	d := c.Resolve(context.Background(), s, t2, Normalize("83003"), cfg)
	assert.Equal(t, "user/3003@t2.local", d.Target)

	d = c.Resolve(context.Background(), s, t2, Normalize("93003"), cfg)
	assert.Equal(t, DecisionNoRoute, d.Kind, "default internal prefix is overridden")

	// E.164 routing is off for t2, so the hook gets the call.
	d = c.Resolve(context.Background(), s, t2, Normalize("+84987654321"), cfg)
	assert.Equal(t, StrategyHook, d.Strategy)
	assert.Equal(t, "hook_lookup", d.Label)
	assert.Equal(t, "sofia/gateway/globex-trunk/84987654321", d.Target)

	// 00-prefixed numbers still route to the PSTN.
	d = c.Resolve(context.Background(), s, t2, Normalize("0084987654321"), cfg)
	assert.Equal(t, StrategyPSTN, d.Strategy)

	d = c.Resolve(context.Background(), s, t2, Normalize("abc"), cfg)
	assert.Equal(t, DecisionNoRoute, d.Kind, "hook failure falls through")
}

func TestCascadeUnregisteredHook(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t2 := tenant(t, s, "t2")

	d := newCascade(nil).Resolve(context.Background(), s, t2, Normalize("abc"), DefaultRouting().For(t2))
	assert.Equal(t, DecisionNoRoute, d.Kind)
}

func TestDefaultsFor(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	defaults := Defaults{InternalPrefix: "0", VoicemailPrefix: "*", PSTNGateway: "carrier", E164Enabled: false}

	cfg := defaults.For(tenant(t, s, "t1"))
	assert.Equal(t, RouteConfig{InternalPrefix: "0", VoicemailPrefix: "*", PSTNGateway: "carrier"}, cfg)

	cfg = defaults.For(tenant(t, s, "t2"))
	assert.Equal(t, "8", cfg.InternalPrefix)
	assert.Equal(t, "lookup", cfg.Hook)
}

func TestCascadeHookRequest(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t2 := tenant(t, s, "t2")

	seen := make(chan HookRequest, 1)
	registry := NewHookRegistry()
	registry.Register("lookup", HookFunc(func(ctx context.Context, req HookRequest) (string, error) {
		seen <- req
		return "user/ops@pbx.globex.example", nil
	}))

	d := newCascade(registry).Resolve(context.Background(), s, t2, Normalize("ops"), DefaultRouting().For(t2))
	assert.Equal(t, "user/ops@pbx.globex.example", d.Target)

	req := <-seen
	assert.Equal(t, "t2", req.TenantID)
	assert.Equal(t, "t2.local", req.Domain)
	assert.Equal(t, "ops", req.Destination)
	_, err := uuid.Parse(req.RequestID)
	assert.NoError(t, err)
}

func TestCascadePerHookTimeout(t *testing.T) {
	t.Parallel()

	s := fixtureSnapshot(t)
	t2 := tenant(t, s, "t2")
	cfg := DefaultRouting().For(t2)

	slow := func(delay time.Duration) RoutingHook {
		return HookFunc(func(ctx context.Context, req HookRequest) (string, error) {
			select {
			case <-time.After(delay):
				return "user/ops@pbx.globex.example", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
	}

	// The cascade default is 100ms; the hook's own deadline wins both ways.
	longer := NewHookRegistry()
	longer.RegisterWithTimeout("lookup", slow(200*time.Millisecond), time.Second)
	d := newCascade(longer).Resolve(context.Background(), s, t2, Normalize("ops"), cfg)
	assert.Equal(t, StrategyHook, d.Strategy)
	assert.Equal(t, "user/ops@pbx.globex.example", d.Target)

	shorter := NewHookRegistry()
	shorter.RegisterWithTimeout("lookup", slow(60*time.Millisecond), 10*time.Millisecond)
	d = newCascade(shorter).Resolve(context.Background(), s, t2, Normalize("ops"), cfg)
	assert.Equal(t, DecisionNoRoute, d.Kind)
}
