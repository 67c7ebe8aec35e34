package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voip-routing/internal/models"
	"voip-routing/internal/store"
)

func boolPtr(b bool) *bool { return &b }

// fixtureDataset is a two-tenant deployment shared by the routing tests.
func fixtureDataset() *store.Dataset {
	return &store.Dataset{
		Tenants: []models.Tenant{
			{ID: "t1", Name: "Acme", Domain: "t1.local"},
			{ID: "t2", Name: "Globex", Domain: "t2.local", Routing: models.RoutingConfig{
				InternalPrefix: "8",
				E164Enabled:    boolPtr(false),
				Hook:           "lookup",
			}},
		},
		Extensions: []models.Extension{
			{ID: "1001", TenantID: "t1", Password: "p@ss", DisplayName: "Alice"},
			{ID: "1002", TenantID: "t1", Password: "secret2"},
			{ID: "3003", TenantID: "t2", Password: "other"},
		},
		Gateways: []models.Gateway{
			{ID: "gw1", TenantID: "t1", Name: "acme-trunk", Enabled: true},
			{ID: "gw-off", TenantID: "t1", Name: "acme-backup", Enabled: false},
			{ID: "gw2", TenantID: "t2", Name: "globex-trunk", Enabled: true},
		},
		OutboundRoutes: []models.OutboundRoute{
			{ID: "de-backup", TenantID: "t1", MatchPrefix: "0049", GatewayID: "gw-off", Priority: 1, Enabled: true},
			{ID: "de", TenantID: "t1", MatchPrefix: "0049", GatewayID: "gw1", Priority: 10, StripDigits: 2, Enabled: true},
			{ID: "foreign-gw", TenantID: "t1", MatchPrefix: "0033", GatewayID: "gw2", Priority: 1, Enabled: true},
		},
		CallerIDs: []models.CallerID{
			{ID: "wide", TenantID: "t1", Number: "842811111", Weight: 5, Active: true},
			{ID: "de", TenantID: "t1", GatewayID: "gw1", Number: "4930123456", Name: "Acme DE", Weight: 1, Active: true},
		},
		InboundRoutes: []models.InboundRoute{
			{ID: "main-line", TenantID: "t1", DIDNumber: "842812345678", DestinationType: models.DestIVR, DestinationValue: "main", Priority: 1, Enabled: true},
			{ID: "vm-line", TenantID: "t1", DIDNumber: "842899999999", DestinationType: models.DestExtension, DestinationValue: "1002", Priority: 5, Enabled: true},
			{ID: "vm-line-first", TenantID: "t1", DIDNumber: "842899999999", DestinationType: models.DestVoicemail, DestinationValue: "1001", Priority: 1, Enabled: true},
			{ID: "dangling", TenantID: "t1", DIDNumber: "842800000000", DestinationType: models.DestExtension, DestinationValue: "7777", Priority: 1, Enabled: true},
			{ID: "globex-line", TenantID: "t2", DIDNumber: "842877777777", DestinationType: models.DestSIPURI, DestinationValue: "sofia/external/ops@pbx.globex.example", Priority: 1, Enabled: true},
		},
		IvrMenus: []models.IvrMenu{
			{ID: "main", TenantID: "t1", Name: "Main", Greeting: "ivr/acme-welcome.wav", Options: []models.IvrMenuOption{
				{Digit: "2", ActionType: models.DestVoicemail, ActionValue: "1002", Position: 2},
				{Digit: "1", ActionType: models.DestExtension, ActionValue: "1001", Position: 1},
			}},
		},
		DialplanRules: []models.DialplanRule{
			{ID: "support-next", TenantID: "t1", MatchType: models.MatchPrefix, Pattern: "5", Priority: 2, Enabled: true,
				Actions: []models.DialplanAction{{Position: 1, Application: "hangup", Data: "CALL_REJECTED"}}},
			{ID: "support", TenantID: "t1", MatchType: models.MatchExact, Pattern: "500", Priority: 1, Enabled: true, StopOnMatch: true,
				Actions: []models.DialplanAction{
					{Position: 2, Application: "playback", Data: "ivr/support.wav"},
					{Position: 1, Application: "answer"},
				}},
			{ID: "tag-1002", TenantID: "t1", MatchType: models.MatchExact, Pattern: "1002", Priority: 3, Enabled: true, InheritDefault: true, Record: true,
				Actions: []models.DialplanAction{{Position: 1, Application: "set", Data: "call_tag=vip"}}},
			{ID: "tag-vm", TenantID: "t1", MatchType: models.MatchExact, Pattern: "*91001", Priority: 3, Enabled: true, InheritDefault: true,
				Actions: []models.DialplanAction{{Position: 1, Application: "set", Data: "call_tag=vm"}}},
		},
	}
}

func fixtureSnapshot(t *testing.T) store.DirectoryStore {
	t.Helper()

	h := store.NewHolder()
	_, err := h.Publish(fixtureDataset())
	require.NoError(t, err)
	return h.Snapshot()
}

func tenant(t *testing.T, s store.DirectoryStore, id string) models.Tenant {
	t.Helper()

	tn, ok := s.TenantByID(id)
	require.True(t, ok, "tenant %s", id)
	return tn
}

func applications(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Application)
	}
	return out
}
