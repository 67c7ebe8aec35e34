package models

// Tenant is one PBX customer. ID and Domain are both globally unique.
type Tenant struct {
	ID            string        `db:"id" yaml:"id"`
	Name          string        `db:"name" yaml:"name"`
	Domain        string        `db:"domain" yaml:"domain"`
	Routing       RoutingConfig `yaml:"routing"`
	MaxExtensions int           `db:"max_extensions" yaml:"max_extensions"`
}

// Context returns the dialplan/user context name owned by the tenant.
func (t Tenant) Context() string {
	return "context_" + t.ID
}

// RoutingConfig holds per-tenant routing overrides. Empty fields fall back
// to the deployment defaults.
type RoutingConfig struct {
	InternalPrefix  string `db:"internal_prefix" yaml:"internal_prefix"`
	VoicemailPrefix string `db:"voicemail_prefix" yaml:"voicemail_prefix"`
	PSTNGateway     string `db:"pstn_gateway" yaml:"pstn_gateway"`
	Hook            string `db:"routing_hook" yaml:"hook"`

	// E164Enabled is nil when the tenant does not override the default.
	E164Enabled *bool `db:"e164_enabled" yaml:"e164_enabled"`
}

type Extension struct {
	ID          string `db:"id" yaml:"id"`
	TenantID    string `db:"tenant_id" yaml:"tenant_id"`
	Password    string `db:"password" yaml:"password"`
	DisplayName string `db:"display_name" yaml:"display_name"`
}

type MatchType string

const (
	MatchRegex  MatchType = "regex"
	MatchPrefix MatchType = "prefix"
	MatchExact  MatchType = "exact"
)

type DialplanRule struct {
	ID             string           `db:"id" yaml:"id"`
	TenantID       string           `db:"tenant_id" yaml:"tenant_id"`
	Name           string           `db:"name" yaml:"name"`
	MatchType      MatchType        `db:"match_type" yaml:"match_type"`
	Pattern        string           `db:"pattern" yaml:"pattern"`
	Priority       int              `db:"priority" yaml:"priority"`
	Enabled        bool             `db:"enabled" yaml:"enabled"`
	StopOnMatch    bool             `db:"stop_on_match" yaml:"stop_on_match"`
	InheritDefault bool             `db:"inherit_default" yaml:"inherit_default"`
	Record         bool             `db:"record" yaml:"record"`
	Actions        []DialplanAction `yaml:"actions"`
}

type DialplanAction struct {
	Position    int    `db:"position" yaml:"position"`
	Application string `db:"application" yaml:"application"`
	Data        string `db:"data" yaml:"data"`
}

type DestinationType string

const (
	DestExtension DestinationType = "extension"
	DestSIPURI    DestinationType = "sip_uri"
	DestIVR       DestinationType = "ivr"
	DestVoicemail DestinationType = "voicemail"
	DestHangup    DestinationType = "hangup"
)

type InboundRoute struct {
	ID               string          `db:"id" yaml:"id"`
	TenantID         string          `db:"tenant_id" yaml:"tenant_id"`
	DIDNumber        string          `db:"did_number" yaml:"did_number"`
	DestinationType  DestinationType `db:"destination_type" yaml:"destination_type"`
	DestinationValue string          `db:"destination_value" yaml:"destination_value"`
	Priority         int             `db:"priority" yaml:"priority"`
	Enabled          bool            `db:"enabled" yaml:"enabled"`
}

type OutboundRoute struct {
	ID          string `db:"id" yaml:"id"`
	TenantID    string `db:"tenant_id" yaml:"tenant_id"`
	MatchPrefix string `db:"match_prefix" yaml:"match_prefix"`
	Priority    int    `db:"priority" yaml:"priority"`
	StripDigits int    `db:"strip_digits" yaml:"strip_digits"`
	Prepend     string `db:"prepend" yaml:"prepend"`
	Enabled     bool   `db:"enabled" yaml:"enabled"`

	// GatewayID is empty when the tenant default gateway should be used.
	GatewayID string `db:"gateway_id" yaml:"gateway_id"`
}

// Gateway is a SIP trunk. TenantID is empty for shared gateways.
type Gateway struct {
	ID             string `db:"id" yaml:"id"`
	TenantID       string `db:"tenant_id" yaml:"tenant_id"`
	Name           string `db:"name" yaml:"name"`
	Profile        string `db:"profile" yaml:"profile"`
	Proxy          string `db:"proxy" yaml:"proxy"`
	Username       string `db:"username" yaml:"username"`
	Password       string `db:"password" yaml:"password"`
	CallerIDNumber string `db:"caller_id_number" yaml:"caller_id_number"`
	CallerIDName   string `db:"caller_id_name" yaml:"caller_id_name"`
	Enabled        bool   `db:"enabled" yaml:"enabled"`
	Register       bool   `db:"register" yaml:"register"`
}

type IvrMenu struct {
	ID       string          `db:"id" yaml:"id"`
	TenantID string          `db:"tenant_id" yaml:"tenant_id"`
	Name     string          `db:"name" yaml:"name"`
	Greeting string          `db:"greeting" yaml:"greeting"`
	Options  []IvrMenuOption `yaml:"options"`
}

type IvrMenuOption struct {
	MenuID      string          `db:"menu_id" yaml:"menu_id"`
	Digit       string          `db:"digit" yaml:"digit"`
	ActionType  DestinationType `db:"action_type" yaml:"action_type"`
	ActionValue string          `db:"action_value" yaml:"action_value"`
	Position    int             `db:"position" yaml:"position"`
}

// CallerID is an outbound caller-ID pool entry. GatewayID scopes it to one
// trunk; empty means any gateway of the tenant.
type CallerID struct {
	ID        string `db:"id" yaml:"id"`
	TenantID  string `db:"tenant_id" yaml:"tenant_id"`
	GatewayID string `db:"gateway_id" yaml:"gateway_id"`
	Number    string `db:"number" yaml:"number"`
	Name      string `db:"name" yaml:"name"`
	Weight    int    `db:"weight" yaml:"weight"`
	Active    bool   `db:"active" yaml:"active"`
}
