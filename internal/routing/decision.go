package routing

import (
	"fmt"

	"voip-routing/internal/models"
)

// Action is one dialplan application invocation.
type Action struct {
	Application string
	Data        string
}

type DecisionKind int

const (
	DecisionNoRoute DecisionKind = iota
	DecisionBridge
	DecisionActions
)

// Strategy names, also used as metric labels.
const (
	StrategyExtension      = "extension"
	StrategyInternalPrefix = "internal_prefix"
	StrategyVoicemail      = "voicemail"
	StrategySIPURI         = "sip_uri"
	StrategyPSTN           = "pstn"
	StrategyOutboundRoute  = "outbound_route"
	StrategyHook           = "hook"
	StrategyRules          = "rules"
	StrategyInbound        = "inbound"
	StrategyNoRoute        = "no_route"
)

// HangupNoRoute is the hangup cause of the no-route terminal action.
const HangupNoRoute = "NO_ROUTE_DESTINATION"

const invalidExtensionPrompt = "ivr/ivr-that_was_an_invalid_entry.wav"

// Decision is the outcome of a dialplan resolution. Actions is the complete,
// ordered list to render; Target is the bridge target for DecisionBridge.
type Decision struct {
	Kind     DecisionKind
	Strategy string
	Label    string
	Target   string
	Actions  []Action
	// Terminal decisions render alone and are never merged with rule actions.
	Terminal bool
}

func bridge(strategy, label, target string, pre ...Action) Decision {
	actions := append(append([]Action(nil), pre...), Action{Application: "bridge", Data: target})
	return Decision{
		Kind:     DecisionBridge,
		Strategy: strategy,
		Label:    label,
		Target:   target,
		Actions:  actions,
	}
}

// NoRoute answers, announces an invalid extension and hangs up.
func NoRoute() Decision {
	return Decision{
		Kind:     DecisionNoRoute,
		Strategy: StrategyNoRoute,
		Label:    "no_route",
		Actions: []Action{
			{Application: "answer"},
			{Application: "playback", Data: invalidExtensionPrompt},
			{Application: "hangup", Data: HangupNoRoute},
		},
	}
}

func userTarget(ext, domain string) string {
	return fmt.Sprintf("user/%s@%s", ext, domain)
}

func gatewayTarget(gateway, number string) string {
	return fmt.Sprintf("sofia/gateway/%s/%s", gateway, number)
}

func voicemailAction(ext, domain string) Action {
	return Action{Application: "lua", Data: fmt.Sprintf("voicemail.lua check default %s %s", domain, ext)}
}

func voicemail(ext, domain string) Decision {
	return Decision{
		Kind:     DecisionActions,
		Strategy: StrategyVoicemail,
		Label:    "voicemail_" + ext,
		Actions: []Action{
			{Application: "answer"},
			voicemailAction(ext, domain),
		},
		Terminal: true,
	}
}

func fromModel(actions []models.DialplanAction) []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, Action{Application: a.Application, Data: a.Data})
	}
	return out
}
