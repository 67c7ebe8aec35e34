package fsxml

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"voip-routing/internal/routing"
)

// Field aliases, in precedence order. The canonical name comes first; the
// others are the switch's native channel-variable names.
var (
	sectionFields     = []string{"section"}
	contextFields     = []string{"context", "Caller-Context", "variable_user_context"}
	destinationFields = []string{"destination_number", "Caller-Destination-Number", "variable_destination_number"}
	domainFields      = []string{"domain", "Caller-Domain", "variable_domain_name"}
	realmFields       = []string{"sip_auth_realm", "variable_sip_auth_realm"}
	userFields        = []string{"user", "sip_auth_username", "variable_user_name"}
)

// ParseRequest reads the XML-fetch fields from the query string and, for
// POST, the form body. Body values take precedence over query values for
// the same key.
func ParseRequest(r *http.Request) (routing.Request, error) {
	if err := r.ParseForm(); err != nil {
		return routing.Request{}, fmt.Errorf("parse form: %w", err)
	}
	return RequestFromValues(r.Form), nil
}

// RequestFromValues resolves every logical field through its alias list.
func RequestFromValues(v map[string][]string) routing.Request {
	return routing.Request{
		Section:     strings.ToLower(first(v, sectionFields)),
		Context:     first(v, contextFields),
		Destination: first(v, destinationFields),
		Domain:      stripPort(first(v, domainFields)),
		Realm:       stripPort(first(v, realmFields)),
		User:        first(v, userFields),
	}
}

func first(v map[string][]string, names []string) string {
	for _, name := range names {
		for _, val := range v[name] {
			if val = strings.TrimSpace(val); val != "" {
				return val
			}
		}
	}
	return ""
}

func stripPort(domain string) string {
	if host, _, err := net.SplitHostPort(domain); err == nil {
		return host
	}
	return domain
}
