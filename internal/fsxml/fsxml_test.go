package fsxml

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voip-routing/internal/models"
	"voip-routing/internal/routing"
)

func render(t *testing.T, doc *Document) string {
	t.Helper()

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	require.NoError(t, enc.Encode(doc))
	return buf.String()
}

func TestBuildDialplan(t *testing.T) {
	t.Parallel()

	doc := BuildDialplan(routing.DialplanAnswer{
		Context:     "context_t1",
		Destination: "1001",
		Tenant:      models.Tenant{ID: "t1", Domain: "t1.local"},
		Decision: routing.Decision{
			Kind:    routing.DecisionBridge,
			Label:   "user_1001",
			Target:  "user/1001@t1.local",
			Actions: []routing.Action{{Application: "bridge", Data: "user/1001@t1.local"}},
		},
	})

	want := `<document type="freeswitch/xml">
  <section name="dialplan">
    <context name="context_t1">
      <extension name="user_1001">
        <condition field="destination_number" expression="^1001$">
          <action application="bridge" data="user/1001@t1.local"></action>
        </condition>
      </extension>
    </context>
  </section>
</document>`
	assert.Equal(t, want, render(t, doc))
}

func TestBuildDialplanQuotesDestination(t *testing.T) {
	t.Parallel()

	doc := BuildDialplan(routing.DialplanAnswer{
		Context:     "context_t1",
		Destination: "*91001",
		Decision:    routing.NoRoute(),
	})

	cond := doc.Section[0].Context.Extension[0].Condition[0]
	assert.Equal(t, `^\*91001$`, cond.Expr)
	assert.Equal(t, "no_route", doc.Section[0].Context.Extension[0].Name)

	apps := make([]string, 0, len(cond.Action))
	for _, a := range cond.Action {
		apps = append(apps, a.App)
	}
	assert.Equal(t, []string{"answer", "playback", "hangup"}, apps)
	assert.Equal(t, routing.HangupNoRoute, cond.Action[2].Data)
}

func TestBuildDirectory(t *testing.T) {
	t.Parallel()

	doc := BuildDirectory(routing.DirectoryAnswer{
		Domain:      "t1.local",
		Username:    "1001",
		Password:    "p@ss",
		A1Hash:      routing.A1Hash("1001", "t1.local", "p@ss"),
		DialString:  routing.DialStringTemplate,
		UserContext: "context_t1",
	})
	out := render(t, doc)

	assert.Contains(t, out, `<param name="dial-string" value="{sip_invite_domain=${domain_name}}sofia/internal/${dialed_user}@${domain_name}"></param>`)

	var back Document
	require.NoError(t, xml.Unmarshal([]byte(out), &back))
	require.Len(t, back.Section, 1)
	sec := back.Section[0]
	assert.Equal(t, "directory", sec.Name)
	require.NotNil(t, sec.Domain)
	assert.Equal(t, "t1.local", sec.Domain.Name)
	require.Len(t, sec.Domain.User, 1)

	user := sec.Domain.User[0]
	assert.Equal(t, "1001", user.ID)
	assert.Equal(t, []ParamNode{
		{Name: "password", Value: "p@ss"},
		{Name: "a1-hash", Value: routing.A1Hash("1001", "t1.local", "p@ss")},
		{Name: "dial-string", Value: routing.DialStringTemplate},
	}, user.Params)
	assert.Equal(t, []VariableNode{{Name: "user_context", Value: "context_t1"}}, user.Vars)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	want := `<document type="freeswitch/xml">
  <section name="result">
    <result status="not found"></result>
  </section>
</document>`
	assert.Equal(t, want, render(t, NotFound()))
}

func TestDebugString(t *testing.T) {
	t.Parallel()

	dialplan := BuildDialplan(routing.DialplanAnswer{
		Context:     "context_t1",
		Destination: "1001",
		Decision:    routing.Decision{Label: "ext_1001"},
	})
	assert.Equal(t, "dialplan context=context_t1 extension=ext_1001", dialplan.DebugString())

	directory := BuildDirectory(routing.DirectoryAnswer{Domain: "t1.local", Username: "1001"})
	assert.Equal(t, "directory domain=t1.local user=1001", directory.DebugString())

	assert.Equal(t, "result status=not found", NotFound().DebugString())
	assert.Equal(t, "empty document", (*Document)(nil).DebugString())
}

func TestRequestAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values url.Values
		want   routing.Request
	}{
		{
			name: "canonical names",
			values: url.Values{
				"section":            {"Dialplan"},
				"context":            {"context_t1"},
				"destination_number": {"1001"},
				"domain":             {"t1.local"},
				"user":               {"1002"},
			},
			want: routing.Request{Section: "dialplan", Context: "context_t1", Destination: "1001", Domain: "t1.local", User: "1002"},
		},
		{
			name: "switch channel variables",
			values: url.Values{
				"section":                   {"dialplan"},
				"Caller-Context":            {"public"},
				"Caller-Destination-Number": {"842812345678"},
				"variable_domain_name":      {"t1.local"},
				"variable_sip_auth_realm":   {"t1.local:5060"},
				"sip_auth_username":         {"1001"},
			},
			want: routing.Request{Section: "dialplan", Context: "public", Destination: "842812345678", Domain: "t1.local", Realm: "t1.local", User: "1001"},
		},
		{
			name: "canonical wins over alias",
			values: url.Values{
				"destination_number":          {"1001"},
				"Caller-Destination-Number":   {"2002"},
				"variable_destination_number": {"3003"},
			},
			want: routing.Request{Destination: "1001"},
		},
		{
			name: "blank canonical falls to alias",
			values: url.Values{
				"destination_number":        {"  "},
				"Caller-Destination-Number": {"2002"},
				"domain":                    {"[2001:db8::1]:5060"},
			},
			want: routing.Request{Destination: "2002", Domain: "2001:db8::1"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RequestFromValues(tt.values))
		})
	}
}

func TestParseRequestPost(t *testing.T) {
	t.Parallel()

	body := url.Values{
		"section":                   {"directory"},
		"sip_auth_username":         {"1001"},
		"sip_auth_realm":            {"t1.local"},
		"Caller-Destination-Number": {"ignored-by-directory"},
	}.Encode()
	r := httptest.NewRequest(http.MethodPost, "/fs/xml?domain=t1.local", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := ParseRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "directory", req.Section)
	assert.Equal(t, "1001", req.User)
	assert.Equal(t, "t1.local", req.Realm)
	assert.Equal(t, "t1.local", req.Domain)
}
