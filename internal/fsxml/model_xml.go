package fsxml

import (
	"encoding/xml"
	"strings"

	"voip-routing/internal/routing"
)

// DocumentType is the only document type FreeSWITCH accepts.
const DocumentType = "freeswitch/xml"

const (
	sectionResult  = "result"
	statusNotFound = "not found"
)

// Document is one mod_xml_curl answer. Every answer built here carries
// exactly one section.
type Document struct {
	XMLName xml.Name  `xml:"document"`
	Type    string    `xml:"type,attr"`
	Section []Section `xml:"section"`
}

func newDocument(sec Section) *Document {
	return &Document{Type: DocumentType, Section: []Section{sec}}
}

// Section holds one of Domain, Context or Result, matching its Name.
type Section struct {
	Name    string       `xml:"name,attr"`
	Domain  *DomainNode  `xml:"domain,omitempty"`
	Context *ContextNode `xml:"context,omitempty"`
	Result  *ResultNode  `xml:"result,omitempty"`
}

type DomainNode struct {
	Name string     `xml:"name,attr"`
	User []UserNode `xml:"user"`
}

// UserNode is a SIP account. Params drive registration auth; Vars land on
// the channel once the user places a call.
type UserNode struct {
	ID     string         `xml:"id,attr"`
	Params []ParamNode    `xml:"params>param,omitempty"`
	Vars   []VariableNode `xml:"variables>variable,omitempty"`
}

type ParamNode struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type VariableNode ParamNode

type ContextNode struct {
	Name      string          `xml:"name,attr"`
	Extension []ExtensionNode `xml:"extension"`
}

type ExtensionNode struct {
	Name      string          `xml:"name,attr"`
	Condition []ConditionNode `xml:"condition"`
}

type ConditionNode struct {
	Field  string       `xml:"field,attr,omitempty"`
	Expr   string       `xml:"expression,attr,omitempty"`
	Action []ActionNode `xml:"action"`
}

type ActionNode struct {
	App  string `xml:"application,attr"`
	Data string `xml:"data,attr"`
}

func actionNodes(actions []routing.Action) []ActionNode {
	out := make([]ActionNode, 0, len(actions))
	for _, a := range actions {
		out = append(out, ActionNode{App: a.Application, Data: a.Data})
	}
	return out
}

// ResultNode is the body of the "not found" answer.
type ResultNode struct {
	Status string `xml:"status,attr"`
}

// DebugString summarizes the document for logs, e.g.
// "dialplan context=context_t1 extension=ext_1001".
func (d *Document) DebugString() string {
	if d == nil || len(d.Section) == 0 {
		return "empty document"
	}
	var b strings.Builder
	for i, sec := range d.Section {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(sec.Name)
		switch {
		case sec.Context != nil:
			b.WriteString(" context=" + sec.Context.Name)
			for _, ext := range sec.Context.Extension {
				b.WriteString(" extension=" + ext.Name)
			}
		case sec.Domain != nil:
			b.WriteString(" domain=" + sec.Domain.Name)
			for _, u := range sec.Domain.User {
				b.WriteString(" user=" + u.ID)
			}
		case sec.Result != nil:
			b.WriteString(" status=" + sec.Result.Status)
		}
	}
	return b.String()
}
