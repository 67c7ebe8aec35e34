package fsxml

import (
	"regexp"

	"voip-routing/internal/routing"
)

// BuildDialplan turns a resolved dialplan into the single-extension
// document the switch executes. The condition matches the destination
// literally.
func BuildDialplan(ans routing.DialplanAnswer) *Document {
	return newDocument(Section{
		Name: routing.SectionDialplan,
		Context: &ContextNode{
			Name: ans.Context,
			Extension: []ExtensionNode{
				{
					Name: ans.Decision.Label,
					Condition: []ConditionNode{
						{
							Field:  "destination_number",
							Expr:   "^" + regexp.QuoteMeta(ans.Destination) + "$",
							Action: actionNodes(ans.Decision.Actions),
						},
					},
				},
			},
		},
	})
}

// NotFound is the switch's standard "no data" answer; the switch falls back
// to its static configuration when it gets it.
func NotFound() *Document {
	return newDocument(Section{
		Name:   sectionResult,
		Result: &ResultNode{Status: statusNotFound},
	})
}
