package fsxml

import "voip-routing/internal/routing"

// BuildDirectory returns the directory document carrying the user's digest
// credentials and context.
func BuildDirectory(ans routing.DirectoryAnswer) *Document {
	return newDocument(Section{
		Name: routing.SectionDirectory,
		Domain: &DomainNode{
			Name: ans.Domain,
			User: []UserNode{
				{
					ID: ans.Username,
					Params: []ParamNode{
						{Name: "password", Value: ans.Password},
						{Name: "a1-hash", Value: ans.A1Hash},
						{Name: "dial-string", Value: ans.DialString},
					},
					Vars: []VariableNode{
						{Name: "user_context", Value: ans.UserContext},
					},
				},
			},
		},
	})
}
