package schema

import (
	"strings"

	language "github.com/bilby91/graphql-guard/internal/language"
)

// ToAST compiles the schema into its language-level form for query validation.
// The root operation types are declared explicitly so that non-default root
// type names survive the round trip.
func ToAST(s *Schema) (*language.Schema, error) {
	var b strings.Builder
	if s.QueryType != "" || s.MutationType != "" || s.SubscriptionType != "" {
		b.WriteString("schema {\n")
		if s.QueryType != "" {
			b.WriteString("  query: ")
			b.WriteString(s.QueryType)
			b.WriteString("\n")
		}
		if s.MutationType != "" {
			b.WriteString("  mutation: ")
			b.WriteString(s.MutationType)
			b.WriteString("\n")
		}
		if s.SubscriptionType != "" {
			b.WriteString("  subscription: ")
			b.WriteString(s.SubscriptionType)
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	}
	b.WriteString(Render(s))
	return language.LoadSchema("schema.graphql", b.String())
}
