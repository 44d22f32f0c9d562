package mask

import (
	"github.com/bilby91/graphql-guard/internal/schema"
)

// Apply narrows sch to the visibility plan and returns the view. The
// base schema is never modified; untouched types are shared between
// the view and the base.
//
// Hiding cascades so the view stays self-consistent: a non-root type
// that loses every field disappears, fields returning a hidden type
// disappear, and a union that loses every member disappears. Root
// operation types always survive, even field-less, so a request
// against a fully hidden root fails validation instead of losing the
// schema.
func Apply(sch *schema.Schema, v *Visibility) *schema.Schema {
	if sch == nil || v.Empty() {
		return sch
	}

	isRoot := func(name string) bool {
		return name != "" &&
			(name == sch.QueryType || name == sch.MutationType || name == sch.SubscriptionType)
	}

	// Fields surviving the field mask, per composite type.
	visible := make(map[string][]*schema.Field, len(sch.Types))
	for name, typ := range sch.Types {
		if typ.Kind != schema.TypeKindObject && typ.Kind != schema.TypeKindInterface {
			continue
		}
		kept := make([]*schema.Field, 0, len(typ.Fields))
		for _, field := range typ.Fields {
			if v.FieldHidden(name, field.Name) {
				continue
			}
			kept = append(kept, field)
		}
		visible[name] = kept
	}

	hiddenTypes := map[string]struct{}{}
	hidden := func(name string) bool {
		_, ok := hiddenTypes[name]
		return ok
	}

	// Iterate to a fixpoint. Hiding a type can empty the types whose
	// fields returned it, which can hide those in turn.
	for changed := true; changed; {
		changed = false
		for name, typ := range sch.Types {
			if hidden(name) {
				continue
			}
			switch typ.Kind {
			case schema.TypeKindObject, schema.TypeKindInterface:
				fields := visible[name]
				if refsHiddenType(fields, hidden) {
					kept := make([]*schema.Field, 0, len(fields))
					for _, field := range fields {
						if hidden(schema.GetNamedType(field.Type)) {
							continue
						}
						kept = append(kept, field)
					}
					visible[name] = kept
					fields = kept
					changed = true
				}
				// Only types emptied by the mask disappear. A type
				// that had no fields in the base schema stays.
				if len(fields) == 0 && len(typ.Fields) > 0 && !isRoot(name) {
					hiddenTypes[name] = struct{}{}
					changed = true
				}
			case schema.TypeKindUnion:
				if len(typ.PossibleTypes) == 0 {
					continue
				}
				members := 0
				for _, member := range typ.PossibleTypes {
					if !hidden(member) {
						members++
					}
				}
				if members == 0 {
					hiddenTypes[name] = struct{}{}
					changed = true
				}
			}
		}
	}

	out := &schema.Schema{
		QueryType:        sch.QueryType,
		MutationType:     sch.MutationType,
		SubscriptionType: sch.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(sch.Types)),
		Directives:       sch.Directives,
		Description:      sch.Description,
	}
	for name, typ := range sch.Types {
		if hidden(name) {
			continue
		}
		switch typ.Kind {
		case schema.TypeKindObject, schema.TypeKindInterface:
			view := *typ
			view.Fields = fieldsView(name, visible[name], v)
			view.Interfaces = filterNames(typ.Interfaces, hidden)
			view.PossibleTypes = filterNames(typ.PossibleTypes, hidden)
			out.Types[name] = &view
		case schema.TypeKindUnion:
			view := *typ
			view.PossibleTypes = filterNames(typ.PossibleTypes, hidden)
			out.Types[name] = &view
		default:
			out.Types[name] = typ
		}
	}
	return out
}

func refsHiddenType(fields []*schema.Field, hidden func(string) bool) bool {
	for _, field := range fields {
		if hidden(schema.GetNamedType(field.Type)) {
			return true
		}
	}
	return false
}

// fieldsView filters hidden arguments out of the kept fields. Fields
// without hidden arguments are shared with the base schema.
func fieldsView(typeName string, fields []*schema.Field, v *Visibility) []*schema.Field {
	out := make([]*schema.Field, 0, len(fields))
	for _, field := range fields {
		kept := field
		for _, arg := range field.Arguments {
			if v.ArgumentHidden(typeName, field.Name, arg.Name) {
				view := *field
				view.Arguments = filterArgs(typeName, field.Name, field.Arguments, v)
				kept = &view
				break
			}
		}
		out = append(out, kept)
	}
	return out
}

func filterArgs(typeName, fieldName string, args []*schema.InputValue, v *Visibility) []*schema.InputValue {
	kept := make([]*schema.InputValue, 0, len(args))
	for _, arg := range args {
		if v.ArgumentHidden(typeName, fieldName, arg.Name) {
			continue
		}
		kept = append(kept, arg)
	}
	return kept
}

func filterNames(names []string, hidden func(string) bool) []string {
	drop := false
	for _, name := range names {
		if hidden(name) {
			drop = true
			break
		}
	}
	if !drop {
		return names
	}
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if hidden(name) {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}
