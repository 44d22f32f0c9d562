// Package introspection serves the __schema and __type meta fields.
// Wrap pairs a schema with a runtime that answers introspection against
// exactly that schema, so callers that execute over a narrowed view get
// introspection reflecting the same view and nothing more.
package introspection

import (
	"context"
	"fmt"
	"sort"

	executor "github.com/bilby91/graphql-guard/internal/executor"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// View is an executable form of a schema with introspection attached.
// Schema carries the meta types and root fields; Runtime resolves them.
type View struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends sch with the introspection types and returns the view.
// sch itself is not modified.
func Wrap(base executor.Runtime, sch *schema.Schema) *View {
	extended := extendSchema(sch)
	return &View{
		Runtime: &runtime{base: base, extended: extended, view: sch},
		Schema:  extended,
	}
}

type runtime struct {
	base     executor.Runtime
	extended *schema.Schema // carries the __ types and root meta fields
	view     *schema.Schema // what introspection reports on
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch src := source.(type) {
	case *schema.Schema:
		if v, ok := introspectSchema(src, field); ok {
			return v, nil
		}
	case *schema.Type:
		if v, ok := introspectType(r.view, src, field, args); ok {
			return v, nil
		}
	case *schema.TypeRef:
		if v, ok := introspectTypeRef(r.view, src, field, args); ok {
			return v, nil
		}
	case *schema.Field:
		if v, ok := introspectField(src, field, args); ok {
			return v, nil
		}
	case *schema.InputValue:
		if v, ok := introspectInputValue(src, field); ok {
			return v, nil
		}
	case *schema.EnumValue:
		if v, ok := introspectEnumValue(src, field); ok {
			return v, nil
		}
	case *schema.Directive:
		if v, ok := introspectDirective(src, field, args); ok {
			return v, nil
		}
	}

	if objectType == r.extended.QueryType {
		switch field {
		case "__schema":
			return r.view, nil
		case "__type":
			return r.typeByName(args), nil
		}
	}

	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func (r *runtime) typeByName(args map[string]any) *schema.Type {
	name, _ := args["name"].(string)
	if name == "" {
		return nil
	}
	return r.view.Types[name]
}

func introspectSchema(sch *schema.Schema, field string) (any, bool) {
	switch field {
	case "types":
		return allTypes(sch), true
	case "queryType":
		return sch.GetQueryType(), true
	case "mutationType":
		return sch.GetMutationType(), true
	case "subscriptionType":
		return sch.GetSubscriptionType(), true
	case "directives":
		return allDirectives(sch), true
	case "description":
		return sch.Description, true
	}
	return nil, false
}

func introspectType(sch *schema.Schema, t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return t.Description, true
	case "specifiedByURL":
		return t.SpecifiedByURL, true
	case "fields":
		return fieldsOf(t, args), true
	case "interfaces":
		return interfacesOf(sch, t), true
	case "possibleTypes":
		return possibleTypesOf(sch, t), true
	case "enumValues":
		return enumValuesOf(t, args), true
	case "inputFields":
		return inputFieldsOf(t, args), true
	case "isOneOf":
		return t.OneOf, true
	case "ofType":
		// Wrapper kinds (LIST/NON_NULL) surface as TypeRef nodes, so a
		// named type never exposes ofType.
		return nil, true
	}
	return nil, false
}

func introspectTypeRef(sch *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		// A named ref reports the kind of the definition it points at.
		if tr.Kind == schema.TypeRefKindNamed {
			if def := sch.Types[tr.Named]; def != nil {
				return string(def.Kind), true
			}
		}
		return string(tr.Kind), true
	case "name":
		if schema.IsNonNull(tr) || schema.IsList(tr) {
			return nil, true
		}
		return tr.Named, true
	case "ofType":
		if tr.Kind == schema.TypeRefKindNonNull || tr.Kind == schema.TypeRefKindList {
			return tr.OfType, true
		}
		return nil, true
	default:
		if name := schema.GetNamedType(tr); name != "" {
			if def := sch.Types[name]; def != nil {
				return introspectType(sch, def, field, args)
			}
		}
		return nil, true
	}
}

func introspectField(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return f.Description, true
	case "args":
		return visible(f.GetOrderedArguments(), args, inputValueName, inputValueDeprecated), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return reasonIf(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func introspectInputValue(a *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return a.Name, true
	case "description":
		return a.Description, true
	case "type":
		return a.Type, true
	case "defaultValue":
		return defaultValueOf(a), true
	case "isDeprecated":
		return a.IsDeprecated, true
	case "deprecationReason":
		return reasonIf(a.IsDeprecated, a.DeprecationReason), true
	}
	return nil, false
}

func introspectEnumValue(ev *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return ev.Name, true
	case "description":
		return ev.Description, true
	case "isDeprecated":
		return ev.IsDeprecated, true
	case "deprecationReason":
		return reasonIf(ev.IsDeprecated, ev.DeprecationReason), true
	}
	return nil, false
}

func introspectDirective(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return d.Description, true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return locationsOf(d), true
	case "args":
		return visible(d.Arguments, args, inputValueName, inputValueDeprecated), true
	}
	return nil, false
}

// visible filters out deprecated members unless the query opted in with
// includeDeprecated, and sorts the rest by name. Every introspection list
// sorts by name so output stays stable across map iteration order and
// rebuilt per-request views.
func visible[T any](items []T, args map[string]any, name func(T) string, deprecated func(T) bool) []T {
	include := boolArg(args, "includeDeprecated", false)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !include && deprecated(item) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return name(out[i]) < name(out[j]) })
	return out
}

func inputValueName(a *schema.InputValue) string     { return a.Name }
func inputValueDeprecated(a *schema.InputValue) bool { return a.IsDeprecated }

func fieldsOf(t *schema.Type, args map[string]any) []*schema.Field {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	return visible(t.GetOrderedFields(), args,
		func(f *schema.Field) string { return f.Name },
		func(f *schema.Field) bool { return f.IsDeprecated })
}

func enumValuesOf(t *schema.Type, args map[string]any) []*schema.EnumValue {
	if t.Kind != schema.TypeKindEnum {
		return nil
	}
	return visible(t.EnumValues, args,
		func(ev *schema.EnumValue) string { return ev.Name },
		func(ev *schema.EnumValue) bool { return ev.IsDeprecated })
}

func inputFieldsOf(t *schema.Type, args map[string]any) []*schema.InputValue {
	if t.Kind != schema.TypeKindInputObject {
		return nil
	}
	return visible(t.GetOrderedInputFields(), args, inputValueName, inputValueDeprecated)
}

func interfacesOf(sch *schema.Schema, t *schema.Type) []*schema.Type {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	return typesNamed(sch, t.Interfaces)
}

func possibleTypesOf(sch *schema.Schema, t *schema.Type) []*schema.Type {
	if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
		return nil
	}
	return typesNamed(sch, t.PossibleTypes)
}

func typesNamed(sch *schema.Schema, names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if def := sch.Types[name]; def != nil {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func allTypes(sch *schema.Schema) []*schema.Type {
	out := make([]*schema.Type, 0, len(sch.Types))
	for _, t := range sch.Types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func allDirectives(sch *schema.Schema) []*schema.Directive {
	out := make([]*schema.Directive, 0, len(sch.Directives))
	for _, d := range sch.Directives {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func locationsOf(d *schema.Directive) []string {
	locs := make([]string, len(d.Locations))
	copy(locs, d.Locations)
	sort.Strings(locs)
	return locs
}

func defaultValueOf(a *schema.InputValue) *string {
	if a.DefaultValue == nil {
		return nil
	}
	v := fmt.Sprintf("%v", a.DefaultValue)
	return &v
}

func reasonIf(deprecated bool, reason string) *string {
	if !deprecated {
		return nil
	}
	return &reason
}

func boolArg(args map[string]any, name string, def bool) bool {
	if args == nil {
		return def
	}
	if v, ok := args[name]; ok {
		if b, ok2 := v.(bool); ok2 {
			return b
		}
	}
	return def
}
