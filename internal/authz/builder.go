package authz

import (
	"errors"
	"fmt"
	"sort"

	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// Builder stages guard, mask and policy declarations and resolves them
// against a schema. Declaration methods chain; every configuration
// problem is collected and reported together by Build.
type Builder struct {
	fieldGuards map[string]Predicate
	typeGuards  map[string]Predicate
	argGuards   map[string]map[string]Predicate
	policyTypes map[string]struct{}
	fieldMasks  map[string]Predicate
	argMasks    map[string]map[string]Predicate
	locator     PolicyLocator
	errs        []error
}

func NewBuilder() *Builder {
	return &Builder{
		fieldGuards: make(map[string]Predicate),
		typeGuards:  make(map[string]Predicate),
		argGuards:   make(map[string]map[string]Predicate),
		policyTypes: make(map[string]struct{}),
		fieldMasks:  make(map[string]Predicate),
		argMasks:    make(map[string]map[string]Predicate),
	}
}

// GuardField attaches p to one field. At most one guard may target a
// given field.
func (b *Builder) GuardField(typeName, fieldName string, p Predicate) *Builder {
	key := fieldKey(typeName, fieldName)
	if p == nil {
		b.errs = append(b.errs, &ConfigError{Target: key, Reason: "nil predicate"})
		return b
	}
	if _, ok := b.fieldGuards[key]; ok {
		b.errs = append(b.errs, &ConfigError{Target: key, Reason: "duplicate field guard"})
		return b
	}
	b.fieldGuards[key] = p
	return b
}

// GuardType attaches p to a named type; it applies to every field whose
// declared return type is that type and which has no field guard.
func (b *Builder) GuardType(typeName string, p Predicate) *Builder {
	if p == nil {
		b.errs = append(b.errs, &ConfigError{Target: typeName, Reason: "nil predicate"})
		return b
	}
	if _, ok := b.typeGuards[typeName]; ok {
		b.errs = append(b.errs, &ConfigError{Target: typeName, Reason: "duplicate type guard"})
		return b
	}
	b.typeGuards[typeName] = p
	return b
}

// GuardArgument attaches p to one argument of a field. The guard only
// runs when the request supplies a value for the argument.
func (b *Builder) GuardArgument(typeName, fieldName, argName string, p Predicate) *Builder {
	key := fieldKey(typeName, fieldName)
	target := key + "." + argName
	if p == nil {
		b.errs = append(b.errs, &ConfigError{Target: target, Reason: "nil predicate"})
		return b
	}
	byArg := b.argGuards[key]
	if byArg == nil {
		byArg = make(map[string]Predicate)
		b.argGuards[key] = byArg
	}
	if _, ok := byArg[argName]; ok {
		b.errs = append(b.errs, &ConfigError{Target: target, Reason: "duplicate argument guard"})
		return b
	}
	byArg[argName] = p
	return b
}

// PolicyType marks a named type for policy-object lookup. The policy is
// located once by Build through the configured locator.
func (b *Builder) PolicyType(typeName string) *Builder {
	if _, ok := b.policyTypes[typeName]; ok {
		b.errs = append(b.errs, &ConfigError{Target: typeName, Reason: "duplicate policy marker"})
		return b
	}
	b.policyTypes[typeName] = struct{}{}
	return b
}

// SetPolicyLocator configures how policy markers resolve to policy
// objects.
func (b *Builder) SetPolicyLocator(l PolicyLocator) *Builder {
	b.locator = l
	return b
}

// MaskField attaches a visibility rule to one field. The field is part
// of the schema surface only for requests the rule admits.
func (b *Builder) MaskField(typeName, fieldName string, p Predicate) *Builder {
	key := fieldKey(typeName, fieldName)
	if p == nil {
		b.errs = append(b.errs, &ConfigError{Target: key, Reason: "nil predicate"})
		return b
	}
	if _, ok := b.fieldMasks[key]; ok {
		b.errs = append(b.errs, &ConfigError{Target: key, Reason: "duplicate field mask"})
		return b
	}
	b.fieldMasks[key] = p
	return b
}

// MaskArgument attaches a visibility rule to one argument of a field.
func (b *Builder) MaskArgument(typeName, fieldName, argName string, p Predicate) *Builder {
	key := fieldKey(typeName, fieldName)
	target := key + "." + argName
	if p == nil {
		b.errs = append(b.errs, &ConfigError{Target: target, Reason: "nil predicate"})
		return b
	}
	byArg := b.argMasks[key]
	if byArg == nil {
		byArg = make(map[string]Predicate)
		b.argMasks[key] = byArg
	}
	if _, ok := byArg[argName]; ok {
		b.errs = append(b.errs, &ConfigError{Target: target, Reason: "duplicate argument mask"})
		return b
	}
	byArg[argName] = p
	return b
}

// Bind applies declarative bindings, resolving rule names through
// rules. Unknown rule names fail the build.
func (b *Builder) Bind(bindings []Binding, rules RuleResolver) *Builder {
	for _, bd := range bindings {
		if bd.Kind == BindTypePolicy {
			b.PolicyType(bd.Type)
			continue
		}
		var p Predicate
		if rules != nil {
			if resolved, ok := rules.ResolveRule(bd.Rule); ok {
				p = resolved
			}
		}
		if p == nil {
			b.errs = append(b.errs, &ConfigError{Target: bd.Target(), Reason: fmt.Sprintf("unknown rule %q", bd.Rule)})
			continue
		}
		switch bd.Kind {
		case BindFieldGuard:
			b.GuardField(bd.Type, bd.Field, p)
		case BindTypeGuard:
			b.GuardType(bd.Type, p)
		case BindArgumentGuard:
			b.GuardArgument(bd.Type, bd.Field, bd.Argument, p)
		case BindFieldMask:
			b.MaskField(bd.Type, bd.Field, p)
		case BindArgumentMask:
			b.MaskArgument(bd.Type, bd.Field, bd.Argument, p)
		default:
			b.errs = append(b.errs, &ConfigError{Target: bd.Target(), Reason: "unknown binding kind"})
		}
	}
	return b
}

// Build validates every staged target against sch, resolves policy
// markers through the locator, and returns the immutable registry.
func (b *Builder) Build(sch *schema.Schema) (*Registry, error) {
	errs := append([]error(nil), b.errs...)

	reg := &Registry{
		fieldGuards: make(map[string]Predicate, len(b.fieldGuards)),
		typeGuards:  make(map[string]Predicate, len(b.typeGuards)),
		argGuards:   make(map[string][]ArgGuard, len(b.argGuards)),
		policies:    make(map[string]Policy, len(b.policyTypes)),
	}

	for _, key := range sortedKeys(b.fieldGuards) {
		if cerr := checkFieldTarget(sch, key); cerr != nil {
			errs = append(errs, cerr)
			continue
		}
		reg.fieldGuards[key] = b.fieldGuards[key]
	}

	for _, name := range sortedKeys(b.typeGuards) {
		if cerr := checkTypeTarget(sch, name); cerr != nil {
			errs = append(errs, cerr)
			continue
		}
		reg.typeGuards[name] = b.typeGuards[name]
	}

	for _, key := range sortedKeys(b.argGuards) {
		field, cerr := fieldForKey(sch, key)
		if cerr != nil {
			errs = append(errs, cerr)
			continue
		}
		byArg := b.argGuards[key]
		for _, argName := range sortedKeys(byArg) {
			if field.GetArgument(argName) == nil {
				errs = append(errs, &ConfigError{Target: key + "." + argName, Reason: "unknown argument"})
			}
		}
		ordered := make([]ArgGuard, 0, len(byArg))
		for _, arg := range field.GetOrderedArguments() {
			if p, ok := byArg[arg.Name]; ok {
				ordered = append(ordered, ArgGuard{Argument: arg.Name, Predicate: p})
			}
		}
		reg.argGuards[key] = ordered
	}

	for _, name := range sortedKeys(b.policyTypes) {
		if cerr := checkTypeTarget(sch, name); cerr != nil {
			errs = append(errs, cerr)
			continue
		}
		if b.locator == nil {
			errs = append(errs, &ConfigError{Target: name, Reason: "no policy locator configured"})
			continue
		}
		pol, ok := b.locator.LocatePolicy(name)
		if !ok || pol == nil {
			errs = append(errs, &ConfigError{Target: name, Reason: "unresolved policy reference"})
			continue
		}
		reg.policies[name] = pol
	}

	for _, key := range sortedKeys(b.fieldMasks) {
		if cerr := checkFieldTarget(sch, key); cerr != nil {
			errs = append(errs, cerr)
			continue
		}
		typeName, fieldName := splitFieldKey(key)
		reg.maskTargets = append(reg.maskTargets, MaskTarget{
			Type:      typeName,
			Field:     fieldName,
			Predicate: b.fieldMasks[key],
		})
	}

	for _, key := range sortedKeys(b.argMasks) {
		field, cerr := fieldForKey(sch, key)
		if cerr != nil {
			errs = append(errs, cerr)
			continue
		}
		byArg := b.argMasks[key]
		for _, argName := range sortedKeys(byArg) {
			if field.GetArgument(argName) == nil {
				errs = append(errs, &ConfigError{Target: key + "." + argName, Reason: "unknown argument"})
			}
		}
		typeName, fieldName := splitFieldKey(key)
		for _, arg := range field.GetOrderedArguments() {
			if p, ok := byArg[arg.Name]; ok {
				reg.maskTargets = append(reg.maskTargets, MaskTarget{
					Type:      typeName,
					Field:     fieldName,
					Argument:  arg.Name,
					Predicate: p,
				})
			}
		}
	}

	sort.Slice(reg.maskTargets, func(i, j int) bool {
		ti, tj := reg.maskTargets[i], reg.maskTargets[j]
		if ti.Type != tj.Type {
			return ti.Type < tj.Type
		}
		if ti.Field != tj.Field {
			return ti.Field < tj.Field
		}
		return ti.Argument < tj.Argument
	})

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

func fieldForKey(sch *schema.Schema, key string) (*schema.Field, *ConfigError) {
	typeName, fieldName := splitFieldKey(key)
	t := sch.GetType(typeName)
	if t == nil {
		return nil, &ConfigError{Target: key, Reason: fmt.Sprintf("unknown type %s", typeName)}
	}
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil, &ConfigError{Target: key, Reason: fmt.Sprintf("%s is not an object or interface type", typeName)}
	}
	f := t.GetField(fieldName)
	if f == nil {
		return nil, &ConfigError{Target: key, Reason: "unknown field"}
	}
	return f, nil
}

func checkFieldTarget(sch *schema.Schema, key string) *ConfigError {
	_, cerr := fieldForKey(sch, key)
	return cerr
}

func checkTypeTarget(sch *schema.Schema, name string) *ConfigError {
	t := sch.GetType(name)
	if t == nil {
		return &ConfigError{Target: name, Reason: "unknown type"}
	}
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return &ConfigError{Target: name, Reason: fmt.Sprintf("%s is not an object or interface type", name)}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
