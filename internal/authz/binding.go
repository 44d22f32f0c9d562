package authz

// BindingKind discriminates declarative guard and mask attachments.
type BindingKind int

const (
	BindFieldGuard BindingKind = iota
	BindTypeGuard
	BindTypePolicy
	BindArgumentGuard
	BindFieldMask
	BindArgumentMask
)

// Binding is one declarative guard or mask attachment, typically
// extracted from SDL annotations. Rule names the predicate to attach
// and is resolved through a RuleResolver; BindTypePolicy carries no
// rule.
type Binding struct {
	Kind     BindingKind
	Type     string
	Field    string
	Argument string
	Rule     string
}

// Target renders the binding target as Type[.field[.argument]].
func (b Binding) Target() string {
	t := b.Type
	if b.Field != "" {
		t += "." + b.Field
	}
	if b.Argument != "" {
		t += "." + b.Argument
	}
	return t
}

// RuleResolver resolves rule names referenced by declarative bindings.
type RuleResolver interface {
	ResolveRule(name string) (Predicate, bool)
}

// RuleResolverFunc adapts a function to the RuleResolver interface.
type RuleResolverFunc func(name string) (Predicate, bool)

func (f RuleResolverFunc) ResolveRule(name string) (Predicate, bool) { return f(name) }
