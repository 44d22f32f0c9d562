package sdl

import (
	"fmt"

	authz "github.com/bilby91/graphql-guard/internal/authz"
	language "github.com/bilby91/graphql-guard/internal/language"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

func (b *builder) populateDirectiveDefinitions() error {
	for _, name := range b.docNames {
		for _, directive := range b.docs[name].Directives {
			switch directive.Name {
			case "guard", "visible":
				// Authors may declare the annotation directives so
				// generic SDL tooling accepts their documents. The
				// declarations are consumed here, like the uses.
				continue
			case "include", "skip", "deprecated", "specifiedBy", "oneOf":
				b.addViolation(violationDirectiveAlreadyDefined(directive.Name, directive.Position))
				continue
			}
			if b.customDirectives[directive.Name] {
				b.addViolation(violationDirectiveAlreadyDefined(directive.Name, directive.Position))
				continue
			}

			def := schema.NewDirective(directive.Name, directive.Description)
			def.SetRepeatable(directive.IsRepeatable)
			for _, loc := range directive.Locations {
				def.AddLocation(string(loc))
			}
			for _, argNode := range directive.Arguments {
				arg := schema.NewInputValue(argNode.Name, argNode.Description,
					b.projectTypeRef(argNode.Type, typeRefModeInput))
				if argNode.DefaultValue != nil {
					b.setDefault(arg, argNode.DefaultValue)
				}
				def.AddArgument(arg)
			}
			b.sch.AddDirective(def)
			b.customDirectives[directive.Name] = true
		}
	}
	return b.flush()
}

// populateAnnotations extracts @guard and @visible uses into authz
// bindings and applies the standard SDL directives (@deprecated,
// @specifiedBy, @oneOf). Uses of author-declared custom directives are
// tolerated; they carry no meaning for execution and are dropped from
// the executable schema.
func (b *builder) populateAnnotations() error {
	b.eachDefinition(func(node *language.Definition, isExtension bool) {
		typ := b.sch.GetType(node.Name)
		switch node.Kind {
		case language.Object:
			b.processTypeDirectives(typ, node)
			b.processFieldDirectives(typ, node, false)
		case language.Interface:
			b.processTypeDirectives(typ, node)
			b.processFieldDirectives(typ, node, true)
		case language.Scalar:
			b.processScalarDirectives(typ, node)
		case language.InputObject:
			b.processInputDirectives(typ, node)
		case language.Enum:
			b.processEnumDirectives(typ, node)
		case language.Union:
			b.checkNoDefinitionDirectives(node)
		}
	})
	return b.flush()
}

func (b *builder) processTypeDirectives(typ *schema.Type, node *language.Definition) {
	for _, dir := range node.Directives {
		switch dir.Name {
		case "guard":
			b.projectTypeGuard(node, dir)
		default:
			if !b.customDirectives[dir.Name] {
				b.addViolation(violationUnknownDirectiveOnType(dir.Name, node.Kind, node.Name, dir.Position))
			}
		}
	}
}

func (b *builder) projectTypeGuard(node *language.Definition, dir *language.Directive) {
	rule, policySet, policyTrue := b.guardArguments(dir)
	switch {
	case rule != "" && policySet:
		b.addViolation(violationGuardRuleAndPolicy(dir.Position))
	case rule != "":
		b.bindings = append(b.bindings, authz.Binding{
			Kind: authz.BindTypeGuard,
			Type: node.Name,
			Rule: rule,
		})
	case policySet && policyTrue:
		b.bindings = append(b.bindings, authz.Binding{
			Kind: authz.BindTypePolicy,
			Type: node.Name,
		})
	case policySet:
		b.addViolation(violationGuardPolicyMustBeTrue(dir.Position))
	default:
		b.addViolation(violationGuardMissingRuleOrPolicy(dir.Position))
	}
}

func (b *builder) processFieldDirectives(typ *schema.Type, node *language.Definition, isInterface bool) {
	for _, fieldNode := range node.Fields {
		field := typ.GetField(fieldNode.Name)
		for _, dir := range fieldNode.Directives {
			switch dir.Name {
			case "guard":
				if isInterface {
					b.addViolation(violationGuardOnInterfaceField("guard", fieldNode.Name, node.Name, dir.Position))
					continue
				}
				b.projectFieldGuard(node.Name, fieldNode.Name, dir)
			case "visible":
				b.projectMask(node.Name, fieldNode.Name, "", dir)
			case "deprecated":
				field.Deprecate(b.projectDeprecationReason(dir))
			default:
				if !b.customDirectives[dir.Name] {
					b.addViolation(violationUnknownDirectiveOnField(dir.Name, fieldNode.Name, node.Name, dir.Position))
				}
			}
		}

		for _, argNode := range fieldNode.Arguments {
			for _, dir := range argNode.Directives {
				switch dir.Name {
				case "guard":
					if isInterface {
						b.addViolation(violationGuardOnInterfaceField("guard", fieldNode.Name, node.Name, dir.Position))
						continue
					}
					b.projectArgumentGuard(node.Name, fieldNode.Name, argNode.Name, dir)
				case "visible":
					b.projectMask(node.Name, fieldNode.Name, argNode.Name, dir)
				case "deprecated":
					field.GetArgument(argNode.Name).Deprecate(b.projectDeprecationReason(dir))
				default:
					if !b.customDirectives[dir.Name] {
						b.addViolation(violationUnknownDirectiveOnArgument(dir.Name, argNode.Name, fieldNode.Name, dir.Position))
					}
				}
			}
		}
	}
}

func (b *builder) projectFieldGuard(typeName, fieldName string, dir *language.Directive) {
	rule, policySet, _ := b.guardArguments(dir)
	if policySet {
		b.addViolation(violationGuardPolicyOnField(fieldName, typeName, dir.Position))
		return
	}
	if rule == "" {
		b.addViolation(violationGuardMissingRule(dir.Position))
		return
	}
	b.bindings = append(b.bindings, authz.Binding{
		Kind:  authz.BindFieldGuard,
		Type:  typeName,
		Field: fieldName,
		Rule:  rule,
	})
}

func (b *builder) projectArgumentGuard(typeName, fieldName, argName string, dir *language.Directive) {
	rule, policySet, _ := b.guardArguments(dir)
	if policySet {
		b.addViolation(violationGuardPolicyOnField(fieldName, typeName, dir.Position))
		return
	}
	if rule == "" {
		b.addViolation(violationGuardMissingRule(dir.Position))
		return
	}
	b.bindings = append(b.bindings, authz.Binding{
		Kind:     authz.BindArgumentGuard,
		Type:     typeName,
		Field:    fieldName,
		Argument: argName,
		Rule:     rule,
	})
}

// projectMask records a @visible use. An empty argName targets the
// field itself.
func (b *builder) projectMask(typeName, fieldName, argName string, dir *language.Directive) {
	var rule string
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "rule":
			rule = b.getStringValue(arg.Value)
		default:
			b.addViolation(violationUnknownDirectiveArgument("visible", arg.Name, arg.Position))
		}
	}
	if rule == "" {
		b.addViolation(violationVisibleMissingRule(dir.Position))
		return
	}

	kind := authz.BindFieldMask
	if argName != "" {
		kind = authz.BindArgumentMask
	}
	b.bindings = append(b.bindings, authz.Binding{
		Kind:     kind,
		Type:     typeName,
		Field:    fieldName,
		Argument: argName,
		Rule:     rule,
	})
}

func (b *builder) guardArguments(dir *language.Directive) (rule string, policySet, policyTrue bool) {
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "rule":
			rule = b.getStringValue(arg.Value)
		case "policy":
			policySet = true
			policyTrue = b.getBoolValue(arg.Value)
		default:
			b.addViolation(violationUnknownDirectiveArgument("guard", arg.Name, arg.Position))
		}
	}
	return rule, policySet, policyTrue
}

func (b *builder) projectDeprecationReason(dir *language.Directive) string {
	reason := "No longer supported"
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "reason":
			reason = b.getStringValue(arg.Value)
		default:
			b.addViolation(violationUnknownDirectiveArgument("deprecated", arg.Name, arg.Position))
		}
	}
	return reason
}

func (b *builder) processScalarDirectives(typ *schema.Type, node *language.Definition) {
	for _, dir := range node.Directives {
		switch dir.Name {
		case "specifiedBy":
			var url string
			for _, arg := range dir.Arguments {
				switch arg.Name {
				case "url":
					url = b.getStringValue(arg.Value)
				default:
					b.addViolation(violationUnknownDirectiveArgument("specifiedBy", arg.Name, arg.Position))
				}
			}
			if url == "" {
				b.addViolation(violationSpecifiedByMissingURL(dir.Position))
				continue
			}
			typ.SetSpecifiedByURL(url)
		default:
			if !b.customDirectives[dir.Name] {
				b.addViolation(violationUnknownDirectiveOnType(dir.Name, node.Kind, node.Name, dir.Position))
			}
		}
	}
}

func (b *builder) processInputDirectives(typ *schema.Type, node *language.Definition) {
	for _, dir := range node.Directives {
		switch dir.Name {
		case "oneOf":
			b.checkNoDirectiveArguments(dir)
			typ.SetOneOf(true)
		default:
			if !b.customDirectives[dir.Name] {
				b.addViolation(violationUnknownDirectiveOnType(dir.Name, node.Kind, node.Name, dir.Position))
			}
		}
	}

	for _, fieldNode := range node.Fields {
		for _, dir := range fieldNode.Directives {
			switch dir.Name {
			case "guard", "visible":
				b.addViolation(violationDirectiveNotAllowedOnInput(dir.Name, fieldNode.Name, node.Name, dir.Position))
			case "deprecated":
				typ.GetInputField(fieldNode.Name).Deprecate(b.projectDeprecationReason(dir))
			default:
				if !b.customDirectives[dir.Name] {
					b.addViolation(violationUnknownDirectiveOnField(dir.Name, fieldNode.Name, node.Name, dir.Position))
				}
			}
		}
	}
}

func (b *builder) processEnumDirectives(typ *schema.Type, node *language.Definition) {
	b.checkNoDefinitionDirectives(node)
	for _, valueNode := range node.EnumValues {
		for _, dir := range valueNode.Directives {
			switch dir.Name {
			case "deprecated":
				enumValue(typ, valueNode.Name).Deprecate(b.projectDeprecationReason(dir))
			default:
				if !b.customDirectives[dir.Name] {
					b.addViolation(violationWithPosition(
						fmt.Sprintf("Unknown directive @%s on enum value %s of enum %s", dir.Name, valueNode.Name, node.Name),
						dir.Position,
					))
				}
			}
		}
	}
}

func enumValue(typ *schema.Type, name string) *schema.EnumValue {
	for _, v := range typ.EnumValues {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (b *builder) checkNoDefinitionDirectives(node *language.Definition) {
	for _, dir := range node.Directives {
		if !b.customDirectives[dir.Name] {
			b.addViolation(violationUnknownDirectiveOnType(dir.Name, node.Kind, node.Name, dir.Position))
		}
	}
}

func (b *builder) checkNoDirectiveArguments(node *language.Directive) {
	for _, arg := range node.Arguments {
		b.addViolation(violationDirectiveNoArguments(node.Name, arg.Position))
	}
}

func (b *builder) getStringValue(node *language.Value) string {
	if node.Kind != language.StringValue {
		b.addViolation(violationExpectedString(node.Position))
		return ""
	}
	return node.Raw
}

func (b *builder) getBoolValue(node *language.Value) bool {
	if node.Kind != language.BooleanValue {
		b.addViolation(violationExpectedBoolean(node.Position))
		return false
	}
	return node.Raw == "true"
}
