package sdl

import (
	"strings"

	language "github.com/bilby91/graphql-guard/internal/language"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

func (b *builder) populateFields() error {
	b.eachDefinition(func(node *language.Definition, isExtension bool) {
		typ := b.sch.GetType(node.Name)
		switch node.Kind {
		case language.Object:
			b.extendCompositeType(typ, "object", node)
		case language.Interface:
			b.extendCompositeType(typ, "interface", node)
		case language.InputObject:
			b.extendInputType(typ, node)
		case language.Enum:
			b.extendEnumType(typ, node)
		case language.Union, language.Scalar:
			// Members and scalar details carry no field definitions.
		default:
			panic("unreachable")
		}
	})
	return b.flush()
}

func (b *builder) extendCompositeType(typ *schema.Type, kind string, node *language.Definition) {
	for _, fieldNode := range node.Fields {
		if strings.HasPrefix(fieldNode.Name, "__") {
			b.addViolation(violationReservedFieldPrefix("Field", fieldNode.Name, fieldNode.Position))
			continue
		}
		if typ.GetField(fieldNode.Name) != nil {
			b.addViolation(violationDuplicateField(kind, fieldNode.Name, node.Name, fieldNode.Position))
			continue
		}
		typ.AddField(b.projectField(fieldNode))
	}
}

func (b *builder) extendInputType(typ *schema.Type, node *language.Definition) {
	for _, fieldNode := range node.Fields {
		if typ.GetInputField(fieldNode.Name) != nil {
			b.addViolation(violationDuplicateInputValue(fieldNode.Name, node.Name, fieldNode.Position))
			continue
		}
		value := schema.NewInputValue(fieldNode.Name, fieldNode.Description,
			b.projectTypeRef(fieldNode.Type, typeRefModeInput))
		if fieldNode.DefaultValue != nil {
			b.setDefault(value, fieldNode.DefaultValue)
		}
		typ.AddInputField(value)
	}
}

func (b *builder) extendEnumType(typ *schema.Type, node *language.Definition) {
	for _, valueNode := range node.EnumValues {
		if enumValueExists(typ, valueNode.Name) {
			b.addViolation(violationDuplicateEnumValue(valueNode.Name, node.Name, valueNode.Position))
			continue
		}
		typ.AddEnumValue(schema.NewEnumValue(valueNode.Name, valueNode.Description))
	}
}

func enumValueExists(typ *schema.Type, name string) bool {
	for _, v := range typ.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

func (b *builder) projectField(node *language.FieldDefinition) *schema.Field {
	field := schema.NewField(node.Name, node.Description,
		b.projectTypeRef(node.Type, typeRefModeOutput))

	for _, argNode := range node.Arguments {
		if strings.HasPrefix(argNode.Name, "__") {
			b.addViolation(violationReservedFieldPrefix("Argument", argNode.Name, argNode.Position))
			continue
		}
		arg := schema.NewInputValue(argNode.Name, argNode.Description,
			b.projectTypeRef(argNode.Type, typeRefModeInput))
		if argNode.DefaultValue != nil {
			b.setDefault(arg, argNode.DefaultValue)
		}
		field.AddArgument(arg)
	}
	return field
}

func (b *builder) setDefault(value *schema.InputValue, node *language.Value) {
	defaultValue, err := node.Value(nil)
	if err != nil {
		b.addViolation(violationWithPosition(err.Error(), node.Position))
		return
	}
	value.SetDefault(defaultValue)
}

func (b *builder) projectTypeRef(node *language.Type, mode typeRefMode) *schema.TypeRef {
	if node.NonNull {
		return schema.NonNullType(b.projectTypeRef(&language.Type{
			NamedType: node.NamedType,
			Elem:      node.Elem,
			NonNull:   false,
			Position:  node.Position,
		}, mode))
	}
	if node.Elem != nil {
		return schema.ListType(b.projectTypeRef(node.Elem, mode))
	}

	kind, ok := b.kinds[node.NamedType]
	if !ok {
		b.addViolation(violationTypeNotFound(node.NamedType, node.Position))
		return nil
	}
	switch mode {
	case typeRefModeInput:
		if kind != language.Scalar && kind != language.Enum && kind != language.InputObject {
			b.addViolation(violationTypeNotInput(node.NamedType, node.Position))
			return nil
		}
	case typeRefModeOutput:
		if kind == language.InputObject {
			b.addViolation(violationTypeNotOutput(node.NamedType, node.Position))
			return nil
		}
	}
	return schema.NamedType(node.NamedType)
}

type typeRefMode int

const (
	typeRefModeInput typeRefMode = iota
	typeRefModeOutput
)
