package sdl

import (
	language "github.com/bilby91/graphql-guard/internal/language"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

func (b *builder) populateDefinitions() error {
	b.eachDefinition(func(node *language.Definition, isExtension bool) {
		if isExtension {
			b.checkExtensionTarget(node)
			return
		}

		if _, ok := b.kinds[node.Name]; ok {
			b.addViolation(violationDefinitionAlreadyExists(node.Name, node.Position))
			return
		}

		switch node.Kind {
		case language.Object:
			b.sch.AddType(schema.NewType(node.Name, schema.TypeKindObject, node.Description))
			b.validateObjectFieldsExist(node)
		case language.Interface:
			b.sch.AddType(schema.NewType(node.Name, schema.TypeKindInterface, node.Description))
			b.validateInterfaceFieldsExist(node)
		case language.Union:
			b.sch.AddType(schema.NewType(node.Name, schema.TypeKindUnion, node.Description))
		case language.InputObject:
			b.sch.AddType(schema.NewType(node.Name, schema.TypeKindInputObject, node.Description))
		case language.Enum:
			b.sch.AddType(schema.NewType(node.Name, schema.TypeKindEnum, node.Description))
		case language.Scalar:
			b.sch.AddType(schema.NewType(node.Name, schema.TypeKindScalar, node.Description))
		default:
			panic("unreachable")
		}

		b.kinds[node.Name] = node.Kind
		b.defs[node.Name] = node
	})
	return b.flush()
}

func (b *builder) checkExtensionTarget(node *language.Definition) {
	kind, ok := b.kinds[node.Name]
	if !ok {
		b.addViolation(violationDefinitionNotFoundForExtension(node.Name, node.Position))
		return
	}
	if kind != node.Kind {
		switch node.Kind {
		case language.Object:
			b.addViolation(violationUnexpectedTypeForExtension(node, "object"))
		case language.Interface:
			b.addViolation(violationUnexpectedTypeForExtension(node, "interface"))
		case language.Union:
			b.addViolation(violationUnexpectedTypeForExtension(node, "union"))
		case language.InputObject:
			b.addViolation(violationUnexpectedTypeForExtension(node, "input"))
		case language.Enum:
			b.addViolation(violationUnexpectedTypeForExtension(node, "enum"))
		case language.Scalar:
			b.addViolation(violationUnexpectedTypeForExtension(node, "scalar"))
		}
	}
}

func (b *builder) validateObjectFieldsExist(node *language.Definition) {
	if len(node.Fields) == 0 {
		b.addViolation(violationObjectMustHaveField(node.Name, node.Position))
	}
}

func (b *builder) validateInterfaceFieldsExist(node *language.Definition) {
	if len(node.Fields) == 0 {
		b.addViolation(violationInterfaceMustHaveField(node.Name, node.Position))
	}
}
