package sdl

import (
	"fmt"
	"slices"

	language "github.com/bilby91/graphql-guard/internal/language"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

func (b *builder) populateImplementations() error {
	// First record the implements lists and union members, then check
	// interface compatibility against the fully merged types.
	b.eachDefinition(func(node *language.Definition, isExtension bool) {
		typ := b.sch.GetType(node.Name)
		switch node.Kind {
		case language.Object, language.Interface:
			b.recordInterfaces(typ, node)
		case language.Union:
			b.recordUnionMembers(typ, node)
		}
	})

	b.eachDefinition(func(node *language.Definition, isExtension bool) {
		if isExtension {
			return
		}
		if node.Kind == language.Object || node.Kind == language.Interface {
			b.validateImplementations(b.sch.GetType(node.Name), node)
		}
	})
	return b.flush()
}

func (b *builder) recordInterfaces(typ *schema.Type, node *language.Definition) {
	for _, interfaceName := range node.Interfaces {
		kind, ok := b.kinds[interfaceName]
		if !ok {
			b.addViolation(violationWithPosition(
				fmt.Sprintf("Interface %q not found for type %q", interfaceName, node.Name),
				node.Position,
			))
			continue
		}
		if kind != language.Interface {
			b.addViolation(violationWithPosition(
				fmt.Sprintf("Type %q is not an interface", interfaceName),
				node.Position,
			))
			continue
		}
		if slices.Contains(typ.Interfaces, interfaceName) {
			continue
		}
		typ.AddInterface(interfaceName)
		if node.Kind == language.Object {
			b.sch.GetType(interfaceName).AddPossibleType(node.Name)
		}
	}
}

func (b *builder) recordUnionMembers(typ *schema.Type, node *language.Definition) {
	for _, memberName := range node.Types {
		kind, ok := b.kinds[memberName]
		if !ok {
			b.addViolation(violationWithPosition(
				fmt.Sprintf("Type %q not found for union %q", memberName, node.Name),
				node.Position,
			))
			continue
		}
		if kind != language.Object {
			b.addViolation(violationWithPosition(
				fmt.Sprintf("Union member %q must be an Object type, but got %s", memberName, kind),
				node.Position,
			))
			continue
		}
		if slices.Contains(typ.PossibleTypes, memberName) {
			continue
		}
		typ.AddPossibleType(memberName)
	}
}

func (b *builder) validateImplementations(typ *schema.Type, node *language.Definition) {
	kindWord := "Object"
	if typ.Kind == schema.TypeKindInterface {
		kindWord = "Interface"
	}

	for _, interfaceName := range typ.Interfaces {
		iface := b.sch.GetType(interfaceName)
		if iface == nil {
			continue
		}

		for _, parent := range iface.Interfaces {
			if !slices.Contains(typ.Interfaces, parent) {
				b.addViolation(violationWithPosition(
					fmt.Sprintf("%s %q must also implement interface %q (required by interface %q)",
						kindWord, typ.Name, parent, interfaceName),
					node.Position,
				))
			}
		}

		for _, interfaceField := range iface.Fields {
			implField := typ.GetField(interfaceField.Name)
			if implField == nil {
				b.addViolation(violationWithPosition(
					fmt.Sprintf("%s %q is missing field %q required by interface %q",
						kindWord, typ.Name, interfaceField.Name, interfaceName),
					node.Position,
				))
				continue
			}
			b.validateFieldImplementation(implField, interfaceField, typ.Name, interfaceName, node.Position)
		}
	}
}

func (b *builder) validateFieldImplementation(field, interfaceField *schema.Field, typeName, interfaceName string, pos *language.Position) {
	// Arguments must match the interface exactly.
	for _, interfaceArg := range interfaceField.Arguments {
		fieldArg := field.GetArgument(interfaceArg.Name)
		if fieldArg == nil {
			b.addViolation(violationWithPosition(
				fmt.Sprintf("Field %q.%q is missing argument %q required by interface %q",
					typeName, field.Name, interfaceArg.Name, interfaceName),
				pos,
			))
			continue
		}
		if !typeRefsEqual(fieldArg.Type, interfaceArg.Type) {
			b.addViolation(violationWithPosition(
				fmt.Sprintf("Argument %q of field %q.%q has type %s but interface %q expects %s",
					interfaceArg.Name, typeName, field.Name,
					typeRefString(fieldArg.Type),
					interfaceName,
					typeRefString(interfaceArg.Type)),
				pos,
			))
		}
	}

	// Additional arguments beyond the interface must be nullable.
	for _, fieldArg := range field.Arguments {
		if interfaceField.GetArgument(fieldArg.Name) == nil && schema.IsNonNull(fieldArg.Type) {
			b.addViolation(violationWithPosition(
				fmt.Sprintf("Additional argument %q of field %q.%q must be nullable (interface %q doesn't have this argument)",
					fieldArg.Name, typeName, field.Name, interfaceName),
				pos,
			))
		}
	}

	// The return type is covariant.
	if !b.isValidImplementationFieldType(field.Type, interfaceField.Type) {
		b.addViolation(violationWithPosition(
			fmt.Sprintf("Field %q.%q has type %s but interface %q expects %s (or a subtype)",
				typeName, field.Name,
				typeRefString(field.Type),
				interfaceName,
				typeRefString(interfaceField.Type)),
			pos,
		))
	}
}

func (b *builder) isValidImplementationFieldType(fieldType, implementedFieldType *schema.TypeRef) bool {
	if fieldType == nil || implementedFieldType == nil {
		return false
	}

	// A Non-Null implementation satisfies a nullable declaration.
	if fieldType.Kind == schema.TypeRefKindNonNull {
		implementedInner := implementedFieldType
		if implementedFieldType.Kind == schema.TypeRefKindNonNull {
			implementedInner = implementedFieldType.OfType
		}
		return b.isValidImplementationFieldType(fieldType.OfType, implementedInner)
	}

	if fieldType.Kind == schema.TypeRefKindList && implementedFieldType.Kind == schema.TypeRefKindList {
		return b.isValidImplementationFieldType(fieldType.OfType, implementedFieldType.OfType)
	}

	if typeRefsEqual(fieldType, implementedFieldType) {
		return true
	}

	if fieldType.Kind == schema.TypeRefKindNamed && implementedFieldType.Kind == schema.TypeRefKindNamed {
		fieldKind := b.kinds[fieldType.Named]
		target := b.sch.GetType(implementedFieldType.Named)
		if target == nil {
			return false
		}

		// An object is covariant to a union it belongs to, and objects
		// and interfaces are covariant to interfaces they implement.
		switch target.Kind {
		case schema.TypeKindUnion:
			return fieldKind == language.Object && slices.Contains(target.PossibleTypes, fieldType.Named)
		case schema.TypeKindInterface:
			impl := b.sch.GetType(fieldType.Named)
			return impl != nil && slices.Contains(impl.Interfaces, implementedFieldType.Named)
		}
	}
	return false
}

func typeRefsEqual(t1, t2 *schema.TypeRef) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if t1.Kind != t2.Kind {
		return false
	}
	switch t1.Kind {
	case schema.TypeRefKindNamed:
		return t1.Named == t2.Named
	case schema.TypeRefKindList, schema.TypeRefKindNonNull:
		return typeRefsEqual(t1.OfType, t2.OfType)
	}
	return false
}

func typeRefString(t *schema.TypeRef) string {
	if t == nil {
		return "<invalid>"
	}
	switch t.Kind {
	case schema.TypeRefKindNonNull:
		return typeRefString(t.OfType) + "!"
	case schema.TypeRefKindList:
		return "[" + typeRefString(t.OfType) + "]"
	}
	return t.Named
}
