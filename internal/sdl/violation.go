package sdl

import (
	"fmt"

	language "github.com/bilby91/graphql-guard/internal/language"
)

// Violation is one structural or annotation problem found in the SDL.
type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationError collects every violation found in one build.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.File != "" {
			line += fmt.Sprintf(" %s:%d:%d", v.File, v.Line, v.Column)
		}
		msg += line + "\n"
	}
	return msg
}

// Core primitive used by all template helpers.
func violationWithPosition(message string, pos *language.Position) *Violation {
	return &Violation{
		Message: message,
		File:    pos.Src.Name,
		Line:    pos.Line,
		Column:  pos.Column,
	}
}

func violationDefinitionAlreadyExists(name string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Definition %q already exists", name),
		pos,
	)
}

func violationDefinitionNotFoundForExtension(name string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("definition %q not found for extension", name),
		pos,
	)
}

func violationUnexpectedTypeForExtension(node *language.Definition, expectedType string) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Unexpected type for extension %s, expected %s", node.Name, expectedType),
		node.Position,
	)
}

func violationReservedFieldPrefix(kind, fieldName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("%s name %q cannot start with '__' (reserved prefix)", kind, fieldName),
		pos,
	)
}

func violationDuplicateField(kind, fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate field %q found in %s %q", fieldName, kind, typeName),
		pos,
	)
}

func violationDuplicateInputValue(fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate input value %q found in input %q", fieldName, typeName),
		pos,
	)
}

func violationDuplicateEnumValue(valueName, enumName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate enum value %q found in enum %q", valueName, enumName),
		pos,
	)
}

func violationTypeNotFound(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Type %q not found in definitions", typeName),
		pos,
	)
}

func violationTypeNotInput(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Type %q is not an input type", typeName),
		pos,
	)
}

func violationTypeNotOutput(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Type %q is not an output type", typeName),
		pos,
	)
}

func violationObjectMustHaveField(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Object type %q must have at least one field", typeName),
		pos,
	)
}

func violationInterfaceMustHaveField(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Interface type %q must have at least one field", typeName),
		pos,
	)
}

func violationSchemaAlreadyDefined(pos *language.Position) *Violation {
	return violationWithPosition("Schema is already defined", pos)
}

func violationQueryRootRequired() *Violation {
	return &Violation{
		Message: "Schema must define a query root type",
	}
}

func violationRootTypeNotFound(kind, typeName string) *Violation {
	return &Violation{
		Message: fmt.Sprintf("%s type %q not found in definitions", kind, typeName),
	}
}

func violationRootTypeNotObject(kind, typeName string) *Violation {
	return &Violation{
		Message: fmt.Sprintf("%s type %q must be an Object type", kind, typeName),
	}
}

func violationDirectiveAlreadyDefined(name string, pos *language.Position) *Violation {
	return violationWithPosition(
		"Directive "+name+" is already defined",
		pos,
	)
}

func violationUnknownDirectiveArgument(directive, arg string, pos *language.Position) *Violation {
	return violationWithPosition(
		"Unknown argument '"+arg+"' in @"+directive+" directive",
		pos,
	)
}

func violationUnknownDirectiveOnField(directive, fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		"Unknown directive @"+directive+" on field "+fieldName+" of type "+typeName,
		pos,
	)
}

func violationUnknownDirectiveOnType(directive string, kind language.DefinitionKind, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		"Unknown directive @"+directive+" on "+string(kind)+" type "+typeName,
		pos,
	)
}

func violationUnknownDirectiveOnArgument(directive, argName, fieldName string, pos *language.Position) *Violation {
	return violationWithPosition(
		"Unknown directive @"+directive+" on argument "+argName+" of field "+fieldName,
		pos,
	)
}

func violationGuardMissingRule(pos *language.Position) *Violation {
	return violationWithPosition(
		"Directive @guard requires a 'rule' argument",
		pos,
	)
}

func violationGuardMissingRuleOrPolicy(pos *language.Position) *Violation {
	return violationWithPosition(
		"Directive @guard requires a 'rule' or 'policy' argument",
		pos,
	)
}

func violationGuardRuleAndPolicy(pos *language.Position) *Violation {
	return violationWithPosition(
		"Directive @guard cannot combine 'rule' and 'policy' arguments",
		pos,
	)
}

func violationGuardPolicyMustBeTrue(pos *language.Position) *Violation {
	return violationWithPosition(
		"Directive @guard argument 'policy' must be true",
		pos,
	)
}

func violationGuardPolicyOnField(fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Directive @guard with 'policy' is only allowed on type definitions, not field %s of type %s", fieldName, typeName),
		pos,
	)
}

func violationVisibleMissingRule(pos *language.Position) *Violation {
	return violationWithPosition(
		"Directive @visible requires a 'rule' argument",
		pos,
	)
}

func violationGuardOnInterfaceField(directive, fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Directive @%s is not allowed on interface field %q of %q. Guard the object type fields or the interface type itself", directive, fieldName, typeName),
		pos,
	)
}

func violationSpecifiedByMissingURL(pos *language.Position) *Violation {
	return violationWithPosition(
		"Directive @specifiedBy requires a 'url' argument",
		pos,
	)
}

func violationDirectiveNotAllowedOnInput(directive, fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Directive @%s is not allowed on input object fields (%s of input %s)", directive, fieldName, typeName),
		pos,
	)
}

func violationDirectiveNoArguments(name string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Directive @%s does not accept arguments", name),
		pos,
	)
}

func violationExpectedString(pos *language.Position) *Violation {
	return violationWithPosition("Expected a string value", pos)
}

func violationExpectedBoolean(pos *language.Position) *Violation {
	return violationWithPosition("Expected a boolean value", pos)
}
