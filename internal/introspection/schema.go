package introspection

import (
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// extendSchema returns a copy of sch with the meta types installed and
// __schema/__type appended to the query root. The copy is shallow: every
// type other than the query root is shared with sch, which is safe because
// types are never mutated after build.
func extendSchema(sch *schema.Schema) *schema.Schema {
	extended := &schema.Schema{
		QueryType:        sch.QueryType,
		MutationType:     sch.MutationType,
		SubscriptionType: sch.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(sch.Types)+8),
		Directives:       sch.Directives,
		Description:      sch.Description,
	}
	for name, typ := range sch.Types {
		extended.Types[name] = typ
	}
	installMetaTypes(extended)

	queryType := extended.GetQueryType()
	if queryType == nil {
		return extended
	}

	// The query root grows two fields, so it needs its own copy.
	root := &schema.Type{
		Name:        queryType.Name,
		Kind:        queryType.Kind,
		Description: queryType.Description,
		Fields:      make([]*schema.Field, len(queryType.Fields), len(queryType.Fields)+2),
		Interfaces:  queryType.Interfaces,
	}
	copy(root.Fields, queryType.Fields)
	root.Fields = append(root.Fields,
		&schema.Field{
			Name:        "__schema",
			Description: "Access the current type schema of this server.",
			Type:        nonNull("__Schema"),
		},
		&schema.Field{
			Name:        "__type",
			Description: "Request the type information of a single type.",
			Arguments: []*schema.InputValue{
				{
					Name:        "name",
					Description: "The name of the type to look up.",
					Type:        nonNull("String"),
				},
			},
			Type: schema.NamedType("__Type"),
		},
	)
	extended.Types[queryType.Name] = root

	return extended
}

func installMetaTypes(sch *schema.Schema) {
	sch.Types["__Schema"] = schemaType()
	sch.Types["__Type"] = typeType()
	sch.Types["__Field"] = fieldType()
	sch.Types["__InputValue"] = inputValueType()
	sch.Types["__EnumValue"] = enumValueType()
	sch.Types["__Directive"] = directiveType()
	sch.Types["__TypeKind"] = typeKindEnum()
	sch.Types["__DirectiveLocation"] = directiveLocationEnum()
}

func nonNull(name string) *schema.TypeRef {
	return schema.NonNullType(schema.NamedType(name))
}

// listOf builds [name!] and nonNullListOf builds [name!]!.
func listOf(name string) *schema.TypeRef {
	return schema.ListType(nonNull(name))
}

func nonNullListOf(name string) *schema.TypeRef {
	return schema.NonNullType(listOf(name))
}

func includeDeprecatedArg() []*schema.InputValue {
	return []*schema.InputValue{
		{Name: "includeDeprecated", Type: schema.NamedType("Boolean"), DefaultValue: false},
	}
}

func schemaType() *schema.Type {
	return &schema.Type{
		Name:        "__Schema",
		Kind:        schema.TypeKindObject,
		Description: "A GraphQL Schema defines the capabilities of a GraphQL server.",
		Fields: []*schema.Field{
			{
				Name:        "types",
				Description: "A list of all types supported by this server.",
				Type:        nonNullListOf("__Type"),
			},
			{
				Name:        "queryType",
				Description: "The type that query operations will be rooted at.",
				Type:        nonNull("__Type"),
			},
			{
				Name:        "mutationType",
				Description: "If this server supports mutation, the type that mutation operations will be rooted at.",
				Type:        schema.NamedType("__Type"),
			},
			{
				Name:        "subscriptionType",
				Description: "If this server support subscription, the type that subscription operations will be rooted at.",
				Type:        schema.NamedType("__Type"),
			},
			{
				Name:        "directives",
				Description: "A list of all directives supported by this server.",
				Type:        nonNullListOf("__Directive"),
			},
			{
				Name:        "description",
				Description: "A description of the schema.",
				Type:        schema.NamedType("String"),
			},
		},
	}
}

func typeType() *schema.Type {
	return &schema.Type{
		Name:        "__Type",
		Kind:        schema.TypeKindObject,
		Description: "The fundamental unit of any GraphQL Schema is the type.",
		Fields: []*schema.Field{
			{
				Name:        "kind",
				Description: "The kind of type.",
				Type:        nonNull("__TypeKind"),
			},
			{
				Name:        "name",
				Description: "The name of the type.",
				Type:        schema.NamedType("String"),
			},
			{
				Name:        "description",
				Description: "The description of the type.",
				Type:        schema.NamedType("String"),
			},
			{
				Name:      "fields",
				Arguments: includeDeprecatedArg(),
				Type:      listOf("__Field"),
			},
			{
				Name: "interfaces",
				Type: listOf("__Type"),
			},
			{
				Name: "possibleTypes",
				Type: listOf("__Type"),
			},
			{
				Name:      "enumValues",
				Arguments: includeDeprecatedArg(),
				Type:      listOf("__EnumValue"),
			},
			{
				Name:      "inputFields",
				Arguments: includeDeprecatedArg(),
				Type:      listOf("__InputValue"),
			},
			{
				Name: "ofType",
				Type: schema.NamedType("__Type"),
			},
			{
				Name: "specifiedByURL",
				Type: schema.NamedType("String"),
			},
			{
				Name: "isOneOf",
				Type: schema.NamedType("Boolean"),
			},
		},
	}
}

func fieldType() *schema.Type {
	return &schema.Type{
		Name: "__Field",
		Kind: schema.TypeKindObject,
		Fields: []*schema.Field{
			{Name: "name", Type: nonNull("String")},
			{Name: "description", Type: schema.NamedType("String")},
			{Name: "args", Arguments: includeDeprecatedArg(), Type: nonNullListOf("__InputValue")},
			{Name: "type", Type: nonNull("__Type")},
			{Name: "isDeprecated", Type: nonNull("Boolean")},
			{Name: "deprecationReason", Type: schema.NamedType("String")},
		},
	}
}

func inputValueType() *schema.Type {
	return &schema.Type{
		Name: "__InputValue",
		Kind: schema.TypeKindObject,
		Fields: []*schema.Field{
			{Name: "name", Type: nonNull("String")},
			{Name: "description", Type: schema.NamedType("String")},
			{Name: "type", Type: nonNull("__Type")},
			{Name: "defaultValue", Type: schema.NamedType("String")},
			{Name: "isDeprecated", Type: nonNull("Boolean")},
			{Name: "deprecationReason", Type: schema.NamedType("String")},
		},
	}
}

func enumValueType() *schema.Type {
	return &schema.Type{
		Name: "__EnumValue",
		Kind: schema.TypeKindObject,
		Fields: []*schema.Field{
			{Name: "name", Type: nonNull("String")},
			{Name: "description", Type: schema.NamedType("String")},
			{Name: "isDeprecated", Type: nonNull("Boolean")},
			{Name: "deprecationReason", Type: schema.NamedType("String")},
		},
	}
}

func directiveType() *schema.Type {
	return &schema.Type{
		Name: "__Directive",
		Kind: schema.TypeKindObject,
		Fields: []*schema.Field{
			{Name: "name", Type: nonNull("String")},
			{Name: "description", Type: schema.NamedType("String")},
			{Name: "isRepeatable", Type: nonNull("Boolean")},
			{Name: "locations", Type: nonNullListOf("__DirectiveLocation")},
			{Name: "args", Arguments: includeDeprecatedArg(), Type: nonNullListOf("__InputValue")},
		},
	}
}

func typeKindEnum() *schema.Type {
	return &schema.Type{
		Name: "__TypeKind",
		Kind: schema.TypeKindEnum,
		EnumValues: []*schema.EnumValue{
			{Name: "SCALAR"},
			{Name: "OBJECT"},
			{Name: "INTERFACE"},
			{Name: "UNION"},
			{Name: "ENUM"},
			{Name: "INPUT_OBJECT"},
			{Name: "LIST"},
			{Name: "NON_NULL"},
		},
	}
}

func directiveLocationEnum() *schema.Type {
	return &schema.Type{
		Name: "__DirectiveLocation",
		Kind: schema.TypeKindEnum,
		EnumValues: []*schema.EnumValue{
			{Name: "QUERY"},
			{Name: "MUTATION"},
			{Name: "SUBSCRIPTION"},
			{Name: "FIELD"},
			{Name: "FRAGMENT_DEFINITION"},
			{Name: "FRAGMENT_SPREAD"},
			{Name: "INLINE_FRAGMENT"},
			{Name: "VARIABLE_DEFINITION"},
			{Name: "SCHEMA"},
			{Name: "SCALAR"},
			{Name: "OBJECT"},
			{Name: "FIELD_DEFINITION"},
			{Name: "ARGUMENT_DEFINITION"},
			{Name: "INTERFACE"},
			{Name: "UNION"},
			{Name: "ENUM"},
			{Name: "ENUM_VALUE"},
			{Name: "INPUT_OBJECT"},
			{Name: "INPUT_FIELD_DEFINITION"},
		},
	}
}
