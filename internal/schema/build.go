package schema

// NewSchema creates an empty schema with the given description.
func NewSchema(description string) *Schema {
	return &Schema{
		Types:       map[string]*Type{},
		Directives:  map[string]*Directive{},
		Description: description,
	}
}

// SetQueryType sets the root query type name.
func (s *Schema) SetQueryType(name string) *Schema {
	s.QueryType = name
	return s
}

// SetMutationType sets the root mutation type name.
func (s *Schema) SetMutationType(name string) *Schema {
	s.MutationType = name
	return s
}

// SetSubscriptionType sets the root subscription type name.
func (s *Schema) SetSubscriptionType(name string) *Schema {
	s.SubscriptionType = name
	return s
}

// AddType registers t under its name, replacing any previous entry.
func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

// AddDirective registers d under its name, replacing any previous entry.
func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

// GetType returns the named type (nil if absent).
func (s *Schema) GetType(name string) *Type { return s.Types[name] }

// AddBuiltins registers the built-in scalar types and directives.
// The shared instances are recognized by Render and skipped in output.
func (s *Schema) AddBuiltins() *Schema {
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective)
	return s
}

// NewType creates a named type of the given kind.
func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

// AddField appends f to the type's field list.
func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

// AddInterface records that the type implements the named interface.
func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

// AddPossibleType appends a member type name (unions and interfaces).
func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

// AddEnumValue appends v to the enum's value list.
func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

// AddInputField appends v to the input object's field list.
func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

// SetOneOf marks an input object as oneOf.
func (t *Type) SetOneOf(v bool) *Type {
	t.OneOf = v
	return t
}

// SetSpecifiedByURL sets the scalar specification URL.
func (t *Type) SetSpecifiedByURL(url string) *Type {
	t.SpecifiedByURL = &url
	return t
}

// GetField returns the named field (nil if absent).
func (t *Type) GetField(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// GetInputField returns the named input field (nil if absent).
func (t *Type) GetInputField(name string) *InputValue {
	for _, v := range t.InputFields {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// GetOrderedFields returns fields in declaration order.
func (t *Type) GetOrderedFields() []*Field { return t.Fields }

// GetOrderedInputFields returns input fields in declaration order.
func (t *Type) GetOrderedInputFields() []*InputValue { return t.InputFields }

// NewField creates a field with the given result type.
func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

// SetAsync marks whether the field resolves through the async batch path.
func (f *Field) SetAsync(v bool) *Field {
	f.Async = v
	return f
}

// Deprecate marks the field deprecated with the given reason.
func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

// AddArgument appends v to the field's argument list.
func (f *Field) AddArgument(v *InputValue) *Field {
	f.Arguments = append(f.Arguments, v)
	return f
}

// GetArgument returns the named argument (nil if absent).
func (f *Field) GetArgument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// GetOrderedArguments returns arguments in declaration order.
func (f *Field) GetOrderedArguments() []*InputValue { return f.Arguments }

// NewFieldMap builds a field list from its arguments.
func NewFieldMap(fields ...*Field) []*Field { return fields }

// NewEnumValue creates an enum value.
func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

// Deprecate marks the enum value deprecated with the given reason.
func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

// NewInputValue creates an input value with the given type.
func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

// SetDefault sets the default value.
func (v *InputValue) SetDefault(value any) *InputValue {
	v.DefaultValue = value
	return v
}

// Deprecate marks the input value deprecated with the given reason.
func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

// NewDirective creates a directive definition.
func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

// SetRepeatable marks whether the directive may appear multiple times per location.
func (d *Directive) SetRepeatable(v bool) *Directive {
	d.IsRepeatable = v
	return d
}

// AddLocation appends an allowed directive location.
func (d *Directive) AddLocation(loc string) *Directive {
	d.Locations = append(d.Locations, loc)
	return d
}

// AddArgument appends v to the directive's argument list.
func (d *Directive) AddArgument(v *InputValue) *Directive {
	d.Arguments = append(d.Arguments, v)
	return d
}
