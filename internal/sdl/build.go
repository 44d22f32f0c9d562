package sdl

import (
	"context"
	"sort"

	authz "github.com/bilby91/graphql-guard/internal/authz"
	language "github.com/bilby91/graphql-guard/internal/language"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

type builder struct {
	sch      *schema.Schema
	bindings []authz.Binding

	// kinds knows every named type, including the built-in scalars
	// that have no AST node.
	kinds map[string]language.DefinitionKind
	defs  map[string]*language.Definition

	// customDirectives are author-declared directive names whose uses
	// are tolerated in the documents.
	customDirectives map[string]bool

	violations []*Violation
	discovery  Discovery
	docs       map[string]*language.SchemaDocument
	docNames   []string
	schemaSeen bool
}

// Build parses and merges every discovered document into an executable
// schema and the authorization bindings extracted from its @guard and
// @visible annotations. Structural problems are reported together as a
// ValidationError.
func Build(ctx context.Context, disc Discovery) (*schema.Schema, []authz.Binding, error) {
	b := &builder{
		sch:              schema.NewSchema("").AddBuiltins(),
		kinds:            make(map[string]language.DefinitionKind),
		defs:             make(map[string]*language.Definition),
		customDirectives: make(map[string]bool),
		discovery:        disc,
		docs:             make(map[string]*language.SchemaDocument),
	}

	if err := b.build(ctx); err != nil {
		return nil, nil, err
	}
	return b.sch, b.bindings, nil
}

func (b *builder) build(ctx context.Context) error {
	metas, err := b.discovery.ListDocuments(ctx)
	if err != nil {
		return err
	}

	// Documents are processed in name order so that merged output and
	// violation lists do not depend on discovery order.
	for _, meta := range metas {
		sdl, err := b.discovery.ReadDocument(ctx, meta.Name)
		if err != nil {
			return err
		}
		document, err := language.ParseSchema(meta.FilePath, sdl)
		if err != nil {
			return err
		}
		b.docs[meta.Name] = document
		b.docNames = append(b.docNames, meta.Name)
	}
	sort.Strings(b.docNames)

	// The built-in scalars exist without an AST node.
	for _, name := range []string{"String", "Int", "Float", "Boolean", "ID"} {
		b.kinds[name] = language.Scalar
	}

	if err := b.populateDefinitions(); err != nil {
		return err
	}
	if err := b.processSchemaDefinitions(); err != nil {
		return err
	}
	if err := b.populateFields(); err != nil {
		return err
	}
	if err := b.populateImplementations(); err != nil {
		return err
	}
	if err := b.populateDirectiveDefinitions(); err != nil {
		return err
	}
	if err := b.populateAnnotations(); err != nil {
		return err
	}
	return nil
}

func (b *builder) addViolation(v ...*Violation) {
	b.violations = append(b.violations, v...)
}

// flush returns the collected violations as one error, or nil.
func (b *builder) flush() error {
	if len(b.violations) > 0 {
		return ValidationError(b.violations)
	}
	return nil
}

// eachDefinition visits every definition node, then every extension
// node, in document name order.
func (b *builder) eachDefinition(fn func(node *language.Definition, isExtension bool)) {
	for _, name := range b.docNames {
		for _, node := range b.docs[name].Definitions {
			fn(node, false)
		}
	}
	for _, name := range b.docNames {
		for _, node := range b.docs[name].Extensions {
			fn(node, true)
		}
	}
}

func (b *builder) processSchemaDefinitions() error {
	for _, name := range b.docNames {
		for _, schemaDef := range b.docs[name].Schema {
			if b.schemaSeen {
				b.addViolation(violationSchemaAlreadyDefined(schemaDef.Position))
				continue
			}
			b.schemaSeen = true
			for _, opType := range schemaDef.OperationTypes {
				switch opType.Operation {
				case language.Query:
					b.sch.SetQueryType(opType.Type)
				case language.Mutation:
					b.sch.SetMutationType(opType.Type)
				case language.Subscription:
					b.sch.SetSubscriptionType(opType.Type)
				}
			}
		}
	}

	// Without a schema block the conventional root type names apply.
	if !b.schemaSeen {
		if node, ok := b.defs["Query"]; ok && node.Kind == language.Object {
			b.sch.SetQueryType("Query")
		}
		if node, ok := b.defs["Mutation"]; ok && node.Kind == language.Object {
			b.sch.SetMutationType("Mutation")
		}
		if node, ok := b.defs["Subscription"]; ok && node.Kind == language.Object {
			b.sch.SetSubscriptionType("Subscription")
		}
	}

	if b.sch.QueryType == "" {
		b.addViolation(violationQueryRootRequired())
	} else {
		b.checkRootType("Query", b.sch.QueryType)
	}
	if b.sch.MutationType != "" {
		b.checkRootType("Mutation", b.sch.MutationType)
	}
	if b.sch.SubscriptionType != "" {
		b.checkRootType("Subscription", b.sch.SubscriptionType)
	}
	return b.flush()
}

func (b *builder) checkRootType(kind, typeName string) {
	node, ok := b.defs[typeName]
	if !ok {
		b.addViolation(violationRootTypeNotFound(kind, typeName))
		return
	}
	if node.Kind != language.Object {
		b.addViolation(violationRootTypeNotObject(kind, typeName))
	}
}
