package introspection

import (
	"context"
	"testing"

	authz "github.com/bilby91/graphql-guard/internal/authz"
	executor "github.com/bilby91/graphql-guard/internal/executor"
	language "github.com/bilby91/graphql-guard/internal/language"
	mask "github.com/bilby91/graphql-guard/internal/mask"
	schema "github.com/bilby91/graphql-guard/internal/schema"
	sdl "github.com/bilby91/graphql-guard/internal/sdl"
)

// noopRuntime implements executor.Runtime with no behaviour.
type noopRuntime struct{}

func (noopRuntime) ResolveSync(context.Context, string, string, any, map[string]any) (any, error) {
	return nil, nil
}

func (noopRuntime) BatchResolveAsync(context.Context, []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return nil
}

func (noopRuntime) ResolveType(context.Context, string, any) (string, error) {
	return "", nil
}

func (noopRuntime) SerializeLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

func buildSchema(t *testing.T, source string) *schema.Schema {
	t.Helper()
	sch, _, err := sdl.BuildString("introspection", source)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return sch
}

func runQuery(t *testing.T, exec *executor.Executor, query string) map[string]any {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	return res.Data.(map[string]any)
}

func TestIntrospectionEnabled(t *testing.T) {
	sch := buildSchema(t, `type Query { hello: String }`)
	v := Wrap(noopRuntime{}, sch)
	exec := executor.NewExecutor(v.Runtime, v.Schema)

	data := runQuery(t, exec, "{__schema{queryType{name}}}")
	schData := data["__schema"].(map[string]any)
	qt := schData["queryType"].(map[string]any)
	if qt["name"].(string) != "Query" {
		t.Fatalf("queryType.name = %v", qt["name"])
	}
}

func TestIntrospectionCustomRootName(t *testing.T) {
	sch := buildSchema(t, `
schema { query: Root }
type Root { hello: String }
`)
	v := Wrap(noopRuntime{}, sch)
	exec := executor.NewExecutor(v.Runtime, v.Schema)

	data := runQuery(t, exec, "{__schema{queryType{name}}}")
	schData := data["__schema"].(map[string]any)
	qt := schData["queryType"].(map[string]any)
	if qt["name"].(string) != "Root" {
		t.Fatalf("queryType.name = %v", qt["name"])
	}
}

func TestTypeKindOfNamedFieldType(t *testing.T) {
	sch := buildSchema(t, `
type Query { post: Post }
type Post { title: String }
`)
	v := Wrap(noopRuntime{}, sch)
	exec := executor.NewExecutor(v.Runtime, v.Schema)

	data := runQuery(t, exec, `{__type(name: "Query"){fields{name type{kind name}}}}`)
	typ := data["__type"].(map[string]any)
	fields := typ["fields"].([]any)
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	ft := fields[0].(map[string]any)["type"].(map[string]any)
	if ft["kind"] != "OBJECT" {
		t.Fatalf("expected field type kind OBJECT, got %v", ft["kind"])
	}
	if ft["name"] != "Post" {
		t.Fatalf("expected field type name Post, got %v", ft["name"])
	}
}

func TestIntrospectionReflectsMaskedView(t *testing.T) {
	sch, bindings, err := sdl.BuildString("introspection", `
type Query {
  hello: String
  secret: String @visible(rule: "admin")
}
`)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	deny := func(ctx context.Context, source any, args map[string]any) (bool, error) {
		return false, nil
	}
	rules := authz.RuleResolverFunc(func(name string) (authz.Predicate, bool) {
		return deny, true
	})
	reg, err := authz.NewBuilder().Bind(bindings, rules).Build(sch)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	view := mask.Apply(sch, mask.Plan(context.Background(), reg, nil))
	v := Wrap(noopRuntime{}, view)
	exec := executor.NewExecutor(v.Runtime, v.Schema)

	data := runQuery(t, exec, `{__type(name: "Query"){fields{name}}}`)
	typ := data["__type"].(map[string]any)
	fields := typ["fields"].([]any)
	if len(fields) != 1 {
		t.Fatalf("expected 1 visible field, got %d", len(fields))
	}
	if name := fields[0].(map[string]any)["name"]; name != "hello" {
		t.Fatalf("expected only hello to remain, got %v", name)
	}
}

func TestTypenameField(t *testing.T) {
	sch := buildSchema(t, `type Query { hello: String }`)
	// __typename works straight off the executor, no view needed
	rt := noopRuntime{}
	exec := executor.NewExecutor(rt, sch)

	data := runQuery(t, exec, "{__typename}")
	if data["__typename"] != "Query" {
		t.Fatalf("expected __typename to be Query, got %v", data["__typename"])
	}
}
