package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/bilby91/graphql-guard/internal/language"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// testSchema builds the schema shared by the registry and gate tests:
//
//	type Query {
//	  posts(userId: Int): [Post]
//	  post: Post
//	  greeting: String
//	  search(filter: String, limit: Int): String
//	}
//	type Post { title: String, secret: String }
//	type Mutation { createPost(title: String): Post }
func testSchema() *schema.Schema {
	sch := schema.NewSchema("")
	sch.SetQueryType("Query")
	sch.SetMutationType("Mutation")

	query := schema.NewType("Query", schema.TypeKindObject, "")
	posts := schema.NewField("posts", "", schema.ListType(schema.NamedType("Post")))
	posts.AddArgument(schema.NewInputValue("userId", "", schema.NamedType("Int")))
	query.AddField(posts)
	query.AddField(schema.NewField("post", "", schema.NamedType("Post")))
	query.AddField(schema.NewField("greeting", "", schema.NamedType("String")))
	search := schema.NewField("search", "", schema.NamedType("String"))
	search.AddArgument(schema.NewInputValue("filter", "", schema.NamedType("String")))
	search.AddArgument(schema.NewInputValue("limit", "", schema.NamedType("Int")))
	query.AddField(search)
	sch.AddType(query)

	post := schema.NewType("Post", schema.TypeKindObject, "")
	post.AddField(schema.NewField("title", "", schema.NamedType("String")))
	post.AddField(schema.NewField("secret", "", schema.NamedType("String")))
	sch.AddType(post)

	mutation := schema.NewType("Mutation", schema.TypeKindObject, "")
	createPost := schema.NewField("createPost", "", schema.NamedType("Post"))
	createPost.AddArgument(schema.NewInputValue("title", "", schema.NamedType("String")))
	mutation.AddField(createPost)
	sch.AddType(mutation)

	sch.AddType(schema.NewType("String", schema.TypeKindScalar, ""))
	sch.AddType(schema.NewType("Int", schema.TypeKindScalar, ""))
	return sch
}

type userKey struct{}

type testUser struct {
	ID   int
	Role string
}

func withUser(ctx context.Context, u testUser) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func userFrom(ctx context.Context) (testUser, bool) {
	u, ok := ctx.Value(userKey{}).(testUser)
	return u, ok
}

func allow(ctx context.Context, source any, args map[string]any) (bool, error) {
	return true, nil
}

func denyAll(ctx context.Context, source any, args map[string]any) (bool, error) {
	return false, nil
}

func countingPredicate(n *int, result bool) Predicate {
	return func(ctx context.Context, source any, args map[string]any) (bool, error) {
		*n++
		return result, nil
	}
}

func mustParse(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	return doc
}

func mustBuild(t *testing.T, b *Builder, sch *schema.Schema) *Registry {
	t.Helper()
	reg, err := b.Build(sch)
	require.NoError(t, err)
	return reg
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("abort")
	require.NoError(t, err)
	require.Equal(t, ModeAbort, m)

	m, err = ParseMode("collect")
	require.NoError(t, err)
	require.Equal(t, ModeCollect, m)

	_, err = ParseMode("loud")
	require.ErrorContains(t, err, `unknown authorization mode "loud"`)

	require.Equal(t, "abort", ModeAbort.String())
	require.Equal(t, "collect", ModeCollect.String())
}
