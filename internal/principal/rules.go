package principal

import (
	"context"
	"fmt"
	"strconv"

	authz "github.com/bilby91/graphql-guard/internal/authz"
)

// Authenticated allows any request with a principal attached.
func Authenticated(ctx context.Context, source any, args map[string]any) (bool, error) {
	return FromContext(ctx) != nil, nil
}

// Never denies unconditionally.
func Never(ctx context.Context, source any, args map[string]any) (bool, error) {
	return false, nil
}

// HasRole builds a predicate allowing principals that carry role.
func HasRole(role string) authz.Predicate {
	return func(ctx context.Context, source any, args map[string]any) (bool, error) {
		return FromContext(ctx).HasRole(role), nil
	}
}

// OwnsArgument builds a predicate allowing requests whose named argument
// equals the principal's id. A missing argument or an anonymous request
// denies.
func OwnsArgument(arg string) authz.Predicate {
	return func(ctx context.Context, source any, args map[string]any) (bool, error) {
		p := FromContext(ctx)
		if p == nil {
			return false, nil
		}
		v, ok := args[arg]
		if !ok || v == nil {
			return false, nil
		}
		var id string
		switch t := v.(type) {
		case string:
			id = t
		case int:
			id = strconv.Itoa(t)
		case int64:
			id = strconv.FormatInt(t, 10)
		default:
			id = fmt.Sprintf("%v", t)
		}
		return id == p.ID, nil
	}
}
