package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	authz "github.com/bilby91/graphql-guard/internal/authz"
	eventbus "github.com/bilby91/graphql-guard/internal/eventbus"
	events "github.com/bilby91/graphql-guard/internal/events"
	executor "github.com/bilby91/graphql-guard/internal/executor"
	introspection "github.com/bilby91/graphql-guard/internal/introspection"
	language "github.com/bilby91/graphql-guard/internal/language"
	mask "github.com/bilby91/graphql-guard/internal/mask"
	reqid "github.com/bilby91/graphql-guard/internal/reqid"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses requests, plans the per-request schema view, runs the
// executor, and formats responses per GraphQL spec.
type Handler struct {
	runtime executor.Runtime
	schema  *schema.Schema
	opt     Options

	execOpts []executor.Option
	static   prepared
}

// prepared pairs an executor with the validation schema it serves.
type prepared struct {
	exec *executor.Executor
	ast  *language.Schema
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Registry supplies visibility rules for per-request schema views.
	// A nil registry, or one without visibility rules, serves the base
	// schema to every request.
	Registry *authz.Registry

	// Gate checks field access during execution. Nil disables gating.
	Gate executor.FieldGate

	// ContextFunc derives the request context seen by guard predicates
	// and resolvers, typically attaching the caller's principal.
	ContextFunc func(ctx context.Context, r *http.Request) context.Context

	// Introspection exposes the __schema and __type fields. Enabled by
	// default. Introspection always reflects the request's schema view,
	// so hidden elements do not appear in it.
	Introspection bool

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithRegistry(reg *authz.Registry) Option { return func(o *Options) { o.Registry = reg } }
func WithGate(g executor.FieldGate) Option    { return func(o *Options) { o.Gate = g } }
func WithContextFunc(f func(ctx context.Context, r *http.Request) context.Context) Option {
	return func(o *Options) { o.ContextFunc = f }
}
func WithIntrospection(enable bool) Option { return func(o *Options) { o.Introspection = enable } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

func WithGraphiQL(enable bool) Option { return func(o *Options) { o.GraphiQL = enable } }

// New creates a new GraphQL HTTP handler using the given runtime and schema.
func New(runtime executor.Runtime, sch *schema.Schema, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true, Introspection: true}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{runtime: runtime, schema: sch, opt: op}
	if op.Gate != nil {
		h.execOpts = append(h.execOpts, executor.WithFieldGate(op.Gate))
	}
	static, err := h.prepare(sch)
	if err != nil {
		return nil, err
	}
	h.static = static
	return h, nil
}

// prepare readies a schema view for serving: the introspection extension
// when enabled, the validation form, and an executor bound to both.
func (h *Handler) prepare(view *schema.Schema) (prepared, error) {
	rt := h.runtime
	if h.opt.Introspection {
		w := introspection.Wrap(rt, view)
		rt, view = w.Runtime, w.Schema
	}
	astSchema, err := schema.ToAST(view)
	if err != nil {
		return prepared{}, err
	}
	// The validation form always carries implicit __schema and __type
	// fields on the query root. With introspection off, strip them so
	// such queries fail validation like any other unknown field.
	if !h.opt.Introspection && astSchema.Query != nil {
		kept := astSchema.Query.Fields[:0]
		for _, f := range astSchema.Query.Fields {
			if f.Name == "__schema" || f.Name == "__type" {
				continue
			}
			kept = append(kept, f)
		}
		astSchema.Query.Fields = kept
	}
	return prepared{exec: executor.NewExecutor(rt, view, h.execOpts...), ast: astSchema}, nil
}

// viewFor returns the executor and validation schema for one request.
// Without visibility rules every request shares the precomputed base
// view; with them, each request that hides anything gets its own
// narrowed view.
func (h *Handler) viewFor(ctx context.Context, variables map[string]any) (prepared, error) {
	if h.opt.Registry == nil || !h.opt.Registry.HasMasks() {
		return h.static, nil
	}
	plan := mask.Plan(ctx, h.opt.Registry, variables)
	if plan.Empty() {
		return h.static, nil
	}
	return h.prepare(mask.Apply(h.schema, plan))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	if h.opt.ContextFunc != nil {
		ctx = h.opt.ContextFunc(ctx, r)
	}
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, requestFailure(specError{Message: "method not allowed"}), h.opt.Pretty)
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, requestFailure(specError{Message: berr.Message}), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		// Batched requests share one HTTP status; each element carries
		// its own errors.
		op := make([]any, len(batch))
		for i := range batch {
			res, _ := h.executeOne(ctx, batch[i])
			op[i] = res
		}
		writeJSON(w, status, op, h.opt.Pretty)
		return
	}

	res, rstatus := h.executeOne(ctx, req)
	status = rstatus
	writeJSON(w, status, res, h.opt.Pretty)
}

func (h *Handler) executeOne(ctx context.Context, req GraphQLRequest) (any, int) {
	// Parse query (syntax validation)
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var ge *language.Error
		if errors.As(err, &ge) {
			return requestFailure(fromLanguageError(ge)), http.StatusBadRequest
		}
		return requestFailure(specError{Message: err.Error()}), http.StatusBadRequest
	}

	view, err := h.viewFor(ctx, req.Variables)
	if err != nil {
		// A view that cannot be readied is never served partially.
		return requestFailure(specError{Message: "schema view unavailable"}), http.StatusInternalServerError
	}

	// Validation runs against the request's view, so hidden schema
	// elements fail exactly like elements that never existed.
	if verrs := language.ValidateQuery(view.ast, doc); len(verrs) > 0 {
		out := make([]specError, len(verrs))
		for i, ve := range verrs {
			out[i] = fromLanguageError(ve)
		}
		return requestFailure(out...), http.StatusBadRequest
	}

	opDef := doc.Operations.ForName(req.OperationName)
	if opDef == nil && len(doc.Operations) == 1 {
		opDef = doc.Operations[0]
	}
	opType := ""
	if opDef != nil {
		opType = string(opDef.Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	result := view.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Aborted:       result.RequestFailed,
		Duration:      time.Since(start),
	})
	if result.RequestFailed {
		return requestFailure(fromExecutionErrors(result.Errors)...), http.StatusOK
	}
	if len(result.Errors) > 0 {
		return toSpecResult(result), http.StatusOK
	}
	return result, http.StatusOK
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct == "" || ct == "application/json" || startsWith(ct, "application/json;") {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "failed to read body"}
		}
		defer r.Body.Close()
		if maxBody > 0 && int64(len(body)) > maxBody {
			return GraphQLRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
		}

		// Try array (batch)
		var arr []GraphQLRequest
		if len(body) > 0 && body[0] == '[' {
			if err := json.Unmarshal(body, &arr); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
			}
			if len(arr) == 0 {
				return GraphQLRequest{}, nil, &language.Error{Message: "empty batch"}
			}
			return GraphQLRequest{}, arr, nil
		}
		// Single
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if req.Query == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return req, nil, nil
	}

	return GraphQLRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
}

// ------------------ Response formatting ------------------

type specLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type specError struct {
	Message    string         `json:"message"`
	Locations  []specLocation `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type specResult struct {
	Data   any         `json:"data"`
	Errors []specError `json:"errors,omitempty"`
}

// errorsOnly is a response without a data key. Failures that precede
// field execution must not serialize data at all, not even as null.
type errorsOnly struct {
	Errors []specError `json:"errors"`
}

func requestFailure(errs ...specError) errorsOnly {
	return errorsOnly{Errors: errs}
}

const errCodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"

// fromLanguageError shapes a parse or validation error for the response,
// tagging it GRAPHQL_VALIDATION_FAILED unless it already carries a code.
func fromLanguageError(e *language.Error) specError {
	se := specError{Message: e.Message, Extensions: map[string]any{}}
	for k, v := range e.Extensions {
		se.Extensions[k] = v
	}
	if _, ok := se.Extensions["code"]; !ok {
		se.Extensions["code"] = errCodeValidationFailed
	}
	for _, l := range e.Locations {
		se.Locations = append(se.Locations, specLocation{Line: l.Line, Column: l.Column})
	}
	return se
}

func fromExecutionErrors(errs []executor.GraphQLError) []specError {
	out := make([]specError, len(errs))
	for i, e := range errs {
		se := specError{Message: e.Message, Extensions: e.Extensions}
		for _, l := range e.Locations {
			se.Locations = append(se.Locations, specLocation{Line: l.Line, Column: l.Column})
		}
		for _, pe := range e.Path {
			se.Path = append(se.Path, pe)
		}
		out[i] = se
	}
	return out
}

func toSpecResult(res *executor.ExecutionResult) specResult {
	// GraphQL responses may carry partial data alongside errors; preserve it.
	return specResult{Data: res.Data, Errors: fromExecutionErrors(res.Errors)}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func startsWith(s, prefix string) bool { return len(s) >= len(prefix) && s[:len(prefix)] == prefix }

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	parts := strings.Split(accept, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if startsWith(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
