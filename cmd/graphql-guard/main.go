package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bilby91/graphql-guard/internal/authz"
	"github.com/bilby91/graphql-guard/internal/eventbus"
	"github.com/bilby91/graphql-guard/internal/memrt"
	"github.com/bilby91/graphql-guard/internal/otel"
	"github.com/bilby91/graphql-guard/internal/principal"
	"github.com/bilby91/graphql-guard/internal/schema"
	"github.com/bilby91/graphql-guard/internal/sdl"
	"github.com/bilby91/graphql-guard/internal/server"
)

const rootUsage = `graphql-guard - field-level authorization for GraphQL over HTTP

USAGE:
  graphql-guard <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL endpoint over a YAML dataset
  check            Validate schema SDL and authorization bindings
  print-schema     Merge & validate GraphQL SDL into a single schema
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema.root <dir>              GraphQL schema root (default: .)
  -data.file <file>               YAML dataset backing the runtime
  -authz.mode <abort|collect>     How denials surface (default: abort)
  -graphql.introspection <bool>   Enable GraphQL introspection (default: true)
  -server.addr <addr>             HTTP listen address (default: :8080)
  -server.pretty                  Pretty-print JSON responses
  -server.timeout <duration>      Per-request timeout, e.g. 10s (default: 10s)
  -server.cors-origin <origin>    Allow a CORS origin. Repeatable
  -principal.id-header <name>     Principal id header (default: X-Principal-Id)
  -principal.roles-header <name>  Principal roles header (default: X-Principal-Roles)
  -otel.endpoint <addr>           OTLP collector endpoint
  -otel.service <name>            OpenTelemetry service name (default: graphql-guard)

RULES:
  @guard and @visible rules resolve against the builtin set:
    authenticated    a principal is present on the request
    never            always denies
    role:<name>      the principal carries the role
    owns:<argument>  the argument value equals the principal id
`

const checkUsage = `check FLAGS:
  -schema.root <dir>  GraphQL schema root (default: .)
  (Validation always runs; exits non-zero on errors)
`

const printSchemaUsage = `print-schema FLAGS:
  -schema.root <dir>  GraphQL schema root (default: .)
  -out <file>         Write merged SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("graphql-guard", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		// print usage on parse error
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "print-schema":
		return cmdPrintSchema(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check":
		fmt.Print(checkUsage)
	case "print-schema":
		fmt.Print(printSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// builtinRules resolves the rule names usable from SDL annotations.
func builtinRules() authz.RuleResolver {
	return authz.RuleResolverFunc(func(name string) (authz.Predicate, bool) {
		switch {
		case name == "authenticated":
			return principal.Authenticated, true
		case name == "never":
			return principal.Never, true
		case strings.HasPrefix(name, "role:"):
			if role := strings.TrimPrefix(name, "role:"); role != "" {
				return principal.HasRole(role), true
			}
		case strings.HasPrefix(name, "owns:"):
			if arg := strings.TrimPrefix(name, "owns:"); arg != "" {
				return principal.OwnsArgument(arg), true
			}
		}
		return nil, false
	})
}

func cmdServe(args []string) error {
	rootDir := "."
	dataFile := ""
	modeName := "abort"
	enableIntrospection := true
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	idHeader := principal.HeaderID
	rolesHeader := principal.HeaderRoles
	otelEndpoint := ""
	otelService := "graphql-guard"
	var corsOrigins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&rootDir, "schema.root", rootDir, "GraphQL schema root")
	fs.StringVar(&dataFile, "data.file", dataFile, "YAML dataset backing the runtime")
	fs.StringVar(&modeName, "authz.mode", modeName, "How denials surface")
	fs.BoolVar(&enableIntrospection, "graphql.introspection", enableIntrospection, "Enable GraphQL introspection")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&corsOrigins, "server.cors-origin", "Allow a CORS origin")
	fs.StringVar(&idHeader, "principal.id-header", idHeader, "Principal id header")
	fs.StringVar(&rolesHeader, "principal.roles-header", rolesHeader, "Principal roles header")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	mode, err := authz.ParseMode(modeName)
	if err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	sch, bindings, err := sdl.Load(rootDir)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	reg, err := authz.NewBuilder().Bind(bindings, builtinRules()).Build(sch)
	if err != nil {
		return fmt.Errorf("authorization bindings: %w", err)
	}

	data := memrt.Dataset{}
	if dataFile != "" {
		if data, err = memrt.LoadDataset(dataFile); err != nil {
			return err
		}
	}
	runtime := memrt.NewRuntime(data)
	runtime.MarkAsync(sch)

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	sopts := []server.Option{
		server.WithRegistry(reg),
		server.WithGate(authz.NewGate(reg, authz.WithMode(mode))),
		server.WithIntrospection(enableIntrospection),
		server.WithContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if p := principal.FromNamedHeaders(r.Header, idHeader, rolesHeader); p != nil {
				ctx = principal.NewContext(ctx, p)
			}
			return ctx
		}),
	}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}
	h, err := server.New(runtime, sch, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Printf("GraphQL server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func cmdCheck(args []string) error {
	rootDir := "."
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&rootDir, "schema.root", rootDir, "GraphQL schema root")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}

	sch, bindings, err := sdl.Load(rootDir)
	if err != nil {
		var verr sdl.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr {
				fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", v.File, v.Line, v.Column, v.Message)
			}
			return fmt.Errorf("schema has %d violation(s)", len(verr))
		}
		return fmt.Errorf("load schema: %w", err)
	}

	reg, err := authz.NewBuilder().Bind(bindings, builtinRules()).Build(sch)
	if err != nil {
		return fmt.Errorf("authorization bindings: %w", err)
	}

	fmt.Printf("schema OK: %d types, %d bindings, %d visibility targets\n",
		len(sch.Types), len(bindings), len(reg.MaskTargets()))
	return nil
}

func cmdPrintSchema(args []string) error {
	rootDir := "."
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&rootDir, "schema.root", rootDir, "GraphQL schema root")
	fs.StringVar(&outFile, "out", outFile, "Write merged SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return err
	}

	sch, _, err := sdl.Load(rootDir)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	rendered := schema.Render(sch)
	if outFile == "" {
		fmt.Print(rendered)
		return nil
	}
	return os.WriteFile(outFile, []byte(rendered), 0644)
}
