package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, fn func() error) (stdout, stderr string, err error) {
	t.Helper()
	oldOut, oldErr := os.Stdout, os.Stderr
	defer func() {
		os.Stdout, os.Stderr = oldOut, oldErr
	}()

	outR, outW, _ := os.Pipe()
	errR, errW, _ := os.Pipe()
	os.Stdout, os.Stderr = outW, errW

	doneOut := make(chan struct{})
	var bufOut bytes.Buffer
	go func() { io.Copy(&bufOut, outR); close(doneOut) }()

	doneErr := make(chan struct{})
	var bufErr bytes.Buffer
	go func() { io.Copy(&bufErr, errR); close(doneErr) }()

	err = fn()
	outW.Close()
	errW.Close()
	<-doneOut
	<-doneErr
	stdout, stderr = bufOut.String(), bufErr.String()
	return
}

func writeSchemaRoot(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestHelp(t *testing.T) {
	out, _, err := captureOutput(t, func() error {
		return run([]string{"help", "serve"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")
	require.Contains(t, out, "RULES")
}

func TestHelpUnknownTopic(t *testing.T) {
	_, _, err := captureOutput(t, func() error {
		return run([]string{"help", "frobnicate"})
	})
	require.ErrorContains(t, err, `unknown help topic "frobnicate"`)
}

func TestRunMissingCommand(t *testing.T) {
	_, errOut, err := captureOutput(t, func() error {
		return run(nil)
	})
	require.ErrorContains(t, err, "missing command")
	require.Contains(t, errOut, "USAGE")
}

func TestRunUnknownCommand(t *testing.T) {
	_, _, err := captureOutput(t, func() error {
		return run([]string{"frobnicate"})
	})
	require.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestPrintSchema(t *testing.T) {
	root := writeSchemaRoot(t, map[string]string{
		"app.graphql": `type Query {
  hello: String @guard(rule: "authenticated")
}
`,
	})
	out, _, err := captureOutput(t, func() error {
		return run([]string{"print-schema", "-schema.root", root})
	})
	require.NoError(t, err)
	require.Contains(t, out, "type Query")
	require.Contains(t, out, "hello: String")
	require.NotContains(t, out, "@guard")
}

func TestPrintSchemaToFile(t *testing.T) {
	root := writeSchemaRoot(t, map[string]string{
		"app.graphql": "type Query {\n  hello: String\n}\n",
	})
	outFile := filepath.Join(t.TempDir(), "schema.graphql")
	_, _, err := captureOutput(t, func() error {
		return run([]string{"print-schema", "-schema.root", root, "-out", outFile})
	})
	require.NoError(t, err)
	merged, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Contains(t, string(merged), "type Query")
}

func TestCheckOK(t *testing.T) {
	root := writeSchemaRoot(t, map[string]string{
		"core.graphql": `type Query {
  me(id: ID @guard(rule: "owns:id")): User
}
`,
		"user/user.graphql": `type User {
  name: String
  email: String @visible(rule: "role:admin")
}
`,
	})
	out, _, err := captureOutput(t, func() error {
		return run([]string{"check", "-schema.root", root})
	})
	require.NoError(t, err)
	require.Contains(t, out, "schema OK")
	require.Contains(t, out, "1 visibility targets")
}

func TestCheckSimpleFixture(t *testing.T) {
	root := filepath.Join("..", "..", "tests", "simple")
	out, _, err := captureOutput(t, func() error {
		return run([]string{"check", "-schema.root", root})
	})
	require.NoError(t, err)
	require.Contains(t, out, "schema OK")
	require.Contains(t, out, "2 visibility targets")
}

func TestPrintSchemaSimpleFixture(t *testing.T) {
	root := filepath.Join("..", "..", "tests", "simple")
	out, _, err := captureOutput(t, func() error {
		return run([]string{"print-schema", "-schema.root", root})
	})
	require.NoError(t, err)
	require.Contains(t, out, "type Organization")
	require.Contains(t, out, "type Profile")
	require.NotContains(t, out, "@guard")
	require.NotContains(t, out, "@visible")
}

func TestCheckReportsViolations(t *testing.T) {
	root := writeSchemaRoot(t, map[string]string{
		"bad.graphql": "type Query {\n  a: Missing\n}\n",
	})
	_, errOut, err := captureOutput(t, func() error {
		return run([]string{"check", "-schema.root", root})
	})
	require.ErrorContains(t, err, "violation")
	require.Contains(t, errOut, `Type "Missing" not found`)
	require.Contains(t, errOut, "bad.graphql")
}

func TestCheckRejectsUnknownRule(t *testing.T) {
	root := writeSchemaRoot(t, map[string]string{
		"app.graphql": `type Query {
  hello: String @guard(rule: "frobnicate")
}
`,
	})
	_, _, err := captureOutput(t, func() error {
		return run([]string{"check", "-schema.root", root})
	})
	require.ErrorContains(t, err, `unknown rule "frobnicate"`)
}

func TestServeRejectsUnknownMode(t *testing.T) {
	_, _, err := captureOutput(t, func() error {
		return run([]string{"serve", "-authz.mode", "sideways"})
	})
	require.Error(t, err)
}

func TestServeFailsOnEmptySchemaRoot(t *testing.T) {
	_, _, err := captureOutput(t, func() error {
		return run([]string{"serve", "-schema.root", t.TempDir()})
	})
	require.ErrorContains(t, err, "load schema")
}

func TestServeFailsOnMissingDataset(t *testing.T) {
	root := writeSchemaRoot(t, map[string]string{
		"app.graphql": "type Query {\n  hello: String\n}\n",
	})
	_, _, err := captureOutput(t, func() error {
		return run([]string{"serve", "-schema.root", root, "-data.file", filepath.Join(root, "absent.yaml")})
	})
	require.ErrorContains(t, err, "failed to read dataset")
}
