package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const usersCSV = `name,age,city
Alice,30,NY
Bob,25,LA
Charlie,35,NY
Diana,28,SF
Eve,22,LA
Frank,40,NY
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte(usersCSV), 0o644))
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "@users", path)
	}
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDescribe(t *testing.T) {
	out, err := run(t, "describe", "@users")
	require.NoError(t, err)
	assert.Contains(t, out, "age    | i64")
	assert.Contains(t, out, "(6 rows)")
}

func TestHeadTable(t *testing.T) {
	out, err := run(t, "head", "@users", "-n", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "name  | age | city", lines[0])
	assert.Equal(t, "Bob   | 25  | LA", lines[3])
}

func TestEvalGroupJSON(t *testing.T) {
	out, err := run(t, "eval", "@users", "-o", "json",
		"--filter", "age > 22",
		"--group", "city", "--agg", "total = sum(age)",
		"--sort", "total", "--desc")
	require.NoError(t, err)

	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 3)
	assert.Equal(t, "NY", recs[0]["city"])
	assert.EqualValues(t, 105, recs[0]["total"])
	assert.EqualValues(t, 25, recs[2]["total"])
}

func TestEvalWithYAML(t *testing.T) {
	out, err := run(t, "eval", "@users", "-o", "yaml",
		"--with", "r = rank(age)", "--select", "name,r", "--head", "1")
	require.NoError(t, err)

	var recs []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "Alice", recs[0]["name"])
	assert.EqualValues(t, 4, recs[0]["r"])
}

func TestEvalCountAndMetrics(t *testing.T) {
	out, err := run(t, "eval", "@users", "--distinct", "--count", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "count")
	assert.Contains(t, out, "tea_expr_evaluations_total")
}

func TestEvalErrors(t *testing.T) {
	_, err := run(t, "eval", "@users", "--agg", "total = sum(age)")
	assert.ErrorContains(t, err, "--agg needs --group")

	_, err = run(t, "eval", "@users", "--with", "x = nosuch(age)")
	assert.Error(t, err)

	_, err = run(t, "eval", "@users", "-o", "xml")
	assert.Error(t, err)
}

func TestQueryJSON(t *testing.T) {
	out, err := run(t, "query", "-o", "json",
		`"@users" | filter { age > 22 and city != "SF" } | group city | reduce n = count(), total = sum(age) `+
			`| rename total age_sum | sortd age_sum | tail 1 | remove n`)
	require.NoError(t, err)

	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "LA", recs[0]["city"])
	assert.EqualValues(t, 25, recs[0]["age_sum"])
	assert.NotContains(t, recs[0], "n")
}

func TestQueryTransform(t *testing.T) {
	out, err := run(t, "query", `"@users" | transform next = age * 2 + 1 | select name next | head 1`)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice | 61")
}

func TestQueryErrors(t *testing.T) {
	_, err := run(t, "query", `"@users" | reduce n = count()`)
	assert.ErrorContains(t, err, "reduce must directly follow a group")

	_, err = run(t, "query", `"@users" | head`)
	assert.ErrorContains(t, err, "parse query")
}
