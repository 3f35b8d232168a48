package loader

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goavro "github.com/linkedin/goavro/v2"
	parquet "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razeghi71/tea/dyn"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVInfersColumnTypes(t *testing.T) {
	path := writeFile(t, "users.csv", "name, age, score, active, joined\n"+
		"alice, 30, 1.5, true, 2024-01-02T03:04:05Z\n"+
		"bob, 25, , false, \n")
	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "score", "active", "joined"}, tb.Columns)
	assert.Equal(t, 2, tb.Height())

	want := map[string]dyn.DType{
		"name": dyn.String, "age": dyn.I64, "score": dyn.F64, "active": dyn.Bool, "joined": dyn.DateTime,
	}
	for name, dt := range want {
		v, err := tb.Get(name)
		require.NoError(t, err)
		assert.Equal(t, dt, v.DType(), name)
	}

	score, err := tb.Get("score")
	require.NoError(t, err)
	xs, err := dyn.Float64s(score)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(xs[1]))
}

func TestLoadJSONAndJSONL(t *testing.T) {
	jsonPath := writeFile(t, "rows.json", `[{"a": 1, "b": "x"}, {"a": 2.5, "c": true}]`)
	tb, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tb.Columns)
	a, err := tb.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "f64[2][1, 2.5]", a.String())

	jsonlPath := writeFile(t, "rows.jsonl", "{\"k\": \"a\", \"n\": 1}\n\n{\"k\": \"b\", \"n\": 2}\n")
	tb, err = Load(jsonlPath)
	require.NoError(t, err)
	assert.Equal(t, "[ {k:a, n:1}, {k:b, n:2} ]", tb.String())

	_, err = Load(writeFile(t, "bad.jsonl", "{\"k\": \n"))
	assert.Error(t, err)
}

func TestLoadAvro(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.avro")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W: f,
		Schema: `{"type": "record", "name": "user", "fields": [
			{"name": "name", "type": "string"},
			{"name": "age", "type": "int"},
			{"name": "score", "type": ["null", "double"]}
		]}`,
	})
	require.NoError(t, err)
	require.NoError(t, w.Append([]any{
		map[string]any{"name": "alice", "age": int32(30), "score": goavro.Union("double", 1.5)},
		map[string]any{"name": "bob", "age": int32(25), "score": nil},
	}))
	require.NoError(t, f.Close())

	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "score"}, tb.Columns)
	age, err := tb.Get("age")
	require.NoError(t, err)
	assert.Equal(t, "i64[2][30, 25]", age.String())
	score, err := tb.Get("score")
	require.NoError(t, err)
	assert.Equal(t, dyn.F64, score.DType())
}

type user struct {
	Name string  `parquet:"name"`
	Age  int32   `parquet:"age"`
	Rate float64 `parquet:"rate"`
}

func TestLoadParquetIsDeferred(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewWriter(f)
	for _, u := range []user{{"alice", 30, 0.5}, {"bob", 25, 1.5}, {"carol", 35, 2.5}} {
		require.NoError(t, w.Write(u))
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "rate"}, tb.Columns)
	assert.Equal(t, 3, tb.Height())

	name, err := tb.Get("name")
	require.NoError(t, err)
	age, err := tb.Get("age")
	require.NoError(t, err)
	dn, ok := name.(*dyn.Deferred)
	require.True(t, ok)
	da, ok := age.(*dyn.Deferred)
	require.True(t, ok)
	assert.Equal(t, dyn.I32, age.DType())
	assert.False(t, dn.Prepared())
	assert.False(t, da.Prepared())

	assert.Equal(t, "str[deferred]", name.String())
	require.NoError(t, dn.Prepare())
	assert.True(t, dn.Prepared())
	assert.Equal(t, "str[3][alice, bob, carol]", name.String())

	ages, err := dyn.As[int32](age)
	require.NoError(t, err)
	assert.Equal(t, []int32{30, 25, 35}, ages.Values())

	sub, err := tb.TakeRows([]int{1})
	require.NoError(t, err)
	assert.Equal(t, "[ {name:bob, age:25, rate:1.5} ]", sub.String())
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("data.xlsx")
	assert.ErrorContains(t, err, "unsupported file format")
}
