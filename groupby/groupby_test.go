package groupby

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/kernels"
)

func TestPartition(t *testing.T) {
	city := dyn.FromSlice([]string{"NY", "LA", "NY", "SF", "LA", "NY"})
	groups, err := Partition(city)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{First: 0, Members: []int{0, 2, 5}},
		{First: 1, Members: []int{1, 4}},
		{First: 3, Members: []int{3}},
	}, groups)
	assert.Equal(t, []int{0, 1, 3}, Firsts(groups))
}

func TestPartitionMultiKey(t *testing.T) {
	a := dyn.FromSlice([]int64{1, 1, 2, 1})
	b := dyn.FromSlice([]bool{true, false, true, true})
	groups, err := Partition(a, b)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{0, 3}, groups[0].Members)
}

func TestPartitionKeysWithSeparatorBytes(t *testing.T) {
	a := dyn.FromSlice([]string{"a\x00b", "a", "a\x00b"})
	b := dyn.FromSlice([]string{"a", "b\x00a", "a"})
	groups, err := Partition(a, b)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{First: 0, Members: []int{0, 2}},
		{First: 1, Members: []int{1}},
	}, groups)
}

func TestPartitionErrors(t *testing.T) {
	_, err := Partition()
	require.Error(t, err)
	_, err = Partition(dyn.FromSlice([]int64{1, 2}), dyn.FromSlice([]int64{1}))
	assert.True(t, errors.Is(err, dyn.ErrShapeMismatch))
}

func TestPartitionParallelMatches(t *testing.T) {
	kernels.Configure(4, 0)
	keys := make([]int64, 1000)
	for i := range keys {
		keys[i] = int64((i * 7) % 13)
	}
	k := dyn.FromSlice(keys)
	want, err := Partition(k)
	require.NoError(t, err)
	got, err := PartitionParallel(k)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
