// Package groupby partitions rows by the values of one or more key columns.
package groupby

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/kernels"
)

// Group is one partition: the row where its key first appears and all member rows in order.
type Group struct {
	First   int
	Members []int
}

// Partition groups rows by the encoded string form of the key columns. Groups
// are returned in order of first appearance.
func Partition(keys ...dyn.Value) ([]Group, error) {
	enc, n, err := encodeKeys(keys)
	if err != nil {
		return nil, err
	}
	return partitionRange(enc, 0, n), nil
}

// PartitionParallel splits the rows into contiguous chunks, partitions the
// chunks concurrently and merges them. The result equals Partition.
func PartitionParallel(keys ...dyn.Value) ([]Group, error) {
	enc, n, err := encodeKeys(keys)
	if err != nil {
		return nil, err
	}
	chunks := kernels.Workers()
	if chunks < 2 || n < 2*chunks {
		return partitionRange(enc, 0, n), nil
	}
	size := (n + chunks - 1) / chunks
	parts := make([][]Group, chunks)
	var g errgroup.Group
	g.SetLimit(chunks)
	for c := 0; c < chunks; c++ {
		lo, hi := c*size, min((c+1)*size, n)
		g.Go(func() error {
			parts[c] = partitionRange(enc, lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []Group
	index := make(map[string]int)
	for _, part := range parts {
		for _, grp := range part {
			k := enc[grp.First]
			if gi, ok := index[k]; ok {
				out[gi].Members = append(out[gi].Members, grp.Members...)
				continue
			}
			index[k] = len(out)
			out = append(out, grp)
		}
	}
	return out, nil
}

func partitionRange(enc []string, lo, hi int) []Group {
	var out []Group
	index := make(map[string]int)
	for i := lo; i < hi; i++ {
		k := enc[i]
		gi, ok := index[k]
		if !ok {
			gi = len(out)
			index[k] = gi
			out = append(out, Group{First: i})
		}
		out[gi].Members = append(out[gi].Members, i)
	}
	return out
}

func encodeKeys(keys []dyn.Value) ([]string, int, error) {
	if len(keys) == 0 {
		return nil, 0, errors.New("group by needs at least one key")
	}
	n := keys[0].Len()
	cols := make([][]string, len(keys))
	for i, k := range keys {
		if k.Ndim() != 1 {
			return nil, 0, errors.Wrapf(dyn.ErrShapeMismatch, "key %d is %d-d", i, k.Ndim())
		}
		if k.Len() != n {
			return nil, 0, errors.Wrapf(dyn.ErrShapeMismatch, "key %d has %d rows, key 0 has %d", i, k.Len(), n)
		}
		s, err := dyn.CastAs[string](k)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "key %d", i)
		}
		cols[i] = s.Values()
	}
	// Each component is length-prefixed so no key content can fake a boundary.
	enc := make([]string, n)
	var b strings.Builder
	for r := 0; r < n; r++ {
		b.Reset()
		for c := range cols {
			b.WriteString(strconv.Itoa(len(cols[c][r])))
			b.WriteByte(':')
			b.WriteString(cols[c][r])
		}
		enc[r] = b.String()
	}
	return enc, n, nil
}

// Firsts returns the first row of every group, for building the key columns of a result.
func Firsts(groups []Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.First
	}
	return out
}
