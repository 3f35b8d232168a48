package expr

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/groupby"
	"github.com/razeghi71/tea/kernels"
)

// Grouping partitions context rows by the values of key expressions.
type Grouping struct {
	keys []*Expr
}

// GroupBy starts a grouped aggregation keyed on keys.
func GroupBy(keys ...*Expr) *Grouping {
	return &Grouping{keys: cloneAll(keys)}
}

func (g *Grouping) partition(ctx *Context) ([]dyn.Value, []groupby.Group, error) {
	if len(g.keys) == 0 {
		return nil, nil, errors.New("group by without keys")
	}
	keys := make([]dyn.Value, len(g.keys))
	for i, k := range g.keys {
		v, err := k.Replay(ctx)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "key %d", i)
		}
		keys[i] = v
	}
	groups, err := groupby.PartitionParallel(keys...)
	if err != nil {
		return nil, nil, err
	}
	return keys, groups, nil
}

// Agg evaluates every aggregation once per group, against a child context
// holding only the group's rows. The result is a Vec of the key columns (one
// row per group, in order of first appearance) followed by one column per
// aggregation. Groups are evaluated in parallel lanes.
func (g *Grouping) Agg(aggs ...*Expr) *Expr {
	aggs = cloneAll(aggs)
	return All().Then("group_agg", func(_ Payload, ctx *Context) (Payload, *Context, error) {
		keys, groups, err := g.partition(ctx)
		if err != nil {
			return nil, nil, err
		}
		results := make([][]dyn.Value, len(groups))
		err = kernels.Lanes(len(groups), func(gi int) error {
			child, err := ctx.TakeRows(groups[gi].Members)
			if err != nil {
				return err
			}
			row := make([]dyn.Value, len(aggs))
			for ai, a := range aggs {
				v, err := a.Replay(child)
				if err != nil {
					return errors.Wrapf(err, "group %d aggregation %d", gi, ai)
				}
				if v.Size() != 1 {
					return errors.Wrapf(dyn.ErrShapeMismatch, "aggregation %d produced %d values per group", ai, v.Size())
				}
				if row[ai], err = v.Reshape(1); err != nil {
					return err
				}
			}
			results[gi] = row
			return nil
		})
		if err != nil {
			return nil, nil, err
		}

		out := make([]dyn.Value, 0, len(keys)+len(aggs))
		firsts := groupby.Firsts(groups)
		for _, k := range keys {
			v, err := k.Take(firsts)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, v)
		}
		for ai := range aggs {
			if len(groups) == 0 {
				out = append(out, dyn.Empty(dyn.F64, 0))
				continue
			}
			col := make([]dyn.Value, len(groups))
			for gi := range groups {
				col[gi] = results[gi][ai]
			}
			v, err := dyn.Concat(col...)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "aggregation %d", ai)
			}
			out = append(out, v)
		}
		return Vec{Values: out}, nil, nil
	})
}

// Groups returns the member rows of every group as an indices column.
func (g *Grouping) Groups() *Expr {
	return All().Then("groups", func(_ Payload, ctx *Context) (Payload, *Context, error) {
		_, groups, err := g.partition(ctx)
		if err != nil {
			return nil, nil, err
		}
		out := make([]dyn.IndexList, len(groups))
		for i, gr := range groups {
			out[i] = slices.Clone(gr.Members)
		}
		return Single{Value: dyn.FromSlice(out)}, nil, nil
	})
}
