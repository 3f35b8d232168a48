package expr

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/razeghi71/tea/dyn"
)

var (
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tea",
		Subsystem: "expr",
		Name:      "evaluations_total",
		Help:      "Expression evaluations by mode.",
	}, []string{"mode"})

	stepsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tea",
		Subsystem: "expr",
		Name:      "steps_executed_total",
		Help:      "Computation steps run by expression evaluation.",
	})
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger used for evaluation tracing.
func SetLogger(l logrus.FieldLogger) {
	log = l
}

// Eval runs the queued steps.
//
// Without a context, or with freeze set, or when nothing in the chain reads
// the context, the result becomes the new base and the steps are dropped.
// Otherwise the chain is replayed from its canonical base against ctx and
// the result is cached for ctx, leaving base and steps in place so the
// expression can be evaluated again under another context.
//
// On failure the expression is left exactly as it was.
func (e *Expr) Eval(ctx *Context, freeze bool) error {
	dependent := e.IsContextDependent()
	st := e.state()
	if _, nested := st.base.(Nested); len(st.steps) == 0 && !nested {
		return nil
	}

	mode := "context"
	if ctx == nil || freeze || !dependent {
		mode = "frozen"
	} else if st.cache != nil && st.cacheCtx == ctx {
		return nil
	}
	evaluations.WithLabelValues(mode).Inc()
	log.WithFields(logrus.Fields{"expr": st.name, "steps": len(st.steps), "mode": mode}).Debug("evaluate")

	// A nested base resolves through the nested expression, which reuses its
	// own result when it was already evaluated against ctx.
	out, err := run(st.base, st.steps, ctx)
	if err != nil {
		return err
	}
	if mode == "frozen" {
		e.freeze(out, ctx != nil && dependent)
		return nil
	}
	e.Simplify()
	st = e.state()
	st.cache, st.cacheCtx = out, ctx
	return nil
}

// freeze makes out the new base and drops the steps. A result that depended
// on a context is written to a private copy so other handles keep replaying.
func (e *Expr) freeze(out Payload, private bool) {
	st := e.state()
	if private {
		st = e.unique().st
	}
	if n, ok := st.base.(Nested); ok && n.Expr.st != nil {
		n.Expr.Release()
	}
	st.base, st.steps = out, nil
	st.cache, st.cacheCtx = nil, nil
}

// Payload evaluates e against ctx and returns the resulting payload.
func (e *Expr) Payload(ctx *Context) (Payload, error) {
	if err := e.Eval(ctx, false); err != nil {
		return nil, err
	}
	st := e.state()
	if ctx != nil && st.cache != nil && st.cacheCtx == ctx {
		return st.cache, nil
	}
	return st.base, nil
}

// Value evaluates e against ctx and returns the resulting array.
func (e *Expr) Value(ctx *Context) (dyn.Value, error) {
	p, err := e.Payload(ctx)
	if err != nil {
		return nil, err
	}
	return valueOf(p, ctx)
}

// Values evaluates e against ctx and returns the resulting arrays.
func (e *Expr) Values(ctx *Context) ([]dyn.Value, error) {
	p, err := e.Payload(ctx)
	if err != nil {
		return nil, err
	}
	return valuesOf(p, ctx)
}

// IntoArr evaluates e and returns an owned copy of the result.
func (e *Expr) IntoArr(ctx *Context) (dyn.Value, error) {
	v, err := e.Value(ctx)
	if err != nil {
		return nil, err
	}
	return v.IntoOwned(), nil
}

// ViewArr evaluates e and returns a read-only view of the result.
func (e *Expr) ViewArr(ctx *Context) (dyn.Value, error) {
	v, err := e.Value(ctx)
	if err != nil {
		return nil, err
	}
	return v.View(), nil
}

// Replay evaluates the flattened chain against ctx without touching e. It is
// safe to call from several goroutines at once.
func (e *Expr) Replay(ctx *Context) (dyn.Value, error) {
	p, err := e.replayPayload(ctx)
	if err != nil {
		return nil, err
	}
	return valueOf(p, ctx)
}

// ReplayValues is Replay for expressions producing several arrays.
func (e *Expr) ReplayValues(ctx *Context) ([]dyn.Value, error) {
	p, err := e.replayPayload(ctx)
	if err != nil {
		return nil, err
	}
	return valuesOf(p, ctx)
}

func (e *Expr) replayPayload(ctx *Context) (Payload, error) {
	base, steps := e.Flatten()
	return run(base, steps, ctx)
}

// run feeds the resolved base through steps in order and stops at the first failure.
func run(base Payload, steps []Step, ctx *Context) (Payload, error) {
	p, err := resolveBase(base, ctx)
	if err != nil {
		return nil, err
	}
	for i, s := range steps {
		next, nctx, err := s.Fn(p, ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d (%s)", i, s.Name)
		}
		stepsExecuted.Inc()
		p = next
		if nctx != nil {
			ctx = nctx
		}
	}
	return p, nil
}

// resolveBase turns selectors and nested expressions into concrete payloads.
func resolveBase(p Payload, ctx *Context) (Payload, error) {
	for {
		switch b := p.(type) {
		case Nested:
			next, err := b.Expr.Payload(ctx)
			if err != nil {
				return nil, err
			}
			p = next
		case Select:
			r, err := ctx.Get(b.Selector)
			if err != nil {
				return nil, err
			}
			if r.IsList() {
				return Vec{Values: r.List()}, nil
			}
			v, _ := r.Single()
			return Single{Value: v}, nil
		default:
			return p, nil
		}
	}
}
