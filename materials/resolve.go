package materials

import (
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
)

// Resolve parses every declaration and flattens parent inheritance. States
// are returned in declaration order; a state whose own document, ancestry or
// resolved form is invalid is left out and reported in errs. Failures never
// affect unrelated states.
func Resolve(decls []Declaration) (resolved []*PipelineState, errs []error) {
	parsed := make(map[string]*PipelineState, len(decls))
	var order []string
	for _, d := range decls {
		if _, dup := parsed[d.Name]; dup {
			errs = append(errs, &ParseError{State: d.Name, Key: "name", Err: errors.New("declared more than once")})
			continue
		}
		st, err := Parse(d.Document, d.Name, d.Parent)
		if err != nil {
			errs = append(errs, err)
			parsed[d.Name] = nil
			continue
		}
		parsed[d.Name] = st
		order = append(order, d.Name)
	}

	r := &resolver{
		parsed: parsed,
		done:   make(map[string]*PipelineState, len(parsed)),
		failed: make(map[string]error),
	}
	for _, name := range order {
		r.resolve(name)
	}

	for _, name := range order {
		if err, bad := r.failed[name]; bad {
			errs = append(errs, err)
			continue
		}
		resolved = append(resolved, r.done[name])
	}
	return resolved, errs
}

type resolver struct {
	parsed map[string]*PipelineState
	done   map[string]*PipelineState
	failed map[string]error
}

// resolve walks the parent chain of name until it reaches a root, an
// already settled state or a repeat, then settles the chain parents first.
func (r *resolver) resolve(name string) {
	if r.settled(name) {
		return
	}

	var chain []string
	seen := make(map[string]int)
	cur := name
	var stopErr error
	for {
		if pos, loop := seen[cur]; loop {
			cycle := chain[pos:]
			for _, n := range cycle {
				r.failed[n] = &ParseError{
					State: n, Key: "parent",
					Err: fmt.Errorf("%w through %v", ErrInheritanceCycle, cycle),
				}
			}
			chain = chain[:pos]
			stopErr = fmt.Errorf("ancestor %q is part of an %w", cycle[0], ErrInheritanceCycle)
			break
		}
		seen[cur] = len(chain)
		chain = append(chain, cur)

		st := r.parsed[cur]
		if st.Parent == "" {
			break
		}
		next, known := r.parsed[st.Parent]
		switch {
		case !known:
			stopErr = fmt.Errorf("unknown parent %q", st.Parent)
		case next == nil || r.failed[st.Parent] != nil:
			stopErr = fmt.Errorf("parent %q is invalid", st.Parent)
		case r.done[st.Parent] != nil:
		default:
			cur = st.Parent
			continue
		}
		break
	}

	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		if stopErr != nil {
			r.failed[n] = &ParseError{State: n, Key: "parent", Err: stopErr}
			stopErr = fmt.Errorf("parent %q is invalid", n)
			continue
		}
		st := r.parsed[n]
		merged, err := inherit(r.done[st.Parent], st)
		if err == nil {
			err = merged.Validate()
		}
		if err != nil {
			r.failed[n] = err
			stopErr = fmt.Errorf("parent %q is invalid", n)
			continue
		}
		r.done[n] = merged
	}
}

func (r *resolver) settled(name string) bool {
	if _, ok := r.done[name]; ok {
		return true
	}
	_, ok := r.failed[name]
	return ok
}

// inherit layers child over its resolved parent; fields the child sets win.
func inherit(parent, child *PipelineState) (*PipelineState, error) {
	out := &PipelineState{}
	opt := copier.Option{IgnoreEmpty: true}
	if parent != nil {
		if err := copier.CopyWithOption(out, parent, opt); err != nil {
			return nil, &ParseError{State: child.Name, Key: "parent", Err: err}
		}
	}
	if err := copier.CopyWithOption(out, child, opt); err != nil {
		return nil, &ParseError{State: child.Name, Err: err}
	}
	out.Name = child.Name
	out.Parent = child.Parent
	return out, nil
}
