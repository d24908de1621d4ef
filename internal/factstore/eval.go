package factstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aidanlsb/discourse/internal/datalog"
)

// binding maps variable symbols to values. Bindings are never mutated once
// produced; extending one clones it.
type binding map[string]interface{}

func (b binding) with(k string, v interface{}) binding {
	out := make(binding, len(b)+1)
	for key, val := range b {
		out[key] = val
	}
	out[k] = v
	return out
}

func symbol(v datalog.Variable) string { return datalog.SymbolName(v.Name) }

type evaluation struct {
	ctx    context.Context
	snap   *snapshot
	inputs binding
}

func (s *snapshot) query(ctx context.Context, q *datalog.Query, inputs []interface{}) ([][]interface{}, error) {
	if len(inputs) != len(q.In) {
		return nil, fmt.Errorf("program expects %d inputs, got %d", len(q.In), len(inputs))
	}
	start := binding{}
	for i, v := range q.In {
		start[symbol(v)] = normalize(inputs[i])
	}
	ev := &evaluation{ctx: ctx, snap: s, inputs: start}
	rels, err := ev.solve(q.Where, []binding{start})
	if err != nil {
		return nil, err
	}
	return ev.project(q.Find, rels)
}

// solve runs clauses over rels. At each step it runs the cheapest clause
// whose inputs are bound; predicates and negations wait for the clauses
// that bind their variables.
func (ev *evaluation) solve(clauses []datalog.Clause, rels []binding) ([]binding, error) {
	pending := append([]datalog.Clause(nil), clauses...)
	for len(pending) > 0 && len(rels) > 0 {
		if err := ev.ctx.Err(); err != nil {
			return nil, err
		}
		i := pick(pending, boundIn(rels))
		c := pending[i]
		pending = append(pending[:i:i], pending[i+1:]...)

		var err error
		rels, err = ev.apply(c, rels)
		if err != nil {
			return nil, err
		}
	}
	return rels, nil
}

// boundIn returns the variables bound in every binding.
func boundIn(rels []binding) map[string]bool {
	out := make(map[string]bool, len(rels[0]))
	for k := range rels[0] {
		out[k] = true
	}
	for _, b := range rels[1:] {
		for k := range out {
			if _, ok := b[k]; !ok {
				delete(out, k)
			}
		}
	}
	return out
}

func pick(pending []datalog.Clause, bound map[string]bool) int {
	best, bestScore := -1, 0
	for i, c := range pending {
		score, ok := readiness(c, i, pending, bound)
		if !ok {
			continue
		}
		if best == -1 || score < bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return best
	}
	// Nothing is ready: let the first clause that can bind go ahead.
	for i, c := range pending {
		switch c.(type) {
		case datalog.PredExpr, datalog.FnExpr, datalog.NotClause, datalog.NotJoinClause:
			continue
		}
		return i
	}
	return 0
}

func readiness(c datalog.Clause, i int, pending []datalog.Clause, bound map[string]bool) (int, bool) {
	known := func(t datalog.Term) bool {
		switch t := t.(type) {
		case datalog.Constant:
			return true
		case datalog.Variable:
			return !t.IsBlank() && bound[symbol(t)]
		}
		return false
	}
	allKnown := func(ts []datalog.Term) bool {
		for _, t := range ts {
			if !known(t) {
				return false
			}
		}
		return true
	}

	switch c := c.(type) {
	case datalog.DataPattern:
		switch {
		case known(c.Entity):
			return 1, true
		case known(c.Value):
			return 2, true
		}
		return 3, true
	case datalog.PredExpr:
		return 0, allKnown(c.Args)
	case datalog.FnExpr:
		return 0, allKnown(c.Args)
	case datalog.RuleExpr:
		return 0, true
	}

	// Blocks wait until every variable another pending clause could bind is bound.
	for _, v := range datalog.Variables([]datalog.Clause{c}) {
		k := symbol(v)
		if bound[k] {
			continue
		}
		for j, other := range pending {
			if j != i && binds(other, k) {
				return 0, false
			}
		}
	}
	return 4, true
}

// binds reports whether c can bind the variable symbol k.
func binds(c datalog.Clause, k string) bool {
	switch c := c.(type) {
	case datalog.PredExpr, datalog.NotClause, datalog.NotJoinClause:
		return false
	case datalog.FnExpr:
		v, ok := c.Binding.(datalog.Variable)
		return ok && symbol(v) == k
	}
	for _, v := range datalog.Variables([]datalog.Clause{c}) {
		if symbol(v) == k {
			return true
		}
	}
	return false
}

func (ev *evaluation) apply(c datalog.Clause, rels []binding) ([]binding, error) {
	switch c := c.(type) {
	case datalog.DataPattern:
		var out []binding
		for _, b := range rels {
			out = ev.match(c, b, out)
		}
		return out, nil

	case datalog.PredExpr:
		var out []binding
		for _, b := range rels {
			args, err := resolveArgs(c.Args, b, c.Pred)
			if err != nil {
				return nil, err
			}
			ok, err := callPred(c.Pred, args)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, b)
			}
		}
		return out, nil

	case datalog.FnExpr:
		var out []binding
		for _, b := range rels {
			args, err := resolveArgs(c.Args, b, c.Fn)
			if err != nil {
				return nil, err
			}
			v, err := callFn(c.Fn, args)
			if err != nil {
				return nil, err
			}
			if nb, ok := unify(b, c.Binding, v); ok {
				out = append(out, nb)
			}
		}
		return out, nil

	case datalog.NotClause:
		return ev.filterNot(c.Clauses, rels, nil)

	case datalog.NotJoinClause:
		return ev.filterNot(c.Clauses, rels, c.Vars)

	case datalog.OrClause:
		var out []binding
		for _, b := range rels {
			var matched []binding
			for _, branch := range c.Clauses {
				res, err := ev.solve([]datalog.Clause{branch}, []binding{b})
				if err != nil {
					return nil, err
				}
				matched = append(matched, res...)
			}
			out = append(out, dedupe(matched)...)
		}
		return out, nil

	case datalog.OrJoinClause:
		var out []binding
		for _, b := range rels {
			scope := ev.project1(b, c.Vars)
			var matched []binding
			for _, branch := range c.Clauses {
				res, err := ev.solve([]datalog.Clause{branch}, []binding{scope})
				if err != nil {
					return nil, err
				}
				for _, r := range res {
					if merged, ok := join(b, r, c.Vars); ok {
						matched = append(matched, merged)
					}
				}
			}
			out = append(out, dedupe(matched)...)
		}
		return out, nil

	case datalog.AndClause:
		return ev.solve(c.Clauses, rels)

	case datalog.RuleExpr:
		return nil, fmt.Errorf("rules are not supported: %s", datalog.Render(c))

	default:
		panic(fmt.Errorf("%w: %T", datalog.ErrUnknownClause, c))
	}
}

func (ev *evaluation) filterNot(clauses []datalog.Clause, rels []binding, vars []datalog.Variable) ([]binding, error) {
	var out []binding
	for _, b := range rels {
		scope := b
		if vars != nil {
			scope = ev.project1(b, vars)
		}
		res, err := ev.solve(clauses, []binding{scope})
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// project1 narrows b to vars plus the program inputs.
func (ev *evaluation) project1(b binding, vars []datalog.Variable) binding {
	out := make(binding, len(vars)+len(ev.inputs))
	for k, v := range ev.inputs {
		out[k] = v
	}
	for _, v := range vars {
		k := symbol(v)
		if val, ok := b[k]; ok {
			out[k] = val
		}
	}
	return out
}

// join copies the join variables bound in r into b.
func join(b, r binding, vars []datalog.Variable) (binding, bool) {
	out := b
	for _, v := range vars {
		k := symbol(v)
		val, ok := r[k]
		if !ok {
			continue
		}
		if existing, ok := out[k]; ok {
			if !equal(existing, val) {
				return nil, false
			}
			continue
		}
		out = out.with(k, val)
	}
	return out, true
}

func (ev *evaluation) match(p datalog.DataPattern, b binding, out []binding) []binding {
	eVal, eKnown := resolveTerm(p.Entity, b)
	aVal, aKnown := resolveTerm(p.Attribute, b)
	vVal, vKnown := resolveTerm(p.Value, b)
	attr, _ := aVal.(string)
	if aKnown && attr == "" {
		return out
	}

	emit := func(e eid, a string, v interface{}) {
		nb, ok := unify(b, p.Entity, e)
		if !ok {
			return
		}
		if nb, ok = unify(nb, p.Attribute, a); !ok {
			return
		}
		if nb, ok = unify(nb, p.Value, v); !ok {
			return
		}
		out = append(out, nb)
	}

	snap := ev.snap
	switch {
	case eKnown:
		e, ok := asEID(eVal)
		if !ok {
			return out
		}
		attrs := snap.eav[e]
		if aKnown {
			for _, v := range attrs[attr] {
				emit(e, attr, v)
			}
			return out
		}
		for _, a := range sortedKeys(attrs) {
			for _, v := range attrs[a] {
				emit(e, a, v)
			}
		}
	case aKnown && vKnown:
		for _, e := range snap.avet[attr][indexKey(vVal)] {
			emit(e, attr, vVal)
		}
	case aKnown:
		for _, d := range snap.aev[attr] {
			emit(d.e, d.a, d.v)
		}
	default:
		names := make([]string, 0, len(snap.aev))
		for a := range snap.aev {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, a := range names {
			for _, d := range snap.aev[a] {
				emit(d.e, d.a, d.v)
			}
		}
	}
	return out
}

func sortedKeys(m map[string][]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// indexKey converts a lookup value to the type stored in the value index.
func indexKey(v interface{}) interface{} {
	switch v := v.(type) {
	case int:
		return int64(v)
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
	}
	return v
}

func resolveTerm(t datalog.Term, b binding) (interface{}, bool) {
	switch t := t.(type) {
	case datalog.Constant:
		return normalize(t.Value), true
	case datalog.Variable:
		if t.IsBlank() {
			return nil, false
		}
		v, ok := b[symbol(t)]
		return v, ok
	}
	return nil, false
}

func unify(b binding, t datalog.Term, v interface{}) (binding, bool) {
	switch t := t.(type) {
	case datalog.Constant:
		return b, equal(normalize(t.Value), v)
	case datalog.Variable:
		if t.IsBlank() {
			return b, true
		}
		k := symbol(t)
		if existing, ok := b[k]; ok {
			return b, equal(existing, v)
		}
		return b.with(k, v), true
	}
	return b, false
}

func resolveArgs(args []datalog.Term, b binding, call string) ([]interface{}, error) {
	out := make([]interface{}, len(args))
	for i, a := range args {
		v, ok := resolveTerm(a, b)
		if !ok {
			return nil, fmt.Errorf("insufficient bindings: argument %d of (%s) is unbound", i+1, call)
		}
		out[i] = v
	}
	return out, nil
}

func normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case int:
		return int64(v)
	case datalog.Keyword:
		return string(v)
	}
	return v
}

func asEID(v interface{}) (eid, bool) {
	switch v := v.(type) {
	case eid:
		return v, true
	case int64:
		return eid(v), true
	}
	return 0, false
}

func asNumber(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	case eid:
		return float64(v), true
	}
	return 0, false
}

func equal(a, b interface{}) bool {
	if x, ok := asNumber(a); ok {
		y, ok := asNumber(b)
		return ok && x == y
	}
	return a == b
}

func compareValues(a, b interface{}) (int, error) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := asNumber(a); ok {
		if y, ok := asNumber(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func asRegexp(v interface{}) (*regexp.Regexp, error) {
	switch v := v.(type) {
	case *regexp.Regexp:
		return v, nil
	case string:
		return compileCached(v)
	}
	return nil, fmt.Errorf("%T is not a pattern", v)
}

func arity(name string, args []interface{}, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d arguments, got %d", name, n, len(args))
	}
	return nil
}

func callPred(name string, args []interface{}) (bool, error) {
	switch name {
	case "=":
		if len(args) < 2 {
			return false, arity(name, args, 2)
		}
		for _, a := range args[1:] {
			if !equal(args[0], a) {
				return false, nil
			}
		}
		return true, nil
	case "!=", "not=":
		if err := arity(name, args, 2); err != nil {
			return false, err
		}
		return !equal(args[0], args[1]), nil
	case "<", ">", "<=", ">=":
		if err := arity(name, args, 2); err != nil {
			return false, err
		}
		c, err := compareValues(args[0], args[1])
		if err != nil {
			return false, err
		}
		switch name {
		case "<":
			return c < 0, nil
		case ">":
			return c > 0, nil
		case "<=":
			return c <= 0, nil
		}
		return c >= 0, nil
	case "re-find":
		if err := arity(name, args, 2); err != nil {
			return false, err
		}
		re, err := asRegexp(args[0])
		if err != nil {
			return false, err
		}
		s, ok := args[1].(string)
		return ok && re.MatchString(s), nil
	case "clojure.string/includes?", "clojure.string/starts-with?", "clojure.string/ends-with?":
		if err := arity(name, args, 2); err != nil {
			return false, err
		}
		s, ok1 := args[0].(string)
		sub, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		switch name {
		case "clojure.string/includes?":
			return strings.Contains(s, sub), nil
		case "clojure.string/starts-with?":
			return strings.HasPrefix(s, sub), nil
		}
		return strings.HasSuffix(s, sub), nil
	}
	return false, fmt.Errorf("unknown predicate %q", name)
}

func callFn(name string, args []interface{}) (interface{}, error) {
	switch name {
	case "re-pattern":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return asRegexp(args[0])
	case "str":
		var sb strings.Builder
		for _, a := range args {
			if a != nil {
				sb.WriteString(fmt.Sprint(a))
			}
		}
		return sb.String(), nil
	case "clojure.string/lower-case", "clojure.string/upper-case":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s expects a string, got %T", name, args[0])
		}
		if name == "clojure.string/lower-case" {
			return strings.ToLower(s), nil
		}
		return strings.ToUpper(s), nil
	case "identity":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return args[0], nil
	}
	return nil, fmt.Errorf("unknown function %q", name)
}

func bindingKey(b binding) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%T:%v\x00", k, b[k], b[k])
	}
	return sb.String()
}

func dedupe(rels []binding) []binding {
	if len(rels) < 2 {
		return rels
	}
	seen := make(map[string]bool, len(rels))
	out := rels[:0:0]
	for _, b := range rels {
		k := bindingKey(b)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return out
}

func (ev *evaluation) project(find []datalog.FindElem, rels []binding) ([][]interface{}, error) {
	out := make([][]interface{}, 0, len(rels))
	seen := make(map[string]bool, len(rels))
	for _, b := range rels {
		raw := make([]interface{}, len(find))
		var key strings.Builder
		for i, f := range find {
			var v datalog.Variable
			switch f := f.(type) {
			case datalog.FindVar:
				v = f.Var
			case datalog.Pull:
				v = f.Var
			default:
				return nil, fmt.Errorf("unknown find element %T", f)
			}
			val, ok := b[symbol(v)]
			if !ok {
				return nil, fmt.Errorf("find variable ?%s is not bound by the program", symbol(v))
			}
			raw[i] = val
			fmt.Fprintf(&key, "%T:%v\x00", val, val)
		}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true

		tuple := make([]interface{}, len(find))
		for i, f := range find {
			switch f := f.(type) {
			case datalog.FindVar:
				tuple[i] = exportValue(raw[i])
			case datalog.Pull:
				if e, ok := asEID(raw[i]); ok {
					tuple[i] = ev.snap.pull(e, f.Pattern)
				}
			}
		}
		out = append(out, tuple)
	}
	return out, nil
}

func exportValue(v interface{}) interface{} {
	switch v := v.(type) {
	case eid:
		return int64(v)
	case *regexp.Regexp:
		return v.String()
	}
	return v
}
