package query

import (
	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/vocab"
)

func (r *Registry) registerNodeTypes() {
	r.register(LabelIsA, Translator{
		Description: "source is an instance of the target node type",
		Placeholder: "Enter a node type",
		TargetOptions: func() []string {
			out := make([]string, 0, len(r.vocab.Nodes))
			for _, n := range r.vocab.Nodes {
				out = append(out, n.Text)
			}
			return out
		},
		Callback: func(source, target, _ string) []datalog.Clause {
			n, ok := r.vocab.FindNode(target)
			if !ok {
				return nil
			}
			return r.ResolveNode(n, source)
		},
	})
}

// ResolveNode returns the clauses constraining variable to instances of n.
// A specification is compiled with the node's display text as its root
// variable, renamed to variable; everything else in it is namespaced so two
// resolutions never share helper variables. Otherwise the title must match
// the node's format.
func (r *Registry) ResolveNode(n vocab.Node, variable string) []datalog.Clause {
	prefix := variable + "-" + slugPart(n.Type) + "-"
	if n.HasSpecification() {
		clauses := r.Compile(n.Specification, n.Text)
		return datalog.Substitute(clauses, []datalog.Rule{
			datalog.Rename(n.Text, variable),
			keepInput,
			datalog.Prefix(prefix),
		})
	}
	if n.Format == "" {
		return nil
	}
	title := variable + "-Title"
	re := prefix + "regex"
	return []datalog.Clause{
		datalog.Pattern(variable, ":node/title", datalog.Var(title)),
		datalog.FnExpr{Fn: "re-pattern", Args: []datalog.Term{datalog.Str(vocab.FormatPattern(n.Format))}, Binding: datalog.Var(re)},
		datalog.PredExpr{Pred: "re-find", Args: []datalog.Term{datalog.Var(re), datalog.Var(title)}},
	}
}
