package query

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// candidate is one relation declaration walked in one direction.
// sourceType and targetType are the declared types the query's source and
// target operands must be compatible with.
type candidate struct {
	relation   vocab.Relation
	reversed   bool
	sourceType string
	targetType string
}

// sourceRole is the triple target naming the query source's role.
func (c candidate) sourceRole() string {
	if c.reversed {
		return vocab.RoleDestination
	}
	return vocab.RoleSource
}

func (c candidate) targetRole() string {
	if c.reversed {
		return vocab.RoleSource
	}
	return vocab.RoleDestination
}

func (r *Registry) registerRelations() {
	seen := make(map[string]bool)
	add := func(label string) {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		r.register(label, Translator{
			Description:   "relation",
			Priority:      10,
			IsVariable:    true,
			TargetOptions: r.nodeTexts,
			Callback: func(source, target, uid string) []datalog.Clause {
				return r.ResolveRelation(label, source, target, uid)
			},
		})
	}
	for _, rel := range r.relations {
		add(rel.Label)
		add(rel.Complement)
	}
	if len(r.relations) > 0 {
		r.register(LabelAnyRelation, Translator{
			Description:   "source and target are linked by any declared relation",
			Priority:      10,
			IsVariable:    true,
			TargetOptions: r.nodeTexts,
			Callback: func(source, target, uid string) []datalog.Clause {
				return r.ResolveRelation(LabelAnyRelation, source, target, uid)
			},
		})
	}
}

func (r *Registry) nodeTexts() []string {
	out := make([]string, 0, len(r.vocab.Nodes))
	for _, n := range r.vocab.Nodes {
		out = append(out, n.Text)
	}
	return out
}

func (r *Registry) candidates(label string) []candidate {
	label = strings.TrimSpace(label)
	wildcard := strings.EqualFold(label, LabelAnyRelation)
	var out []candidate
	for _, rel := range r.relations {
		if wildcard || strings.EqualFold(rel.Label, label) {
			out = append(out, candidate{relation: rel, sourceType: rel.Source, targetType: rel.Destination})
		}
		if rel.Complement != "" && (wildcard || strings.EqualFold(rel.Complement, label)) {
			out = append(out, candidate{relation: rel, reversed: true, sourceType: rel.Destination, targetType: rel.Source})
		}
	}
	return out
}

// ResolveRelation compiles a relation label between source and target. Every
// declaration whose label (forward) or complement (reversed) matches and whose
// declared types accept the operands contributes one instantiation of its
// triples; several instantiations are or-joined over the variables they share.
func (r *Registry) ResolveRelation(label, source, target, uid string) []datalog.Clause {
	srcOp := r.Classify(source)
	dstOp := r.Classify(target)

	var branches [][]datalog.Clause
	for i, c := range r.candidates(label) {
		if !srcOp.compatible(c.sourceType, r.vocab) || !dstOp.compatible(c.targetType, r.vocab) {
			continue
		}
		clauses := r.instantiate(c, srcOp, dstOp, uid, i)
		if len(clauses) > 0 {
			branches = append(branches, clauses)
		}
	}

	switch len(branches) {
	case 0:
		r.logger.Debug("no relation matched",
			zap.String("label", label), zap.String("source", source), zap.String("target", target))
		return nil
	case 1:
		return branches[0]
	}

	varSets := make([][]datalog.Variable, len(branches))
	ands := make([]datalog.Clause, len(branches))
	for i, b := range branches {
		varSets[i] = datalog.Variables(b)
		ands[i] = datalog.AndClause{Clauses: b}
	}
	return []datalog.Clause{datalog.OrJoinClause{Vars: datalog.Intersect(varSets...), Clauses: ands}}
}

func (r *Registry) instantiate(c candidate, srcOp, dstOp Operand, uid string, index int) []datalog.Clause {
	var out []datalog.Clause
	var srcRoleVar, dstRoleVar string
	for j, t := range c.relation.Triples {
		switch roleOf(t.Target) {
		case c.sourceRole():
			srcRoleVar = t.Source
			out = append(out, r.bindOperand(t.Source, srcOp, c.sourceType)...)
		case c.targetRole():
			dstRoleVar = t.Source
			out = append(out, r.bindOperand(t.Source, dstOp, c.targetType)...)
		default:
			out = append(out, r.translate(t.Relation, t.Source, t.Target, uid+"-"+strconv.Itoa(j))...)
		}
	}

	var rules []datalog.Rule
	if srcOp.Kind == Unresolved && srcRoleVar != "" {
		rules = append(rules, datalog.Rename(srcRoleVar, srcOp.Token))
	}
	if dstOp.Kind == Unresolved && dstRoleVar != "" {
		rules = append(rules, datalog.Rename(dstRoleVar, dstOp.Token))
	}
	prefix := slugPart(c.relation.ID)
	if c.relation.ID == "" {
		prefix = slugPart(c.relation.Label)
	}
	if uid != "" {
		prefix += "-" + uid
	}
	if c.reversed {
		prefix += "-rev"
	}
	rules = append(rules, keepInput, datalog.Prefix(prefix+"-"+strconv.Itoa(index)+"-"))
	return datalog.Substitute(out, rules)
}

// bindOperand constrains the role variable by what the operand refers to.
func (r *Registry) bindOperand(roleVar string, op Operand, declared string) []datalog.Clause {
	switch op.Kind {
	case Identifier:
		return []datalog.Clause{datalog.Pattern(roleVar, ":block/uid", datalog.Str(op.Token))}
	case PageTitle:
		return []datalog.Clause{datalog.Pattern(roleVar, ":node/title", datalog.Str(op.Token))}
	case TypeName:
		if n, ok := r.vocab.FindNode(op.Token); ok {
			return r.ResolveNode(n, roleVar)
		}
		return nil
	default:
		if declared == vocab.AnyType {
			return nil
		}
		if n, ok := r.vocab.FindNode(declared); ok {
			return r.ResolveNode(n, roleVar)
		}
		return nil
	}
}

func roleOf(target string) string {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case vocab.RoleSource:
		return vocab.RoleSource
	case vocab.RoleDestination, vocab.RoleTarget:
		return vocab.RoleDestination
	}
	return ""
}
