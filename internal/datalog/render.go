package datalog

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders the query as program text. Clauses are newline-joined so the
// generated program can be logged and diffed.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("[:find")
	for _, f := range q.Find {
		sb.WriteString("\n  ")
		sb.WriteString(renderFind(f))
	}
	sb.WriteString("\n :in $")
	for _, v := range q.In {
		sb.WriteString(" ")
		sb.WriteString(renderTerm(v))
	}
	sb.WriteString("\n :where")
	for _, c := range q.Where {
		sb.WriteString("\n  ")
		sb.WriteString(Render(c))
	}
	sb.WriteString("]")
	return sb.String()
}

// RenderAll renders clauses one per line.
func RenderAll(clauses []Clause) string {
	lines := make([]string, len(clauses))
	for i, c := range clauses {
		lines[i] = Render(c)
	}
	return strings.Join(lines, "\n")
}

// Render renders a single clause.
func Render(c Clause) string {
	switch c := c.(type) {
	case DataPattern:
		return fmt.Sprintf("[%s %s %s]", renderTerm(c.Entity), renderTerm(c.Attribute), renderTerm(c.Value))
	case FnExpr:
		return fmt.Sprintf("[(%s) %s]", renderCall(c.Fn, c.Args), renderTerm(c.Binding))
	case PredExpr:
		return fmt.Sprintf("[(%s)]", renderCall(c.Pred, c.Args))
	case RuleExpr:
		return fmt.Sprintf("(%s)", renderCall(c.Name, c.Args))
	case NotClause:
		return renderBlock("not", nil, c.Clauses)
	case OrClause:
		return renderBlock("or", nil, c.Clauses)
	case AndClause:
		return renderBlock("and", nil, c.Clauses)
	case NotJoinClause:
		return renderBlock("not-join", c.Vars, c.Clauses)
	case OrJoinClause:
		return renderBlock("or-join", c.Vars, c.Clauses)
	default:
		panic(fmt.Errorf("%w: %T", ErrUnknownClause, c))
	}
}

func renderBlock(head string, vars []Variable, clauses []Clause) string {
	parts := []string{head}
	if vars != nil {
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = renderTerm(v)
		}
		parts = append(parts, "["+strings.Join(names, " ")+"]")
	}
	for _, c := range clauses {
		parts = append(parts, Render(c))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func renderCall(name string, args []Term) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		parts = append(parts, renderTerm(a))
	}
	return strings.Join(parts, " ")
}

func renderFind(f FindElem) string {
	switch f := f.(type) {
	case FindVar:
		return renderTerm(f.Var)
	case Pull:
		return fmt.Sprintf("(pull %s %s)", renderTerm(f.Var), renderPattern(f.Pattern))
	default:
		panic(fmt.Errorf("unknown find element %T", f))
	}
}

func renderPattern(attrs []PullAttr) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		if len(a.Nested) > 0 {
			parts[i] = fmt.Sprintf("{%s %s}", a.Attr, renderPattern(a.Nested))
		} else {
			parts[i] = string(a.Attr)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func renderTerm(t Term) string {
	switch t := t.(type) {
	case Variable:
		if t.IsBlank() {
			return Blank
		}
		return "?" + SymbolName(t.Name)
	case Constant:
		return renderConstant(t.Value)
	case nil:
		return "nil"
	default:
		panic(fmt.Errorf("unknown term %T", t))
	}
}

func renderConstant(v interface{}) string {
	switch v := v.(type) {
	case Keyword:
		return string(v)
	case string:
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "nil"
	default:
		return strconv.Quote(fmt.Sprint(v))
	}
}

// SymbolName turns a free-form variable name into a valid symbol.
// Whitespace runs collapse to a single '-'.
func SymbolName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "_"
	}
	return strings.Join(fields, "-")
}
