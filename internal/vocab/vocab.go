// Package vocab holds the user-editable vocabulary of a discourse graph: node
// types (matched by a format template or a specification condition list) and
// relations (bidirectional triple templates).
package vocab

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/discourse/internal/condition"
)

// Role names used as triple targets inside relation templates.
const (
	RoleSource      = "source"
	RoleDestination = "destination"
	RoleTarget      = "target"
)

// AnyType is the declared node type that accepts every operand.
const AnyType = "*"

// BackedByDefault marks built-in vocabulary entries.
const BackedByDefault = "default"

// Node is a node type definition.
type Node struct {
	Type          string         `yaml:"type" json:"type"`
	Text          string         `yaml:"text" json:"text"`
	Format        string         `yaml:"format,omitempty" json:"format,omitempty"`
	Specification condition.List `yaml:"specification,omitempty" json:"specification,omitempty"`
	BackedBy      string         `yaml:"backed_by,omitempty" json:"backedBy,omitempty"`
	Shortcut      string         `yaml:"shortcut,omitempty" json:"shortcut,omitempty"`
	Template      []string       `yaml:"template,omitempty" json:"template,omitempty"`
}

// HasSpecification reports whether the specification is authoritative.
func (n Node) HasSpecification() bool {
	return len(n.Specification) > 0
}

// Triple is one template edge (source, relation, target).
type Triple struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// UnmarshalYAML accepts either a 3-element list or a mapping.
func (t *Triple) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var parts []string
		if err := value.Decode(&parts); err != nil {
			return err
		}
		if len(parts) != 3 {
			return fmt.Errorf("line %d: triple must have 3 elements, got %d", value.Line, len(parts))
		}
		t.Source, t.Relation, t.Target = parts[0], parts[1], parts[2]
		return nil
	}
	var m struct {
		Source   string `yaml:"source"`
		Relation string `yaml:"relation"`
		Target   string `yaml:"target"`
	}
	if err := value.Decode(&m); err != nil {
		return err
	}
	t.Source, t.Relation, t.Target = m.Source, m.Relation, m.Target
	return nil
}

// MarshalYAML writes the compact list form.
func (t Triple) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, s := range []string{t.Source, t.Relation, t.Target} {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: s})
	}
	return node, nil
}

// Relation is a bidirectional relation declaration.
type Relation struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Complement  string   `yaml:"complement" json:"complement"`
	Source      string   `yaml:"source" json:"source"`
	Destination string   `yaml:"destination" json:"destination"`
	Triples     []Triple `yaml:"triples" json:"triples"`
}

// Vocabulary is the complete set of node types and relations.
type Vocabulary struct {
	Nodes     []Node     `yaml:"nodes,omitempty" json:"nodes"`
	Relations []Relation `yaml:"relations,omitempty" json:"relations"`
}

// Defaults returns the built-in node types every graph has.
func Defaults() Vocabulary {
	return Vocabulary{
		Nodes: []Node{
			{
				Type:     "page",
				Text:     "Page",
				Format:   "{content}",
				BackedBy: BackedByDefault,
				Specification: condition.List{
					condition.Clause{Source: "Page", Relation: "has title", Target: "/.+/", UID: "page-spec"},
				},
			},
			{
				Type:     "block",
				Text:     "Block",
				BackedBy: BackedByDefault,
				Specification: condition.List{
					condition.Clause{Source: "Block", Relation: "with text", Target: "/.+/", UID: "block-spec"},
				},
			},
		},
	}
}

// Starter returns the vocabulary written to a freshly initialized graph.
func Starter() Vocabulary {
	evidenceUnder := func(header string) []Triple {
		return []Triple{
			{"Page", "is a", RoleSource},
			{"Block", "references", "Page"},
			{"Block", "has parent", "Header"},
			{"Header", "with text", header},
			{"Header", "is in page", "ParentPage"},
			{"ParentPage", "is a", RoleDestination},
		}
	}
	return Vocabulary{
		Nodes: []Node{
			{Type: "question", Text: "Question", Format: "[[QUE]] - {content}", Shortcut: "Q"},
			{
				Type: "claim", Text: "Claim", Format: "[[CLM]] - {content}", Shortcut: "C",
				Template: []string{"Supported By", "Opposed By"},
			},
			{Type: "evidence", Text: "Evidence", Format: "[[EVD]] - {content}", Shortcut: "E"},
			{Type: "source", Text: "Source", Format: "@{content}", Shortcut: "S"},
		},
		Relations: []Relation{
			{
				ID: "informs", Label: "Informs", Complement: "Informed By",
				Source: "evidence", Destination: "question",
				Triples: []Triple{
					{"Page", "is a", RoleSource},
					{"Block", "references", "Page"},
					{"Block", "is in page", "ParentPage"},
					{"ParentPage", "is a", RoleDestination},
				},
			},
			{
				ID: "supports", Label: "Supports", Complement: "Supported By",
				Source: "evidence", Destination: "claim",
				Triples: evidenceUnder("Supported By"),
			},
			{
				ID: "opposes", Label: "Opposes", Complement: "Opposed By",
				Source: "evidence", Destination: "claim",
				Triples: evidenceUnder("Opposed By"),
			},
		},
	}
}

// Merge returns the defaults followed by v's entries. Entries of v replace
// defaults with the same type.
func Merge(defaults, v Vocabulary) Vocabulary {
	out := Vocabulary{Relations: append([]Relation(nil), v.Relations...)}
	override := make(map[string]bool)
	for _, n := range v.Nodes {
		override[strings.ToLower(n.Type)] = true
	}
	for _, n := range defaults.Nodes {
		if !override[strings.ToLower(n.Type)] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	out.Nodes = append(out.Nodes, v.Nodes...)
	out.Relations = append(append([]Relation(nil), defaults.Relations...), out.Relations...)
	return out
}

// FindNode finds a node type by type id or display text, ignoring case.
func (v Vocabulary) FindNode(name string) (Node, bool) {
	name = strings.TrimSpace(name)
	for _, n := range v.Nodes {
		if strings.EqualFold(n.Type, name) || strings.EqualFold(n.Text, name) {
			return n, true
		}
	}
	return Node{}, false
}

// Validate reports structural problems: missing ids, duplicate node types and
// relations whose declared types are unknown.
func (v Vocabulary) Validate() []error {
	var errs []error
	seen := make(map[string]bool)
	for i, n := range v.Nodes {
		if n.Type == "" || n.Text == "" {
			errs = append(errs, fmt.Errorf("node %d: type and text are required", i+1))
			continue
		}
		key := strings.ToLower(n.Type)
		if seen[key] {
			errs = append(errs, fmt.Errorf("node %q: duplicate type", n.Type))
		}
		seen[key] = true
		if n.Format == "" && !n.HasSpecification() {
			errs = append(errs, fmt.Errorf("node %q: needs a format or a specification", n.Type))
		}
	}
	for i, r := range v.Relations {
		if r.Label == "" {
			errs = append(errs, fmt.Errorf("relation %d: label is required", i+1))
			continue
		}
		for _, declared := range []string{r.Source, r.Destination} {
			if declared == AnyType {
				continue
			}
			if _, ok := v.FindNode(declared); !ok {
				errs = append(errs, fmt.Errorf("relation %q: unknown node type %q", r.Label, declared))
			}
		}
		if len(r.Triples) == 0 {
			errs = append(errs, fmt.Errorf("relation %q: no triples", r.Label))
		}
	}
	return errs
}

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z]+\}`)

// FormatPattern converts a format template into an anchored regular
// expression: literal text is escaped and each {name} placeholder matches
// lazily.
func FormatPattern(format string) string {
	var sb strings.Builder
	sb.WriteString("^")
	last := 0
	for _, loc := range placeholderRe.FindAllStringIndex(format, -1) {
		sb.WriteString(regexp.QuoteMeta(format[last:loc[0]]))
		sb.WriteString("(.*?)")
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(format[last:]))
	sb.WriteString("$")
	return sb.String()
}

// FillFormat substitutes content for every placeholder in format.
func FillFormat(format, content string) string {
	if format == "" {
		return content
	}
	return placeholderRe.ReplaceAllLiteralString(format, content)
}

// MatchesFormat reports whether text is an instance of node's format.
func (n Node) MatchesFormat(text string) bool {
	if n.Format == "" {
		return false
	}
	re, err := regexp.Compile(FormatPattern(n.Format))
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
