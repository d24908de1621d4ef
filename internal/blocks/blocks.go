// Package blocks rebuilds pages of nested blocks from a flat list of
// (source, relation, target) triples, the reverse of condition compilation.
package blocks

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/dates"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/vocab"
	"github.com/aidanlsb/discourse/internal/wikilink"
)

// InvalidReference is the text rendered for a reference whose target has
// neither a title nor any text.
const InvalidReference = "Invalid Reference Target"

// Relation labels the compiler understands. Matching ignores case.
const (
	RelIsInPage      = "is in page"
	RelWithText      = "with text"
	RelReferences    = "references"
	RelHasChild      = "has child"
	RelHasDescendant = "has descendant"
	RelHasAncestor   = "has ancestor"
	RelHasParent     = "has parent"
	RelHasAttribute  = "has attribute"
	RelIsA           = "is a"
	RelHasTitle      = "has title"
	RelWithUID       = "with uid"
)

// Block is one generated block.
type Block struct {
	UID      string  `json:"uid"`
	Text     string  `json:"text"`
	Children []Block `json:"children,omitempty"`
}

// Page is a generated page. UID is set when the title names an existing page.
type Page struct {
	Title    string  `json:"title"`
	UID      string  `json:"uid,omitempty"`
	Children []Block `json:"children"`
}

// Compiler turns triples into pages.
type Compiler struct {
	vocab  vocab.Vocabulary
	index  query.EntityIndex
	logger *zap.Logger
	now    func() time.Time
	newUID func() string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithEntityIndex resolves reference targets against existing pages and blocks.
func WithEntityIndex(idx query.EntityIndex) Option {
	return func(c *Compiler) { c.index = idx }
}

// WithLogger sets the compiler logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock that picks the default page.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithUIDs replaces the uid generator.
func WithUIDs(gen func() string) Option {
	return func(c *Compiler) { c.newUID = gen }
}

// NewCompiler returns a compiler that renders typed titles with v's formats.
func NewCompiler(v vocab.Vocabulary, opts ...Option) *Compiler {
	c := &Compiler{vocab: v, logger: zap.NewNop(), now: time.Now, newUID: factstore.NewUID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultPage is the page that receives blocks when no triple names one:
// today's daily page.
func (c *Compiler) DefaultPage() string {
	return dates.FormatDailyTitle(c.now())
}

// ToPages groups triples into pages. Sources placed with "is in page" go to
// that page; without any such triple every root of the child hierarchy goes
// to the default page. Blocks created to back references are appended to
// the page that references them.
func (c *Compiler) ToPages(triples []vocab.Triple) []Page {
	r := &run{c: c, g: buildGraph(triples), uids: make(map[string]string)}

	pageTokens, members := r.g.pages()
	if len(pageTokens) == 0 {
		var roots []string
		for _, s := range r.g.order {
			if !r.g.child[s] && !r.g.leaf[s] {
				roots = append(roots, s)
			}
		}
		return []Page{r.page(c.DefaultPage(), roots)}
	}

	out := make([]Page, 0, len(pageTokens))
	for _, p := range pageTokens {
		inPage := make(map[string]bool, len(members[p]))
		for _, m := range members[p] {
			inPage[m] = true
		}
		var roots []string
		for _, m := range members[p] {
			if !r.g.hasParentIn(m, inPage) {
				roots = append(roots, m)
			}
		}
		title, _ := r.title(p)
		out = append(out, r.page(title, roots))
	}
	return out
}

// ToFactPages converts pages for factstore writes.
func ToFactPages(pages []Page) []factstore.Page {
	out := make([]factstore.Page, len(pages))
	for i, p := range pages {
		out[i] = factstore.Page{UID: p.UID, Title: p.Title, Children: toFactBlocks(p.Children)}
	}
	return out
}

func toFactBlocks(blocks []Block) []factstore.Block {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]factstore.Block, len(blocks))
	for i, b := range blocks {
		out[i] = factstore.Block{UID: b.UID, String: b.Text, Children: toFactBlocks(b.Children)}
	}
	return out
}

type graph struct {
	order   []string
	noted   map[string]bool
	facts   map[string]map[string][]string
	kids    map[string][]string
	parents map[string][]string
	child   map[string]bool
	leaf    map[string]bool
}

func buildGraph(triples []vocab.Triple) *graph {
	g := &graph{
		noted:   make(map[string]bool),
		facts:   make(map[string]map[string][]string),
		kids:    make(map[string][]string),
		parents: make(map[string][]string),
		child:   make(map[string]bool),
		leaf:    make(map[string]bool),
	}
	for _, t := range triples {
		s, rel, target := strings.TrimSpace(t.Source), strings.ToLower(strings.TrimSpace(t.Relation)), strings.TrimSpace(t.Target)
		if s == "" || rel == "" {
			continue
		}
		g.note(s)
		byRel, ok := g.facts[s]
		if !ok {
			byRel = make(map[string][]string)
			g.facts[s] = byRel
		}
		byRel[rel] = append(byRel[rel], target)

		switch rel {
		case RelHasChild, RelHasDescendant:
			g.edge(s, target)
		case RelHasAncestor, RelHasParent:
			g.edge(target, s)
		case RelReferences, RelHasAttribute:
			g.leaf[target] = true
		}
	}
	return g
}

func (g *graph) note(s string) {
	if !g.noted[s] {
		g.noted[s] = true
		g.order = append(g.order, s)
	}
}

func (g *graph) edge(parent, child string) {
	if parent == "" || child == "" {
		return
	}
	g.note(parent)
	g.note(child)
	for _, k := range g.kids[parent] {
		if k == child {
			return
		}
	}
	g.kids[parent] = append(g.kids[parent], child)
	g.parents[child] = append(g.parents[child], parent)
	g.child[child] = true
}

func (g *graph) hasParentIn(s string, set map[string]bool) bool {
	for _, p := range g.parents[s] {
		if set[p] {
			return true
		}
	}
	return false
}

// pages returns the page tokens in first-use order and their members.
func (g *graph) pages() ([]string, map[string][]string) {
	var order []string
	members := make(map[string][]string)
	for _, s := range g.order {
		for _, p := range g.facts[s][RelIsInPage] {
			if p == "" || p == s {
				continue
			}
			if _, ok := members[p]; !ok {
				order = append(order, p)
			}
			members[p] = append(members[p], s)
		}
	}
	return order, members
}

func (g *graph) first(s, rel string) string {
	if vals := g.facts[s][rel]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

type titleKind int

const (
	rawTitle titleKind = iota
	typedTitle
	namedTitle
	textTitle
	uidTitle
)

// run holds the state of one ToPages call.
type run struct {
	c      *Compiler
	g      *graph
	uids   map[string]string
	embeds []Block
	placed map[string]bool
}

func (r *run) page(title string, roots []string) Page {
	r.embeds = nil
	r.placed = make(map[string]bool)
	p := Page{Title: title, Children: []Block{}}
	if r.c.index != nil {
		if e, ok := r.c.index.EntityByTitle(title); ok {
			p.UID = e.UID
		}
	}
	for _, s := range roots {
		p.Children = append(p.Children, r.block(s, map[string]bool{}))
	}
	p.Children = append(p.Children, r.embeds...)
	return p
}

func (r *run) block(s string, path map[string]bool) Block {
	b := Block{UID: r.uidOf(s), Text: r.text(s)}
	path[s] = true
	for _, k := range r.g.kids[s] {
		if path[k] {
			r.c.logger.Debug("skipping cyclic child", zap.String("parent", s), zap.String("child", k))
			continue
		}
		b.Children = append(b.Children, r.block(k, path))
	}
	delete(path, s)
	return b
}

// uidOf returns the "with uid" target of s or a generated uid, stable for
// the whole run.
func (r *run) uidOf(s string) string {
	if u := r.g.first(s, RelWithUID); u != "" {
		return u
	}
	if u, ok := r.uids[s]; ok {
		return u
	}
	u := r.c.newUID()
	r.uids[s] = u
	return u
}

func (r *run) text(s string) string {
	parts := append([]string(nil), r.g.facts[s][RelWithText]...)
	for _, ref := range r.g.facts[s][RelReferences] {
		parts = append(parts, r.reference(ref))
	}
	if len(parts) == 0 {
		title, _ := r.title(s)
		return title
	}
	return strings.Join(parts, " ")
}

// title resolves s: an "is a" type renders through the type's format, then
// "has title", "with text", "with uid", then the raw token.
func (r *run) title(s string) (string, titleKind) {
	if typ := r.g.first(s, RelIsA); typ != "" {
		if n, ok := r.c.vocab.FindNode(typ); ok && n.Format != "" {
			content, _ := r.plainTitle(s)
			return vocab.FillFormat(n.Format, content), typedTitle
		}
	}
	return r.plainTitle(s)
}

func (r *run) plainTitle(s string) (string, titleKind) {
	if t := r.g.first(s, RelHasTitle); t != "" {
		return t, namedTitle
	}
	if texts := r.g.facts[s][RelWithText]; len(texts) > 0 {
		return strings.Join(texts, " "), textTitle
	}
	if u := r.g.first(s, RelWithUID); u != "" {
		if r.c.index != nil {
			if e, ok := r.c.index.EntityByUID(u); ok {
				if e.Title != "" {
					return e.Title, namedTitle
				}
				if e.Text != "" {
					return e.Text, uidTitle
				}
			}
		}
		return u, uidTitle
	}
	return s, rawTitle
}

// reference renders a references target: a link when it is a page, a
// block ref when it is an existing block or has text of its own.
func (r *run) reference(target string) string {
	title, kind := r.title(target)

	if r.c.index != nil {
		if e, ok := r.c.index.EntityByTitle(title); ok {
			return wikilink.Link(e.Title)
		}
		uid := target
		if u := r.g.first(target, RelWithUID); u != "" {
			uid = u
		}
		if e, ok := r.c.index.EntityByUID(uid); ok {
			if e.Title != "" {
				return wikilink.Link(e.Title)
			}
			return wikilink.Ref(e.UID)
		}
	}

	switch kind {
	case typedTitle, namedTitle:
		return wikilink.Link(title)
	case textTitle:
		uid := r.uidOf(target)
		if !r.placed[target] {
			r.placed[target] = true
			r.embeds = append(r.embeds, Block{UID: uid, Text: title})
		}
		return wikilink.Ref(uid)
	}
	r.c.logger.Debug("unresolved reference target", zap.String("target", target))
	return InvalidReference
}
