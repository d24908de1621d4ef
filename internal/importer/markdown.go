package importer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/aidanlsb/discourse/internal/factstore"
)

// ReadMarkdownFile reads a markdown file into a page titled after the file
// name.
func ReadMarkdownFile(path string) (factstore.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return factstore.Page{}, err
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p := ReadMarkdown(title, content)
	if info, err := os.Stat(path); err == nil {
		p.EditTime = info.ModTime().UTC()
	}
	return p, nil
}

// ReadMarkdown converts markdown into a page. Headings become heading blocks
// that own the content up to the next heading of the same or a higher
// level; list items become blocks nested like the list; other paragraphs,
// quotes and code become one block each.
func ReadMarkdown(title string, content []byte) factstore.Page {
	doc := goldmark.New().Parser().Parse(text.NewReader(content))

	root := &factstore.Block{}
	type open struct {
		level int
		block *factstore.Block
	}
	stack := []open{{level: 0, block: root}}
	current := func() *factstore.Block { return stack[len(stack)-1].block }

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			for len(stack) > 1 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			parent := current()
			parent.Children = append(parent.Children, factstore.Block{
				String:  lineText(node, content),
				Heading: headingLevel(node.Level),
			})
			stack = append(stack, open{level: node.Level, block: &parent.Children[len(parent.Children)-1]})
		case *ast.List:
			parent := current()
			parent.Children = append(parent.Children, listBlocks(node, content)...)
		default:
			if b, ok := leafBlock(n, content); ok {
				parent := current()
				parent.Children = append(parent.Children, b)
			}
		}
	}
	return factstore.Page{Title: title, Children: root.Children}
}

// headingLevel clamps to the three heading sizes an outline block has.
func headingLevel(level int) int {
	if level > 3 {
		return 3
	}
	return level
}

func listBlocks(list *ast.List, content []byte) []factstore.Block {
	var out []factstore.Block
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if _, ok := item.(*ast.ListItem); !ok {
			continue
		}
		var b factstore.Block
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				b.Children = append(b.Children, listBlocks(nested, content)...)
				continue
			}
			leaf, ok := leafBlock(c, content)
			if !ok {
				continue
			}
			if first {
				b.String, b.Heading = leaf.String, leaf.Heading
				first = false
				continue
			}
			b.Children = append(b.Children, leaf)
		}
		out = append(out, b)
	}
	return out
}

func leafBlock(n ast.Node, content []byte) (factstore.Block, bool) {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		s := lineText(node, content)
		return factstore.Block{String: s}, s != ""
	case *ast.Heading:
		return factstore.Block{String: lineText(node, content), Heading: headingLevel(node.Level)}, true
	case *ast.FencedCodeBlock:
		lang := string(node.Language(content))
		return factstore.Block{String: "```" + lang + "\n" + rawLines(node, content) + "```"}, true
	case *ast.CodeBlock:
		return factstore.Block{String: "```\n" + rawLines(node, content) + "```"}, true
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if s := lineText(c, content); s != "" {
				parts = append(parts, s)
			}
		}
		return factstore.Block{String: "> " + strings.Join(parts, " ")}, len(parts) > 0
	}
	return factstore.Block{}, false
}

// lineText joins the source lines of a block node, so wikilinks and inline
// markup survive verbatim.
func lineText(n ast.Node, content []byte) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if s := strings.TrimSpace(string(seg.Value(content))); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func rawLines(n ast.Node, content []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(content))
	}
	return sb.String()
}
