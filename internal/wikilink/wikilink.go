// Package wikilink provides canonical parsing/scanning of outliner references.
//
// Reference grammar:
//   [[Page Title]]      page link
//   #tag  #[[Long Tag]] tag link (a page link rendered as a tag)
//   ((block-uid))       block reference
//   Name:: value        attribute line (the attribute is a page link to Name)
//
// Notes:
// - Targets are trimmed of surrounding whitespace.
// - Nested page links ([[a [[b]]]]) report both the outer and the inner link.
// - This package intentionally does NOT understand markdown code fences; higher-level
//   parsers decide whether scanning is enabled for a given region.
package wikilink

import (
	"regexp"
	"sort"
	"strings"
)

// Kind distinguishes the reference syntaxes.
type Kind int

const (
	PageLink Kind = iota
	TagLink
	BlockRef
	AttributeRef
)

// Match represents a reference found in a string (typically a single block).
type Match struct {
	Kind    Kind
	Target  string
	Start   int
	End     int
	Literal string
}

var (
	// pageRe matches [[target]]; the target cannot contain [ or ] so the
	// innermost link of a nested pair matches first.
	pageRe     = regexp.MustCompile(`\[\[([^\]\[]+)\]\]`)
	tagRe      = regexp.MustCompile(`(^|[\s(])#(\[\[([^\]\[]+)\]\]|[\w\-/]+)`)
	blockRefRe = regexp.MustCompile(`\(\(([\w\-]+)\)\)`)
	attrRe     = regexp.MustCompile(`^([^:\n]+?)::`)
)

// ParseExact parses a string that is exactly a page link literal, returning its target.
func ParseExact(s string) (target string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") {
		return "", false
	}
	target = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "[["), "]]"))
	if target == "" {
		return "", false
	}
	return target, true
}

// ParseBlockRef parses a string that is exactly a ((uid)) literal.
func ParseBlockRef(s string) (uid string, ok bool) {
	s = strings.TrimSpace(s)
	m := blockRefRe.FindStringSubmatchIndex(s)
	if m == nil || m[0] != 0 || m[1] != len(s) {
		return "", false
	}
	return s[m[2]:m[3]], true
}

// FindAllInLine finds every reference in a block string, ordered by position.
func FindAllInLine(line string) []Match {
	var out []Match

	if m := attrRe.FindStringSubmatchIndex(line); m != nil {
		name := strings.TrimSpace(line[m[2]:m[3]])
		if name != "" && !strings.Contains(name, "[[") {
			out = append(out, Match{Kind: AttributeRef, Target: name, Start: m[0], End: m[1], Literal: line[m[0]:m[1]]})
		}
	}

	tagged := make(map[int]bool)
	for _, m := range tagRe.FindAllStringSubmatchIndex(line, -1) {
		start := m[4] - 1 // include the '#'
		target := line[m[4]:m[5]]
		if m[6] >= 0 {
			target = line[m[6]:m[7]]
			tagged[m[4]] = true
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		out = append(out, Match{Kind: TagLink, Target: target, Start: start, End: m[1], Literal: line[start:m[1]]})
	}

	for _, m := range pageLinks(line) {
		if !tagged[m.Start] {
			out = append(out, m)
		}
	}

	for _, m := range blockRefRe.FindAllStringSubmatchIndex(line, -1) {
		out = append(out, Match{Kind: BlockRef, Target: line[m[2]:m[3]], Start: m[0], End: m[1], Literal: line[m[0]:m[1]]})
	}

	sortMatches(out)
	return out
}

// pageLinks pairs balanced [[ ]] brackets. Unclosed openers are ignored.
func pageLinks(line string) []Match {
	var out []Match
	var open []int
	for i := 0; i+1 < len(line); {
		switch line[i : i+2] {
		case "[[":
			open = append(open, i)
			i += 2
			continue
		case "]]":
			if len(open) > 0 {
				start := open[len(open)-1]
				open = open[:len(open)-1]
				if target := strings.TrimSpace(line[start+2 : i]); target != "" {
					out = append(out, Match{Kind: PageLink, Target: target, Start: start, End: i + 2, Literal: line[start : i+2]})
				}
				i += 2
				continue
			}
		}
		i++
	}
	return out
}

// PageTargets returns the distinct page titles a line links to, including
// tags and attribute names, in order of appearance.
func PageTargets(line string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range FindAllInLine(line) {
		if m.Kind == BlockRef || seen[m.Target] {
			continue
		}
		seen[m.Target] = true
		out = append(out, m.Target)
	}
	return out
}

// BlockTargets returns the distinct block uids a line embeds.
func BlockTargets(line string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range FindAllInLine(line) {
		if m.Kind != BlockRef || seen[m.Target] {
			continue
		}
		seen[m.Target] = true
		out = append(out, m.Target)
	}
	return out
}

// StripTags removes link syntax, leaving the linked text:
// "[[Foo]]" -> "Foo", "#bar" -> "bar", "#[[Baz Qux]]" -> "Baz Qux".
func StripTags(s string) string {
	s = tagRe.ReplaceAllStringFunc(s, func(m string) string {
		i := strings.IndexByte(m, '#')
		return m[:i] + m[i+1:]
	})
	for {
		next := pageRe.ReplaceAllString(s, "$1")
		if next == s {
			return s
		}
		s = next
	}
}

// Link renders title as a page link.
func Link(title string) string {
	return "[[" + title + "]]"
}

// Ref renders uid as a block reference.
func Ref(uid string) string {
	return "((" + uid + "))"
}

func sortMatches(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Start < ms[j].Start })
}
