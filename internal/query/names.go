package query

import (
	"regexp"
	"strings"

	"github.com/gosimple/slug"

	"github.com/aidanlsb/discourse/internal/datalog"
)

// Built-in relation labels referenced outside their own translator.
const (
	LabelSelf          = "self"
	LabelIsA           = "is a"
	LabelHasTitle      = "has title"
	LabelWithText      = "with text"
	LabelWithUID       = "with uid"
	LabelReferences    = "references"
	LabelIsInPage      = "is in page"
	LabelHasChild      = "has child"
	LabelHasDescendant = "has descendant"
	LabelHasAncestor   = "has ancestor"
	LabelAnyRelation   = "has any relation to"
)

// DateToken is the title target that matches any daily page.
const DateToken = "{date}"

// DateRegexVar is the program input bound to the daily title pattern.
const DateRegexVar = "date-regex"

// keepInput shields the program input from namespacing prefixes.
var keepInput = datalog.Rename(DateRegexVar, DateRegexVar)

var regexTarget = regexp.MustCompile(`^/(.+)/$`)

// regexLiteral returns the pattern of a /pattern/ target.
func regexLiteral(target string) (string, bool) {
	m := regexTarget.FindStringSubmatch(strings.TrimSpace(target))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// slugPart turns a label or type id into a variable-safe fragment.
func slugPart(s string) string {
	if out := slug.Make(s); out != "" {
		return out
	}
	return "x"
}

// scoped names a helper variable of source, unique per condition uid.
func scoped(source, uid, suffix string) string {
	if uid == "" {
		return source + "-" + suffix
	}
	return source + "-" + uid + "-" + suffix
}
