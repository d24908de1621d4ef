package results

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/aidanlsb/discourse/internal/dates"
)

var numberRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

type cmpKind int

const (
	cmpNil cmpKind = iota
	cmpNumber
	cmpTemporal
	cmpString
)

type cmpVal struct {
	kind cmpKind
	num  float64
	t    time.Time
	s    string
}

// normalizeForCompare coerces a value for sorting: dates as-is, daily titles
// and ISO dates to dates, numeric strings to numbers, everything else to a
// string.
func normalizeForCompare(v interface{}) cmpVal {
	switch vv := v.(type) {
	case nil:
		return cmpVal{kind: cmpNil}
	case time.Time:
		return cmpVal{kind: cmpTemporal, t: vv, s: dates.FormatDailyTitle(vv)}
	case int:
		return cmpVal{kind: cmpNumber, num: float64(vv), s: strconv.Itoa(vv)}
	case int64:
		return cmpVal{kind: cmpNumber, num: float64(vv), s: strconv.FormatInt(vv, 10)}
	case float64:
		return cmpVal{kind: cmpNumber, num: vv, s: strconv.FormatFloat(vv, 'f', -1, 64)}
	case string:
		s := strings.TrimSpace(vv)
		if t, err := dates.ParseDailyTitle(s); err == nil {
			return cmpVal{kind: cmpTemporal, t: t, s: s}
		}
		if dates.IsValidDate(s) {
			if t, err := dates.ParseDate(s); err == nil {
				return cmpVal{kind: cmpTemporal, t: t, s: s}
			}
		}
		if numberRe.MatchString(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return cmpVal{kind: cmpNumber, num: f, s: s}
			}
		}
		return cmpVal{kind: cmpString, s: s}
	}
	return cmpVal{kind: cmpString, s: fmt.Sprint(v)}
}

// comparer compares coerced values; strings use locale-aware collation.
type comparer struct {
	collator *collate.Collator
}

func newComparer() *comparer {
	return &comparer{collator: collate.New(language.English, collate.IgnoreCase, collate.Numeric)}
}

func (c *comparer) compare(a, b interface{}) int {
	av := normalizeForCompare(a)
	bv := normalizeForCompare(b)

	if av.kind == cmpNil && bv.kind == cmpNil {
		return 0
	}
	if av.kind == cmpNil {
		return -1
	}
	if bv.kind == cmpNil {
		return 1
	}

	if av.kind == cmpNumber && bv.kind == cmpNumber {
		switch {
		case av.num < bv.num:
			return -1
		case av.num > bv.num:
			return 1
		default:
			return 0
		}
	}

	if av.kind == cmpTemporal && bv.kind == cmpTemporal {
		switch {
		case av.t.Before(bv.t):
			return -1
		case av.t.After(bv.t):
			return 1
		default:
			return 0
		}
	}

	// Mixed kinds and plain strings compare as collated strings.
	return c.collator.CompareString(av.s, bv.s)
}

// DisplayString is the canonical string form used by filters and search.
func DisplayString(v interface{}) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case time.Time:
		return dates.FormatDailyTitle(vv)
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
