package results

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/aidanlsb/discourse/internal/wikilink"
)

// Filter restricts one column. A non-empty Includes keeps only rows whose
// value is listed; otherwise Excludes drops listed values.
type Filter struct {
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes,omitempty" json:"excludes,omitempty"`
}

// Sort is one sort key.
type Sort struct {
	Key        string `yaml:"key" json:"key" validate:"required"`
	Descending bool   `yaml:"descending,omitempty" json:"descending,omitempty"`
}

// Settings configures Process.
type Settings struct {
	Filters  map[string]Filter `yaml:"filters,omitempty" json:"filters,omitempty"`
	Search   string            `yaml:"search,omitempty" json:"search,omitempty"`
	Sorts    []Sort            `yaml:"sorts,omitempty" json:"sorts,omitempty" validate:"dive"`
	Random   int               `yaml:"random,omitempty" json:"random,omitempty" validate:"gte=0"`
	PageSize int               `yaml:"page_size,omitempty" json:"pageSize,omitempty" validate:"gte=0"`
	Page     int               `yaml:"page,omitempty" json:"page,omitempty" validate:"gte=0"`

	// Rand drives sampling; nil uses a time-seeded source.
	Rand *rand.Rand `yaml:"-" json:"-"`
}

// Output is the processed row set and the requested page of it.
type Output struct {
	All  []Row `json:"all"`
	Page []Row `json:"page"`
}

// Process filters, searches, sorts, samples and paginates rows, in that
// order. The input slice is not modified.
func Process(rows []Row, settings Settings) Output {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if matchesFilters(r, settings.Filters) && matchesSearch(r, settings.Search) {
			out = append(out, r)
		}
	}

	if len(settings.Sorts) > 0 {
		cmp := newComparer()
		sort.SliceStable(out, func(i, j int) bool {
			for _, s := range settings.Sorts {
				iv, _ := out[i].Get(s.Key)
				jv, _ := out[j].Get(s.Key)
				c := cmp.compare(iv, jv)
				if c != 0 {
					if s.Descending {
						return c > 0
					}
					return c < 0
				}
			}
			return false
		})
	}

	if settings.Random > 0 {
		rng := settings.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		if len(out) > settings.Random {
			out = out[:settings.Random]
		}
	}

	return Output{All: out, Page: paginate(out, settings.PageSize, settings.Page)}
}

// paginate returns page (1-indexed) of size pageSize. A zero page size
// returns everything. Pages past the end are empty rather than clamped to
// the last page; callers clamp those. Pages below 1 read as page 1, which
// keeps the slice length at min(pageSize, max(0, len(rows)-pageSize*(page-1)))
// for every page.
func paginate(rows []Row, pageSize, page int) []Row {
	if pageSize <= 0 {
		return rows
	}
	if page < 1 {
		page = 1
	}
	start := pageSize * (page - 1)
	if start >= len(rows) {
		return []Row{}
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func matchesFilters(r Row, filters map[string]Filter) bool {
	for key, f := range filters {
		v, _ := r.Get(key)
		value := wikilink.StripTags(DisplayString(v))
		if len(f.Includes) > 0 {
			if !containsString(f.Includes, value) {
				return false
			}
			continue
		}
		if containsString(f.Excludes, value) {
			return false
		}
	}
	return true
}

func matchesSearch(r Row, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, k := range r.Keys() {
		if k == KeyUID || IsMetadata(k) {
			continue
		}
		v, _ := r.Get(k)
		if strings.Contains(strings.ToLower(DisplayString(v)), search) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if wikilink.StripTags(x) == s {
			return true
		}
	}
	return false
}
