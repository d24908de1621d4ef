// Package query compiles condition trees into datalog programs, resolves
// node and relation grammar from the vocabulary, and executes programs
// against a fact store.
package query

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// Translator turns one relation label into datalog clauses.
type Translator struct {
	// Callback builds the clauses constraining source by target. uid is the
	// condition's uid and may be used to scope helper variables.
	Callback func(source, target, uid string) []datalog.Clause
	// TargetOptions lists autocomplete suggestions for the target operand.
	TargetOptions func() []string
	Placeholder   string
	// IsVariable marks translators whose target is a free variable.
	IsVariable bool
	// Priority orders the case-insensitive fallback scan; lower runs first.
	// Ties go to the first registered label.
	Priority int
	// Description is shown by the translators listing.
	Description string
}

type entry struct {
	label      string
	translator Translator
	seq        int
	custom     bool
}

// Registry maps relation labels to translators. A Registry must not be
// mutated while Compile runs; Rebuild returns a fresh one instead.
type Registry struct {
	entries map[string]*entry
	seq     int

	vocab     vocab.Vocabulary
	relations []vocab.Relation

	index  EntityIndex
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for lenient-compile diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEntityIndex sets the index used to classify operands.
func WithEntityIndex(idx EntityIndex) Option {
	return func(r *Registry) { r.index = idx }
}

// WithClock sets the clock used to resolve relative date targets.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry holding the built-in translators and the
// translators synthesized from v. Vocabulary entries that would resolve
// recursively forever are skipped with a warning.
func NewRegistry(v vocab.Vocabulary, opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		logger:  zap.NewNop(),
		now:     time.Now,
		index:   emptyIndex{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.load(v)
	return r
}

func (r *Registry) load(v vocab.Vocabulary) {
	acyclic, dropped := v.Acyclic()
	for _, d := range dropped {
		r.logger.Warn("skipping recursive vocabulary entry", zap.String("entry", d))
	}
	r.vocab = acyclic
	r.relations = acyclic.Relations

	r.registerBuiltins()
	r.registerNodeTypes()
	r.registerRelations()
}

// Rebuild returns a registry for a changed vocabulary. Translators added
// through Register carry over; built-in and vocabulary translators are
// regenerated.
func (r *Registry) Rebuild(v vocab.Vocabulary) *Registry {
	next := &Registry{
		entries: make(map[string]*entry),
		logger:  r.logger,
		now:     r.now,
		index:   r.index,
	}
	next.load(v)
	for _, e := range r.sortedEntries() {
		if e.custom {
			next.Register(e.label, e.translator)
		}
	}
	return next
}

// Register adds or replaces the translator for label.
func (r *Registry) Register(label string, t Translator) {
	r.put(label, t, true)
}

func (r *Registry) register(label string, t Translator) {
	r.put(label, t, false)
}

func (r *Registry) put(label string, t Translator, custom bool) {
	if existing, ok := r.entries[label]; ok {
		existing.translator = t
		existing.custom = custom
		return
	}
	r.seq++
	r.entries[label] = &entry{label: label, translator: t, seq: r.seq, custom: custom}
}

// Unregister removes label. It reports whether a translator was removed.
func (r *Registry) Unregister(label string) bool {
	if _, ok := r.entries[label]; !ok {
		return false
	}
	delete(r.entries, label)
	return true
}

// Lookup finds the translator for label: an exact match first, then the
// first label (by priority, then registration order) matched by label used
// as a case-insensitive regular expression.
func (r *Registry) Lookup(label string) (Translator, string, bool) {
	if e, ok := r.entries[label]; ok {
		return e.translator, e.label, true
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return Translator{}, "", false
	}
	re, err := regexp.Compile("(?i)" + label)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(label))
	}
	for _, e := range r.sortedEntries() {
		if re.MatchString(e.label) {
			return e.translator, e.label, true
		}
	}
	return Translator{}, "", false
}

// Labels returns every registered label in lookup order.
func (r *Registry) Labels() []string {
	entries := r.sortedEntries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.label
	}
	return out
}

// Vocabulary returns the vocabulary the registry was built from, minus
// entries skipped as recursive.
func (r *Registry) Vocabulary() vocab.Vocabulary {
	return r.vocab
}

func (r *Registry) sortedEntries() []*entry {
	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].translator.Priority != out[j].translator.Priority {
			return out[i].translator.Priority < out[j].translator.Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}
