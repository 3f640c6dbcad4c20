package reference

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

const (
	codeFence = "```"

	// letter/digit boundary, Unicode aware
	boundaryBefore = `(^|[^\p{L}\p{N}])`
	boundaryAfter  = `(?=$|[^\p{L}\p{N}])`
	// markdown bold/emphasis delimiter hugging the name
	emphasis = `(?:\*\*|__)?`
	// nothing on the rest of the line is already tagged
	noMarkerAhead = `(?![^\n]*\[ID:[0-9]+\])`

	fallbackBefore = `(?:^|[^\p{L}\p{N}])`
	fallbackAfter  = `(?:$|[^\p{L}\p{N}])`
)

// DefaultMatchTimeout bounds a single pattern evaluation. Names are untrusted and text
// comes from a model; a pattern that runs out of time counts as "no match".
const DefaultMatchTimeout = 250 * time.Millisecond

type compiledItem struct {
	item     Item
	marker   string
	inject   *regexp2.Regexp
	fallback *regexp2.Regexp
}

// Matcher is the compiled form of a catalog snapshot: one tagging pattern and one
// normalized-name pattern per item, in catalog order. It is immutable and safe for
// concurrent use.
type Matcher struct {
	items []compiledItem
}

// Option configures Compile.
type Option func(*compileOptions)

type compileOptions struct {
	timeout time.Duration
}

// WithMatchTimeout overrides DefaultMatchTimeout.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *compileOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Compile builds a Matcher for items. Items whose name normalizes to nothing are
// skipped entirely; items with a negative id are only found by the fallback scan, since
// the marker form carries digits only.
func Compile(items []Item, opts ...Option) *Matcher {
	o := compileOptions{timeout: DefaultMatchTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Matcher{items: make([]compiledItem, 0, len(items))}
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		normalized := Normalize(name)
		if normalized == "" {
			continue
		}
		entry := compiledItem{item: item, marker: formatMarker(item.ID)}
		if item.ID >= 0 {
			entry.inject = compilePattern(boundaryBefore+"("+emphasis+EscapeForRegex(name)+emphasis+")"+boundaryAfter+noMarkerAhead, o.timeout)
		}
		entry.fallback = compilePattern(fallbackBefore+EscapeForRegex(normalized)+fallbackAfter, o.timeout)
		if entry.inject == nil && entry.fallback == nil {
			continue
		}
		m.items = append(m.items, entry)
	}
	return m
}

func compilePattern(expr string, timeout time.Duration) *regexp2.Regexp {
	re, err := regexp2.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil
	}
	re.MatchTimeout = timeout
	return re
}

// Len reports how many catalog items can be matched.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Inject tags every whole-token occurrence of a catalog name outside fenced code blocks
// with the item's marker. Items are applied one after another in catalog order.
func (m *Matcher) Inject(text string) string {
	if m.Len() == 0 || text == "" {
		return text
	}
	segments := strings.Split(text, codeFence)
	for i := 0; i < len(segments); i += 2 {
		segments[i] = m.injectProse(segments[i])
	}
	return strings.Join(segments, codeFence)
}

func (m *Matcher) injectProse(segment string) string {
	for _, entry := range m.items {
		if entry.inject == nil || segment == "" {
			continue
		}
		marker := entry.marker
		spans := markerSpans(segment)
		replaced, err := entry.inject.ReplaceFunc(segment, func(match regexp2.Match) string {
			name := match.GroupByNumber(2)
			if insideSpan(spans, name.Index, name.Index+name.Length) {
				return match.String()
			}
			return match.GroupByNumber(1).String() + name.String() + " " + marker
		}, -1, -1)
		if err != nil {
			continue
		}
		segment = replaced
	}
	return segment
}

type runeSpan struct{ start, end int }

// markerSpans returns the rune ranges of the [ID:<n>] markers in text. regexp2 reports
// match positions in runes.
func markerSpans(text string) []runeSpan {
	locs := markerRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	spans := make([]runeSpan, 0, len(locs))
	for _, loc := range locs {
		start := utf8.RuneCountInString(text[:loc[0]])
		spans = append(spans, runeSpan{start: start, end: start + utf8.RuneCountInString(text[loc[0]:loc[1]])})
	}
	return spans
}

func insideSpan(spans []runeSpan, start, end int) bool {
	for _, sp := range spans {
		if start < sp.end && end > sp.start {
			return true
		}
	}
	return false
}

// Fallback returns the ids of items whose normalized name appears as a token run in the
// normalized text. Ids come back in catalog order, not mention order.
func (m *Matcher) Fallback(text string) []int64 {
	ids := make([]int64, 0)
	if m.Len() == 0 {
		return ids
	}
	normalized := Normalize(text)
	if normalized == "" {
		return ids
	}
	for _, entry := range m.items {
		if entry.fallback == nil {
			continue
		}
		ok, err := entry.fallback.MatchString(normalized)
		if err != nil || !ok {
			continue
		}
		ids = append(ids, entry.item.ID)
	}
	return ids
}

// Resolve runs the full pipeline on raw model output.
func (m *Matcher) Resolve(raw string) Result {
	cleaned := StripMarkers(raw)
	annotated := m.Inject(cleaned)

	fromMarkers := ExtractIDs(annotated)
	fromFallback := m.Fallback(cleaned)

	merged := make([]int64, 0, len(fromMarkers)+len(fromFallback))
	merged = append(merged, fromMarkers...)
	merged = append(merged, fromFallback...)
	ids := DedupeKeepFirst(merged)

	return Result{
		DisplayText:   StripMarkers(annotated),
		ReferencedIDs: ids,
		FallbackOnly:  ids[len(DedupeKeepFirst(fromMarkers)):],
	}
}
