package tree

import (
	"fmt"
	"regexp"
	"sync"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// batchThreshold is the match count above which replace operations
// rebuild the tree from flattened text instead of applying individual
// edits.
const batchThreshold = 100

// SearchMatch is one occurrence of a pattern: its byte range plus the
// zero-based line and character column of its start.
type SearchMatch struct {
	Start  int
	End    int
	Line   uint32
	Column uint32
}

// Text extracts the matched text from a tree.
func (m SearchMatch) Text(t *Tree) string {
	return t.TextSlice(m.Start, m.End)
}

// SearchOptions controls pattern matching.
type SearchOptions struct {
	CaseSensitive bool
	WholeWord     bool
	Regex         bool
	// Limit caps the number of matches returned; zero means unlimited.
	Limit int
}

// DefaultSearchOptions returns case-sensitive plain-text matching.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{CaseSensitive: true}
}

// isWordByte matches the word-character class used for whole-word
// boundaries: ASCII letters, digits, underscore.
func isWordByte(b byte) bool {
	return b == '_' ||
		('0' <= b && b <= '9') ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z')
}

// lineTracker incrementally converts an absolute byte position into a
// line and character column while the search streams forward.
type lineTracker struct {
	line      uint32
	col       uint32
	processed int
}

func (lt *lineTracker) advance(b []byte) {
	for _, c := range b {
		switch {
		case c == '\n':
			lt.line++
			lt.col = 0
		case c&0xC0 != 0x80:
			lt.col++
		}
	}
	lt.processed += len(b)
}

// === Engines ===

type plainSearcher struct {
	pattern   []byte
	wholeWord bool
	ac        ahocorasick.AhoCorasick
}

func newPlainSearcher(pattern string, opts SearchOptions) *plainSearcher {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: !opts.CaseSensitive,
		MatchKind:            ahocorasick.StandardMatch,
		DFA:                  true,
	})
	return &plainSearcher{
		pattern:   []byte(pattern),
		wholeWord: opts.WholeWord,
		ac:        builder.Build([]string{pattern}),
	}
}

// matchesIn returns every occurrence in hay, including overlapping
// ones, as (start, end) pairs in ascending order.
func (p *plainSearcher) matchesIn(hay string) [][2]int {
	var out [][2]int
	iter := p.ac.IterOverlapping(hay)
	for m := iter.Next(); m != nil; m = iter.Next() {
		out = append(out, [2]int{m.Start(), m.End()})
	}
	return out
}

type regexSearcher struct {
	re *regexp.Regexp
}

// newRegexSearcher compiles the pattern with the option flags folded
// in. An invalid pattern falls back to a literal search for its
// escaped form; nil is returned only if even that fails.
func newRegexSearcher(pattern string, opts SearchOptions) *regexSearcher {
	re, err := regexp.Compile(decoratePattern(pattern, opts))
	if err != nil {
		re, err = regexp.Compile(decoratePattern(regexp.QuoteMeta(pattern), opts))
		if err != nil {
			return nil
		}
	}
	return &regexSearcher{re: re}
}

func decoratePattern(pattern string, opts SearchOptions) string {
	if opts.WholeWord {
		pattern = `\b` + pattern + `\b`
	}
	if !opts.CaseSensitive {
		pattern = `(?i)` + pattern
	}
	return pattern
}

// === Engine cache ===

// Compiled automata and regexes are cached by pattern and flags.
// Bounded by wholesale clearing, same as recompiling on a cold start.
var engineCache = struct {
	sync.Mutex
	m map[string]any
}{m: make(map[string]any)}

const engineCacheMax = 64

func cachedEngine(pattern string, opts SearchOptions) any {
	key := fmt.Sprintf("%t|%t|%t|%s", opts.Regex, opts.CaseSensitive, opts.WholeWord, pattern)

	engineCache.Lock()
	defer engineCache.Unlock()
	if e, ok := engineCache.m[key]; ok {
		return e
	}

	var e any
	if opts.Regex {
		if rs := newRegexSearcher(pattern, opts); rs != nil {
			e = rs
		}
	} else {
		e = newPlainSearcher(pattern, opts)
	}
	if e == nil {
		return nil
	}
	if len(engineCache.m) >= engineCacheMax {
		engineCache.m = make(map[string]any)
	}
	engineCache.m[key] = e
	return e
}

// === Plain streaming search ===

// streamPlain runs the plain engine over the tree leaf by leaf without
// flattening. Text spans are scanned through a scratch buffer carrying
// the previous patternLen-1 bytes, so matches straddling span
// boundaries are found exactly once. emit receives matches in document
// order and returns false to stop the stream.
func (t *Tree) streamPlain(ps *plainSearcher, emit func(SearchMatch) bool) {
	patLen := len(ps.pattern)
	if patLen == 0 || t.ByteCount() == 0 {
		return
	}

	var (
		tr        lineTracker
		scratch   []byte
		carry     []byte
		prevByte  byte
		hasPrev   bool
		pending   *SearchMatch
		lastStart = -1
		stopped   bool
	)

	// advanceTo consumes scratch bytes up to absolute offset target.
	advanceTo := func(scratchAbs int, target int) {
		if target > tr.processed {
			tr.advance(scratch[tr.processed-scratchAbs : target-scratchAbs])
		}
	}

	processSpan := func(b []byte, abs int) bool {
		if pending != nil {
			// The previous span ended exactly at a match; its trailing
			// boundary is decided by this span's first byte.
			if !isWordByte(b[0]) {
				if !emit(*pending) {
					return false
				}
			}
			pending = nil
		}

		scratch = append(scratch[:0], carry...)
		scratch = append(scratch, b...)
		scratchAbs := abs - len(carry)

		for _, mr := range ps.matchesIn(string(scratch)) {
			ms, me := mr[0], mr[1]
			absStart := scratchAbs + ms
			absEnd := scratchAbs + me
			if absStart <= lastStart {
				continue
			}
			lastStart = absStart

			advanceTo(scratchAbs, absStart)
			m := SearchMatch{Start: absStart, End: absEnd, Line: tr.line, Column: tr.col}

			if !ps.wholeWord {
				if !emit(m) {
					return false
				}
				continue
			}

			if ms > 0 {
				if isWordByte(scratch[ms-1]) {
					continue
				}
			} else if hasPrev && isWordByte(prevByte) {
				continue
			}

			if me < len(scratch) {
				if isWordByte(scratch[me]) {
					continue
				}
				if !emit(m) {
					return false
				}
			} else {
				pm := m
				pending = &pm
			}
		}

		// Roll the carry forward and settle the tracker just before it.
		keep := patLen - 1
		if keep > len(scratch) {
			keep = len(scratch)
		}
		cut := len(scratch) - keep
		if cut > 0 {
			prevByte = scratch[cut-1]
			hasPrev = true
		}
		advanceTo(scratchAbs, scratchAbs+cut)
		carry = append(carry[:0], scratch[cut:]...)
		return true
	}

	c := t.Cursor()
	for {
		for _, sp := range c.current {
			if !sp.Span.IsText() || sp.Span.ByteLen() == 0 {
				continue
			}
			if !processSpan(sp.Span.text, sp.Offset) {
				stopped = true
				break
			}
		}
		if stopped || !c.advanceLeaf() {
			break
		}
	}

	if pending != nil && !stopped {
		// Document end is a word boundary.
		emit(*pending)
	}
}

// === Regex search ===

// searchRegex runs the compiled regex over the flattened text. Regex
// matches have no bounded width, so the flat string is the haystack.
func (t *Tree) searchRegex(rs *regexSearcher, limit int, emit func(SearchMatch) bool) {
	text := t.Flatten()
	n := -1
	if limit > 0 {
		n = limit
	}

	var tr lineTracker
	b := []byte(text)
	for _, mr := range rs.re.FindAllStringIndex(text, n) {
		if mr[0] > tr.processed {
			tr.advance(b[tr.processed:mr[0]])
		}
		if !emit(SearchMatch{Start: mr[0], End: mr[1], Line: tr.line, Column: tr.col}) {
			return
		}
	}
}

// === Tree search API ===

// Search returns all matches of pattern in document order, up to
// opts.Limit when set.
func (t *Tree) Search(pattern string, opts SearchOptions) []SearchMatch {
	var out []SearchMatch
	t.searchStream(pattern, opts, func(m SearchMatch) bool {
		out = append(out, m)
		return opts.Limit == 0 || len(out) < opts.Limit
	})
	return out
}

func (t *Tree) searchStream(pattern string, opts SearchOptions, emit func(SearchMatch) bool) {
	switch e := cachedEngine(pattern, opts).(type) {
	case *plainSearcher:
		t.streamPlain(e, emit)
	case *regexSearcher:
		t.searchRegex(e, opts.Limit, emit)
	}
}

// SearchNext returns the first match starting strictly after startPos.
func (t *Tree) SearchNext(pattern string, startPos int, opts SearchOptions) (SearchMatch, bool) {
	var (
		found SearchMatch
		ok    bool
	)
	opts.Limit = 0
	t.searchStream(pattern, opts, func(m SearchMatch) bool {
		if m.Start > startPos {
			found, ok = m, true
			return false
		}
		return true
	})
	return found, ok
}

// SearchPrev returns the last match ending at or before endPos.
func (t *Tree) SearchPrev(pattern string, endPos int, opts SearchOptions) (SearchMatch, bool) {
	var (
		found SearchMatch
		ok    bool
	)
	opts.Limit = 0
	t.searchStream(pattern, opts, func(m SearchMatch) bool {
		if m.End <= endPos {
			found, ok = m, true
		}
		return true
	})
	return found, ok
}

// ReplaceAll substitutes replacement for every non-overlapping match
// and returns the successor tree, one version ahead regardless of how
// many matches were rewritten. Overlapping matches are resolved in
// favor of the earlier one. The receiver is returned unchanged when
// nothing matches.
func (t *Tree) ReplaceAll(pattern, replacement string, opts SearchOptions) *Tree {
	matches := t.Search(pattern, opts)
	if len(matches) == 0 {
		return t
	}

	// Keep the first of any overlapping pair.
	kept := matches[:0]
	lastEnd := 0
	for _, m := range matches {
		if m.Start >= lastEnd {
			kept = append(kept, m)
			lastEnd = m.End
		}
	}

	if len(kept) >= batchThreshold {
		return FromString(spliceAll(t.Flatten(), kept, func(SearchMatch) string {
			return replacement
		})).withVersion(t.version + 1)
	}

	// Apply in descending position order so earlier edits don't shift
	// the later ranges.
	edits := make([]Edit, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		edits = append(edits, Replace(kept[i].Start, kept[i].End, replacement))
	}
	return t.ApplyEdits(edits)
}

// ReplaceWith substitutes matches selectively: replacer is called for
// each match in document order and returns the replacement text plus
// whether to rewrite that occurrence. Returns the successor tree, or
// the receiver when nothing was rewritten.
func (t *Tree) ReplaceWith(pattern string, opts SearchOptions, replacer func(SearchMatch) (string, bool)) *Tree {
	matches := t.Search(pattern, opts)
	if len(matches) == 0 {
		return t
	}

	type repl struct {
		m    SearchMatch
		text string
	}
	// Collect accepted matches, keeping the first of any overlapping
	// pair.
	var repls []repl
	lastEnd := 0
	for _, m := range matches {
		if m.Start < lastEnd {
			continue
		}
		if text, ok := replacer(m); ok {
			repls = append(repls, repl{m: m, text: text})
			lastEnd = m.End
		}
	}
	if len(repls) == 0 {
		return t
	}

	if len(repls) >= batchThreshold {
		byStart := make(map[int]string, len(repls))
		kept := make([]SearchMatch, 0, len(repls))
		for _, r := range repls {
			kept = append(kept, r.m)
			byStart[r.m.Start] = r.text
		}
		return FromString(spliceAll(t.Flatten(), kept, func(m SearchMatch) string {
			return byStart[m.Start]
		})).withVersion(t.version + 1)
	}

	edits := make([]Edit, 0, len(repls))
	for i := len(repls) - 1; i >= 0; i-- {
		edits = append(edits, Replace(repls[i].m.Start, repls[i].m.End, repls[i].text))
	}
	return t.ApplyEdits(edits)
}

// spliceAll rebuilds text with each match range replaced. Matches must
// be non-overlapping and ascending.
func spliceAll(text string, matches []SearchMatch, replacement func(SearchMatch) string) string {
	sb := make([]byte, 0, len(text))
	lastEnd := 0
	for _, m := range matches {
		sb = append(sb, text[lastEnd:m.Start]...)
		sb = append(sb, replacement(m)...)
		lastEnd = m.End
	}
	sb = append(sb, text[lastEnd:]...)
	return string(sb)
}
