package tree

import (
	"strings"
	"testing"
)

func TestSearchPlain(t *testing.T) {
	tr := FromString("foo bar\nbaz foo")
	got := tr.Search("foo", DefaultSearchOptions())

	want := []SearchMatch{
		{Start: 0, End: 3, Line: 0, Column: 0},
		{Start: 12, End: 15, Line: 1, Column: 4},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if text := got[0].Text(tr); text != "foo" {
		t.Errorf("Text = %q", text)
	}
}

func TestSearchNoMatch(t *testing.T) {
	tr := FromString("hello world")
	if got := tr.Search("xyz", DefaultSearchOptions()); len(got) != 0 {
		t.Errorf("got %d matches, want 0", len(got))
	}
	if got := tr.Search("", DefaultSearchOptions()); len(got) != 0 {
		t.Errorf("empty pattern: got %d matches, want 0", len(got))
	}
	if got := New().Search("x", DefaultSearchOptions()); len(got) != 0 {
		t.Errorf("empty tree: got %d matches, want 0", len(got))
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	tr := FromString("Hello HELLO hello")

	sensitive := tr.Search("hello", DefaultSearchOptions())
	if len(sensitive) != 1 || sensitive[0].Start != 12 {
		t.Errorf("case-sensitive: %+v", sensitive)
	}

	opts := DefaultSearchOptions()
	opts.CaseSensitive = false
	insensitive := tr.Search("hello", opts)
	if len(insensitive) != 3 {
		t.Fatalf("case-insensitive: got %d matches, want 3", len(insensitive))
	}
	for i, want := range []int{0, 6, 12} {
		if insensitive[i].Start != want {
			t.Errorf("match %d starts at %d, want %d", i, insensitive[i].Start, want)
		}
	}
}

func TestSearchMixedCaseVariants(t *testing.T) {
	tr := FromString("Test TEST test TeSt")
	opts := DefaultSearchOptions()
	opts.CaseSensitive = false
	if got := tr.Search("test", opts); len(got) != 4 {
		t.Errorf("got %d matches, want 4: %+v", len(got), got)
	}
}

func TestSearchWholeWord(t *testing.T) {
	tr := FromString("cat catalog concat cat.")
	opts := DefaultSearchOptions()
	opts.WholeWord = true

	got := tr.Search("cat", opts)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	if got[0].Start != 0 || got[1].Start != 19 {
		t.Errorf("starts = %d, %d; want 0, 19", got[0].Start, got[1].Start)
	}
}

func TestSearchWholeWordAtDocEnd(t *testing.T) {
	opts := DefaultSearchOptions()
	opts.WholeWord = true

	// The document ends exactly at the match; the end counts as a
	// boundary.
	tr := FromString("the cat")
	if got := tr.Search("cat", opts); len(got) != 1 || got[0].Start != 4 {
		t.Errorf("doc-end match: %+v", got)
	}

	// Deleting mid-span splits the text into two spans, leaving the
	// match at the end of the first. Its trailing boundary is decided
	// by the next span's first byte.
	joined := FromString("the cat!s").ApplyEdits([]Edit{Delete(7, 8)})
	if got := joined.Search("cat", opts); len(got) != 0 {
		t.Errorf("word byte in following span: %+v", got)
	}

	dotted := FromString("the cat!.").ApplyEdits([]Edit{Delete(7, 8)})
	if got := dotted.Search("cat", opts); len(got) != 1 {
		t.Errorf("non-word byte in following span: %+v", got)
	}
}

func TestSearchOverlapping(t *testing.T) {
	tr := FromString("aaa")
	got := tr.Search("aa", DefaultSearchOptions())
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	if got[0].Start != 0 || got[1].Start != 1 {
		t.Errorf("starts = %d, %d; want 0, 1", got[0].Start, got[1].Start)
	}
}

func TestSearchAcrossSpans(t *testing.T) {
	// "hello, world" stored as three spans.
	tr := multiSpanTree(t)
	got := tr.Search("lo, w", DefaultSearchOptions())
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].Start != 3 || got[0].End != 8 {
		t.Errorf("match = %+v, want [3, 8)", got[0])
	}
}

func TestSearchAcrossLeaves(t *testing.T) {
	// The needle straddles the first leaf boundary at MaxSpans chunks.
	boundary := MaxSpans * chunkSize
	text := strings.Repeat("x", boundary-3) + "NEEDLE" + strings.Repeat("y", 100)
	tr := FromString(text)
	if tr.root.IsLeaf() {
		t.Fatal("setup: expected a multi-leaf tree")
	}

	got := tr.Search("NEEDLE", DefaultSearchOptions())
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].Start != boundary-3 {
		t.Errorf("Start = %d, want %d", got[0].Start, boundary-3)
	}
}

func TestSearchColumnsAreCharacters(t *testing.T) {
	tr := FromString("αβ x\n日本 x")
	got := tr.Search("x", DefaultSearchOptions())
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].Line != 0 || got[0].Column != 3 {
		t.Errorf("first match at (%d, %d), want (0, 3)", got[0].Line, got[0].Column)
	}
	if got[1].Line != 1 || got[1].Column != 3 {
		t.Errorf("second match at (%d, %d), want (1, 3)", got[1].Line, got[1].Column)
	}
}

func TestSearchLimit(t *testing.T) {
	tr := FromString(strings.Repeat("ab ", 50))
	opts := DefaultSearchOptions()
	opts.Limit = 7
	if got := tr.Search("ab", opts); len(got) != 7 {
		t.Errorf("got %d matches, want 7", len(got))
	}
}

func TestSearchRegex(t *testing.T) {
	tr := FromString("bat bet bit bot but\n")
	opts := DefaultSearchOptions()
	opts.Regex = true

	got := tr.Search(`b[aeiou]t`, opts)
	if len(got) != 5 {
		t.Fatalf("got %d matches, want 5", len(got))
	}
	for i, m := range got {
		if m.Start != i*4 || m.End != i*4+3 {
			t.Errorf("match %d = [%d, %d)", i, m.Start, m.End)
		}
		if m.Line != 0 || m.Column != uint32(i*4) {
			t.Errorf("match %d at (%d, %d)", i, m.Line, m.Column)
		}
	}
}

func TestSearchRegexOptions(t *testing.T) {
	tr := FromString("Go going GO")
	opts := DefaultSearchOptions()
	opts.Regex = true
	opts.WholeWord = true
	opts.CaseSensitive = false

	got := tr.Search("go", opts)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	if got[0].Start != 0 || got[1].Start != 9 {
		t.Errorf("starts = %d, %d; want 0, 9", got[0].Start, got[1].Start)
	}
}

func TestSearchRegexInvalidFallsBackToLiteral(t *testing.T) {
	tr := FromString("call f(x( then stop")
	opts := DefaultSearchOptions()
	opts.Regex = true

	got := tr.Search("f(x(", opts)
	if len(got) != 1 || got[0].Start != 5 {
		t.Errorf("literal fallback: %+v", got)
	}
}

func TestSearchNext(t *testing.T) {
	tr := FromString("foo bar\nbaz foo")
	opts := DefaultSearchOptions()

	m, ok := tr.SearchNext("foo", -1, opts)
	if !ok || m.Start != 0 {
		t.Errorf("from -1: (%+v, %v)", m, ok)
	}
	m, ok = tr.SearchNext("foo", 0, opts)
	if !ok || m.Start != 12 {
		t.Errorf("from 0: (%+v, %v)", m, ok)
	}
	if _, ok = tr.SearchNext("foo", 12, opts); ok {
		t.Error("from 12: expected no match")
	}
}

func TestSearchPrev(t *testing.T) {
	tr := FromString("foo bar\nbaz foo")
	opts := DefaultSearchOptions()

	m, ok := tr.SearchPrev("foo", 15, opts)
	if !ok || m.Start != 12 {
		t.Errorf("before 15: (%+v, %v)", m, ok)
	}
	m, ok = tr.SearchPrev("foo", 14, opts)
	if !ok || m.Start != 0 {
		t.Errorf("before 14: (%+v, %v)", m, ok)
	}
	if _, ok = tr.SearchPrev("foo", 2, opts); ok {
		t.Error("before 2: expected no match")
	}
}

func TestReplaceAll(t *testing.T) {
	tr := FromString("foo bar foo baz foo")
	next := tr.ReplaceAll("foo", "qux", DefaultSearchOptions())
	if got := next.Flatten(); got != "qux bar qux baz qux" {
		t.Errorf("got %q", got)
	}
	if next.Version() != tr.Version()+1 {
		t.Errorf("version = %d, want %d", next.Version(), tr.Version()+1)
	}
	if err := next.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestReplaceAllNoMatch(t *testing.T) {
	tr := FromString("hello")
	next := tr.ReplaceAll("xyz", "q", DefaultSearchOptions())
	if next != tr {
		t.Error("expected the receiver back when nothing matches")
	}
}

func TestReplaceAllOverlapping(t *testing.T) {
	tr := FromString("aaa")
	next := tr.ReplaceAll("aa", "b", DefaultSearchOptions())
	if got := next.Flatten(); got != "ba" {
		t.Errorf("got %q, want %q", got, "ba")
	}
}

func TestReplaceAllGrowingReplacement(t *testing.T) {
	tr := FromString("a-a-a")
	next := tr.ReplaceAll("a", "long", DefaultSearchOptions())
	if got := next.Flatten(); got != "long-long-long" {
		t.Errorf("got %q", got)
	}
}

func TestReplaceAllBatch(t *testing.T) {
	// Enough matches to take the rebuild path.
	tr := FromString(strings.Repeat("x ", 150)).ApplyEdits([]Edit{Insert(0, "# ")})
	next := tr.ReplaceAll("x", "yy", DefaultSearchOptions())

	if got := next.Flatten(); got != "# "+strings.Repeat("yy ", 150) {
		t.Errorf("batch replace wrong: %d bytes", len(got))
	}
	if next.Version() != tr.Version()+1 {
		t.Errorf("version = %d, want %d", next.Version(), tr.Version()+1)
	}
	if err := next.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestReplaceWith(t *testing.T) {
	tr := FromString("one two one two one")
	n := 0
	next := tr.ReplaceWith("one", DefaultSearchOptions(), func(m SearchMatch) (string, bool) {
		n++
		return "ONE", n%2 == 1 // first and third occurrence only
	})
	if got := next.Flatten(); got != "ONE two one two ONE" {
		t.Errorf("got %q", got)
	}
	if next.Version() != tr.Version()+1 {
		t.Errorf("version = %d", next.Version())
	}
}

func TestReplaceWithNothingAccepted(t *testing.T) {
	tr := FromString("one two")
	next := tr.ReplaceWith("one", DefaultSearchOptions(), func(SearchMatch) (string, bool) {
		return "", false
	})
	if next != tr {
		t.Error("expected the receiver back when every match is declined")
	}
}

func TestSearchAfterEdits(t *testing.T) {
	tr := FromString("the quick brown fox")
	tr = tr.ApplyEdits([]Edit{Replace(4, 9, "slow")})
	got := tr.Search("slow", DefaultSearchOptions())
	if len(got) != 1 || got[0].Start != 4 {
		t.Errorf("search after edit: %+v", got)
	}
}
