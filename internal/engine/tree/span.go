package tree

import (
	"bytes"
	"unicode/utf8"
)

// Size is the measured extent of an embedded object.
type Size struct {
	Width  float64
	Height float64
}

// Spatial is implemented by zero-width objects embedded in the text
// stream: inline widgets, anchors, rendered blocks. Embeds occupy no
// bytes, characters, or UTF-16 units and never split text addressing.
type Spatial interface {
	// Measure returns the object's rendered extent.
	Measure() Size
	// ZIndex returns the object's stacking order.
	ZIndex() int
}

// Span is the unit of storage in leaf nodes: either a run of UTF-8 text
// or a single embedded Spatial object.
type Span struct {
	text    []byte
	lines   uint32
	meta    *TextMetadata
	spatial Spatial
}

// newTextSpan builds a text span, counting newlines and computing
// bitmap metadata when the run is small enough.
func newTextSpan(b []byte) Span {
	return Span{
		text:  b,
		lines: uint32(bytes.Count(b, []byte{'\n'})),
		meta:  computeMetadata(b),
	}
}

// newSpatialSpan builds a zero-width embed span.
func newSpatialSpan(s Spatial) Span {
	return Span{spatial: s}
}

// IsText reports whether the span holds text.
func (s Span) IsText() bool { return s.spatial == nil }

// IsSpatial reports whether the span holds an embedded object.
func (s Span) IsSpatial() bool { return s.spatial != nil }

// Bytes returns the span's text bytes. Callers must not modify the
// returned slice. Embed spans return nil.
func (s Span) Bytes() []byte { return s.text }

// Text returns the span's text as a string.
func (s Span) Text() string { return string(s.text) }

// Spatial returns the embedded object, or nil for text spans.
func (s Span) Spatial() Spatial { return s.spatial }

// ByteLen returns the span's byte length. Embeds are zero-width.
func (s Span) ByteLen() int { return len(s.text) }

// LineCount returns the number of newlines in the span.
func (s Span) LineCount() uint32 { return s.lines }

// linesTo counts newlines in the first n bytes of the span.
func (s Span) linesTo(n int) uint32 {
	if n >= len(s.text) {
		return s.lines
	}
	return uint32(bytes.Count(s.text[:n], []byte{'\n'}))
}

// charCount returns the span's character count, via metadata when
// available and a UTF-8 scan otherwise.
func (s Span) charCount() int {
	if s.spatial != nil {
		return 0
	}
	if s.meta != nil {
		return s.meta.totalChars()
	}
	return utf8.RuneCount(s.text)
}

// lenUTF16 returns the span's UTF-16 code unit count.
func (s Span) lenUTF16() int {
	if s.spatial != nil {
		return 0
	}
	if s.meta != nil {
		return s.meta.totalUTF16()
	}
	return utf16Len(s.text)
}

// slice returns a new text span over bytes [start, end) of s.
func (s Span) slice(start, end int) Span {
	b := make([]byte, end-start)
	copy(b, s.text[start:end])
	return newTextSpan(b)
}

// utf16Len counts UTF-16 code units in a UTF-8 byte run.
func utf16Len(b []byte) int {
	n := 0
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
		i += size
	}
	return n
}

// charOffsetAt counts characters in the first n bytes of the span.
func (s Span) charOffsetAt(n int) int {
	if s.spatial != nil {
		return 0
	}
	if n >= len(s.text) {
		return s.charCount()
	}
	if s.meta != nil {
		return s.meta.byteToCharOffset(n)
	}
	return utf8.RuneCount(s.text[:n])
}

// utf16OffsetAt counts UTF-16 code units contributed by the complete
// characters within the first n bytes of the span.
func (s Span) utf16OffsetAt(n int) int {
	if s.spatial != nil {
		return 0
	}
	if n >= len(s.text) {
		return s.lenUTF16()
	}
	if s.meta != nil {
		return s.meta.byteToOffsetUTF16(n)
	}
	// Back up to a character boundary, then scan.
	for n > 0 && s.text[n]&0xC0 == 0x80 {
		n--
	}
	return utf16Len(s.text[:n])
}
