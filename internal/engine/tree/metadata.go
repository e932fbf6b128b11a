package tree

import (
	"github.com/hideo55/go-popcount"
)

// MetadataLimit is the largest span size (in bytes) that carries bitmap
// metadata. Larger spans fall back to linear UTF-8 scanning.
const MetadataLimit = 128

// bitmap128 is a fixed 128-bit mask over byte positions within a span.
// Bit i is set when byte i is a boundary of the kind the mask tracks.
type bitmap128 struct {
	lo, hi uint64
}

// set marks bit i. i must be in [0, 128).
func (b *bitmap128) set(i int) {
	if i < 64 {
		b.lo |= 1 << uint(i)
	} else {
		b.hi |= 1 << uint(i-64)
	}
}

// test reports whether bit i is set. Out-of-range bits read as zero.
func (b bitmap128) test(i int) bool {
	if i < 0 || i >= 128 {
		return false
	}
	if i < 64 {
		return b.lo&(1<<uint(i)) != 0
	}
	return b.hi&(1<<uint(i-64)) != 0
}

// onesBefore counts set bits at positions [0, i).
func (b bitmap128) onesBefore(i int) int {
	if i <= 0 {
		return 0
	}
	if i >= 128 {
		return b.ones()
	}
	if i <= 64 {
		return int(popcount.Count(b.lo & maskBelow(uint(i))))
	}
	return int(popcount.Count(b.lo) + popcount.Count(b.hi&maskBelow(uint(i-64))))
}

// ones counts all set bits.
func (b bitmap128) ones() int {
	return int(popcount.Count(b.lo) + popcount.Count(b.hi))
}

// lastSetBefore returns the highest set bit strictly below i, or -1.
func (b bitmap128) lastSetBefore(i int) int {
	if i > 128 {
		i = 128
	}
	for p := i - 1; p >= 0; p-- {
		if b.test(p) {
			return p
		}
	}
	return -1
}

// anySetAtOrAfter reports whether any bit at position >= i is set.
func (b bitmap128) anySetAtOrAfter(i int) bool {
	if i <= 0 {
		return b.lo != 0 || b.hi != 0
	}
	if i >= 128 {
		return false
	}
	if i < 64 {
		return b.lo&^maskBelow(uint(i)) != 0 || b.hi != 0
	}
	return b.hi&^maskBelow(uint(i-64)) != 0
}

// maskBelow returns a mask of the low n bits; n must be in [0, 64].
func maskBelow(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (1 << n) - 1
}

// TextMetadata is the bitmap position index attached to text spans of at
// most MetadataLimit bytes. Three masks make boundary queries O(1):
//
//   - chars: byte positions that start a UTF-8 character
//   - charsUTF16: positions credited with a UTF-16 code unit; a 4-byte
//     UTF-8 sequence (outside the BMP) is worth two code units and sets
//     both its start byte and the byte after it
//   - newlines: positions holding '\n'
type TextMetadata struct {
	chars      bitmap128
	charsUTF16 bitmap128
	newlines   bitmap128
}

// computeMetadata builds bitmap metadata for a byte run.
// Returns nil for runs longer than MetadataLimit.
func computeMetadata(b []byte) *TextMetadata {
	if len(b) > MetadataLimit {
		return nil
	}

	var m TextMetadata
	for i, c := range b {
		// Character boundary: anything but a UTF-8 continuation byte.
		if c&0xC0 != 0x80 {
			m.chars.set(i)
			m.charsUTF16.set(i)

			// A 4-byte sequence encodes as a surrogate pair: credit the
			// second code unit at the following byte position.
			if c >= 0xF0 && i+1 < len(b) {
				m.charsUTF16.set(i + 1)
			}
		}

		if c == '\n' {
			m.newlines.set(i)
		}
	}
	return &m
}

// byteToOffsetUTF16 counts the UTF-16 code units contributed by all
// complete characters ending at or before byteOffset. A query landing
// mid-character backs up to the preceding character boundary.
func (m *TextMetadata) byteToOffsetUTF16(byteOffset int) int {
	if byteOffset == 0 {
		return 0
	}
	if byteOffset >= MetadataLimit {
		return m.totalUTF16()
	}

	if m.chars.test(byteOffset) {
		return m.charsUTF16.onesBefore(byteOffset)
	}

	// Mid-character: find the previous boundary.
	prev := byteOffset - 1
	for prev > 0 && !m.chars.test(prev) {
		prev--
	}

	// Past the end of the span's content entirely.
	if !m.chars.anySetAtOrAfter(prev + 1) {
		return m.totalUTF16()
	}

	if prev == 0 {
		return 0
	}
	return m.charsUTF16.onesBefore(prev)
}

// byteToCharOffset counts characters before byteOffset.
func (m *TextMetadata) byteToCharOffset(byteOffset int) int {
	return m.chars.onesBefore(byteOffset)
}

// byteToLineCol converts a byte offset within the span to a
// (line, column) pair, where line counts preceding newlines and column
// is the byte distance from the last newline before the offset.
func (m *TextMetadata) byteToLineCol(byteOffset int) (uint32, uint32) {
	line := uint32(m.newlines.onesBefore(byteOffset))

	col := byteOffset
	if last := m.newlines.lastSetBefore(byteOffset); last >= 0 {
		col = byteOffset - (last + 1)
	}
	return line, uint32(col)
}

// totalUTF16 returns the span's UTF-16 code unit count.
func (m *TextMetadata) totalUTF16() int {
	return m.charsUTF16.ones()
}

// totalChars returns the span's character count.
func (m *TextMetadata) totalChars() int {
	return m.chars.ones()
}

// totalNewlines returns the span's newline count.
func (m *TextMetadata) totalNewlines() uint32 {
	return uint32(m.newlines.ones())
}
