package tree

import (
	"unicode/utf8"
)

// PointUTF16 is a position expressed as a zero-based row and a column
// counted in UTF-16 code units, the addressing used by language server
// clients.
type PointUTF16 struct {
	Row    uint32
	Column uint32
}

// Add composes a relative movement onto p. Moving by one or more rows
// resets the column to the movement's column; a same-row movement
// extends it.
func (p PointUTF16) Add(o PointUTF16) PointUTF16 {
	if o.Row > 0 {
		return PointUTF16{Row: p.Row + o.Row, Column: o.Column}
	}
	return PointUTF16{Row: p.Row, Column: p.Column + o.Column}
}

// Compare orders p against o, rows first.
func (p PointUTF16) Compare(o PointUTF16) int {
	if p.Row != o.Row {
		if p.Row < o.Row {
			return -1
		}
		return 1
	}
	if p.Column != o.Column {
		if p.Column < o.Column {
			return -1
		}
		return 1
	}
	return 0
}

// OffsetToOffsetUTF16 converts a byte offset to a UTF-16 code unit
// offset. Offsets past the end clamp to the full UTF-16 length.
func (t *Tree) OffsetToOffsetUTF16(offset int) int {
	if offset == 0 {
		return 0
	}
	if offset >= t.ByteCount() {
		return t.LenUTF16()
	}
	bytePos, count := 0, 0
	walkByteToUTF16(t.root, offset, &bytePos, &count)
	return count
}

// OffsetUTF16ToOffset converts a UTF-16 code unit offset to a byte
// offset. Targets past the end clamp to the byte count; a target
// landing between the halves of a surrogate pair resolves to the byte
// position where the second code unit is credited.
func (t *Tree) OffsetUTF16ToOffset(target int) int {
	if target == 0 {
		return 0
	}
	if target >= t.LenUTF16() {
		return t.ByteCount()
	}
	bytePos, utf16Pos := 0, 0
	walkUTF16ToByte(t.root, target, &bytePos, &utf16Pos)
	return bytePos
}

// walkByteToUTF16 accumulates UTF-16 units up to the target byte,
// skipping whole subtrees and spans by their cached sums.
func walkByteToUTF16(n *Node, target int, bytePos, count *int) bool {
	if n.IsLeaf() {
		for _, sp := range n.spans {
			if *bytePos >= target {
				return true
			}
			if !sp.IsText() {
				continue
			}
			spanLen := sp.ByteLen()
			if *bytePos+spanLen <= target {
				*count += sp.lenUTF16()
				*bytePos += spanLen
				continue
			}
			*count += sp.utf16OffsetAt(target - *bytePos)
			*bytePos = target
			return true
		}
		return false
	}
	for _, child := range n.children {
		if *bytePos+child.sums.Bytes <= target {
			*bytePos += child.sums.Bytes
			*count += child.sums.LenUTF16
			continue
		}
		return walkByteToUTF16(child, target, bytePos, count)
	}
	return false
}

// walkUTF16ToByte accumulates bytes up to the target UTF-16 offset.
func walkUTF16ToByte(n *Node, target int, bytePos, utf16Pos *int) bool {
	if n.IsLeaf() {
		for _, sp := range n.spans {
			if *utf16Pos >= target {
				return true
			}
			if !sp.IsText() {
				continue
			}
			spanUTF16 := sp.lenUTF16()
			if *utf16Pos+spanUTF16 <= target {
				*utf16Pos += spanUTF16
				*bytePos += sp.ByteLen()
				continue
			}

			remaining := target - *utf16Pos
			if sp.meta != nil {
				count := 0
				for i := 0; i < sp.ByteLen(); i++ {
					if sp.meta.charsUTF16.test(i) {
						count++
						if count > remaining {
							*bytePos += i
							*utf16Pos = target
							return true
						}
					}
				}
				*bytePos += sp.ByteLen()
				*utf16Pos = target
				return true
			}

			byteInSpan := 0
			for i := 0; i < len(sp.text); {
				r, size := utf8.DecodeRune(sp.text[i:])
				units := 1
				if r > 0xFFFF {
					units = 2
				}
				if *utf16Pos+units > target {
					*bytePos += byteInSpan
					return true
				}
				*utf16Pos += units
				byteInSpan += size
				if *utf16Pos >= target {
					*bytePos += byteInSpan
					return true
				}
				i += size
			}
			*bytePos += sp.ByteLen()
		}
		return false
	}
	for _, child := range n.children {
		if *utf16Pos+child.sums.LenUTF16 <= target {
			*utf16Pos += child.sums.LenUTF16
			*bytePos += child.sums.Bytes
			continue
		}
		return walkUTF16ToByte(child, target, bytePos, utf16Pos)
	}
	return false
}

// DocPosToPointUTF16 converts a (line, byte column) position to a
// UTF-16 point. Lines past the end clamp to the last line's full
// width.
func (t *Tree) DocPosToPointUTF16(line uint32, byteColumn uint32) PointUTF16 {
	if line > t.LineCount() {
		last := t.LineCount()
		return PointUTF16{Row: last, Column: uint32(utf16LenString(t.LineTextTrimmed(last)))}
	}

	lineStart, ok := t.LineToByte(line)
	if !ok {
		lineStart = 0
	}
	targetByte := lineStart + int(byteColumn)

	lineStartUTF16 := t.OffsetToOffsetUTF16(lineStart)
	targetUTF16 := t.OffsetToOffsetUTF16(targetByte)
	return PointUTF16{Row: line, Column: uint32(targetUTF16 - lineStartUTF16)}
}

// PointUTF16ToDocPos converts a UTF-16 point to a (line, byte column)
// position. Rows past the end clamp to the last line's full byte
// width; columns clamp to the line's last complete character.
func (t *Tree) PointUTF16ToDocPos(p PointUTF16) (uint32, uint32) {
	if p.Row > t.LineCount() {
		last := t.LineCount()
		return last, uint32(len(t.LineTextTrimmed(last)))
	}
	if p.Column == 0 {
		return p.Row, 0
	}

	lineText := t.LineTextTrimmed(p.Row)
	utf16Col := uint32(0)
	byteCol := uint32(0)
	for _, r := range lineText {
		units := uint32(1)
		if r > 0xFFFF {
			units = 2
		}
		if utf16Col+units > p.Column {
			break
		}
		utf16Col += units
		byteCol += uint32(utf8.RuneLen(r))
	}
	return p.Row, byteCol
}

// OffsetToPointUTF16 converts a byte offset to a UTF-16 point.
// Offsets past the end clamp to the end of the last line.
func (t *Tree) OffsetToPointUTF16(offset int) PointUTF16 {
	if offset == 0 {
		return PointUTF16{}
	}
	if offset >= t.ByteCount() {
		line := t.LineCount()
		col := 0
		if t.ByteCount() > 0 {
			col = utf16LenString(t.LineTextTrimmed(line))
		}
		return PointUTF16{Row: line, Column: uint32(col)}
	}

	line := t.ByteToLine(offset)
	lineStart, ok := t.LineToByte(line)
	if !ok {
		lineStart = 0
	}
	return t.DocPosToPointUTF16(line, uint32(offset-lineStart))
}

// PointUTF16ToByte converts a UTF-16 point to a byte offset.
func (t *Tree) PointUTF16ToByte(p PointUTF16) int {
	line, byteCol := t.PointUTF16ToDocPos(p)
	start, ok := t.LineToByte(line)
	if !ok {
		return 0
	}
	return start + int(byteCol)
}

// utf16LenString counts UTF-16 code units in a string.
func utf16LenString(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
