package tree

// Sums is the aggregate monoid cached on every node. Internal nodes
// hold the combined sums of their children; leaves hold the combined
// sums of their spans. Width combines by max, height by sum, so Bounds
// models embeds stacked vertically.
type Sums struct {
	Bytes    int
	Lines    uint32
	Chars    int
	LenUTF16 int
	Bounds   Size
	MaxZ     int
}

// add folds another Sums into s.
func (s *Sums) add(o Sums) {
	s.Bytes += o.Bytes
	s.Lines += o.Lines
	s.Chars += o.Chars
	s.LenUTF16 += o.LenUTF16
	if o.Bounds.Width > s.Bounds.Width {
		s.Bounds.Width = o.Bounds.Width
	}
	s.Bounds.Height += o.Bounds.Height
	if o.MaxZ > s.MaxZ {
		s.MaxZ = o.MaxZ
	}
}

// spanSums computes one span's contribution.
func spanSums(sp Span) Sums {
	if sp.IsSpatial() {
		sz := sp.spatial.Measure()
		return Sums{Bounds: sz, MaxZ: sp.spatial.ZIndex()}
	}
	return Sums{
		Bytes:    sp.ByteLen(),
		Lines:    sp.LineCount(),
		Chars:    sp.charCount(),
		LenUTF16: sp.lenUTF16(),
	}
}

// computeLeafSums folds a leaf's spans.
func computeLeafSums(spans []Span) Sums {
	var s Sums
	for _, sp := range spans {
		s.add(spanSums(sp))
	}
	return s
}

// computeChildSums folds an internal node's children.
func computeChildSums(children []*Node) Sums {
	var s Sums
	for _, c := range children {
		s.add(c.sums)
	}
	return s
}
