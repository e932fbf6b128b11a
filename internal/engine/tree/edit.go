package tree

// Content is the payload of an insert or replace: either a text string
// or a single embedded Spatial object. A non-nil Spatial wins.
type Content struct {
	Text    string
	Spatial Spatial
}

// TextContent wraps a string as edit content.
func TextContent(s string) Content { return Content{Text: s} }

// SpatialContent wraps an embedded object as edit content.
func SpatialContent(s Spatial) Content { return Content{Spatial: s} }

func (c Content) isEmpty() bool { return c.Spatial == nil && c.Text == "" }

// Edit describes one mutation of a tree: the byte range [Start, End)
// is removed and Content is inserted at Start. An empty range is a pure
// insert; empty content is a pure delete.
type Edit struct {
	Start   int
	End     int
	Content Content
}

// Insert builds an edit inserting text at pos.
func Insert(pos int, text string) Edit {
	return Edit{Start: pos, End: pos, Content: TextContent(text)}
}

// InsertSpatial builds an edit embedding an object at pos.
func InsertSpatial(pos int, s Spatial) Edit {
	return Edit{Start: pos, End: pos, Content: SpatialContent(s)}
}

// Delete builds an edit removing the byte range [start, end).
func Delete(start, end int) Edit {
	return Edit{Start: start, End: end}
}

// Replace builds an edit substituting text for the byte range
// [start, end).
func Replace(start, end int, text string) Edit {
	return Edit{Start: start, End: end, Content: TextContent(text)}
}

// IsInsert reports whether the edit only adds content.
func (e Edit) IsInsert() bool { return e.Start == e.End && !e.Content.isEmpty() }

// IsDelete reports whether the edit only removes content.
func (e Edit) IsDelete() bool { return e.End > e.Start && e.Content.isEmpty() }

// IsReplace reports whether the edit both removes and adds content.
func (e Edit) IsReplace() bool { return e.End > e.Start && !e.Content.isEmpty() }
