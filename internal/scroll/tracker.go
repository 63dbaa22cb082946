package scroll

// Viewport describes a scrollable area in lines.
type Viewport struct {
	// Offset is the index of the first visible line.
	Offset int
	// ContentHeight is the total number of rendered lines.
	ContentHeight int
	// ClientHeight is the number of visible lines.
	ClientHeight int
}

// MaxOffset is the offset that shows the last line at the bottom edge.
func (v Viewport) MaxOffset() int {
	if m := v.ContentHeight - v.ClientHeight; m > 0 {
		return m
	}
	return 0
}

// Anchor is the reader's position captured before a re-render.
type Anchor struct {
	Offset   int
	AtBottom bool
}

// FollowBottom is the anchor used when the view must jump to the newest content.
func FollowBottom() Anchor {
	return Anchor{AtBottom: true}
}

// Tracker decides whether a re-render keeps the reader's offset or follows
// new content.
type Tracker struct {
	// Buffer is the tolerance band, in lines, within which the bottom edge
	// counts as "at bottom".
	Buffer int
}

// Capture records the viewport state before a re-render.
func (t Tracker) Capture(v Viewport) Anchor {
	return Anchor{
		Offset:   v.Offset,
		AtBottom: v.Offset+v.ClientHeight >= v.ContentHeight-t.Buffer,
	}
}

// ShouldFollowBottom reports whether the captured anchor was near the bottom.
func (t Tracker) ShouldFollowBottom(a Anchor) bool {
	return a.AtBottom
}

// Restore returns the offset to apply to the re-rendered viewport v.
func (t Tracker) Restore(a Anchor, v Viewport) int {
	if t.ShouldFollowBottom(a) {
		return v.MaxOffset()
	}
	if a.Offset < 0 {
		return 0
	}
	if m := v.MaxOffset(); a.Offset > m {
		return m
	}
	return a.Offset
}
