package types

// =============================================================================
// COMMENT THREAD TYPES
// =============================================================================

const (
	// DefaultAuthor is shown for comments the generator left unsigned.
	DefaultAuthor = "Unknown"
	// DefaultUpvotes is shown for comments without a score.
	DefaultUpvotes = 0
)

// Comment is one node of a generated comment thread.
//
// Every field is optional on the wire. Defaults are applied by the
// accessor methods at the rendering boundary, never when decoding.
type Comment struct {
	Author  string    `json:"author,omitempty"`
	Body    string    `json:"comment,omitempty"`
	Upvotes *int      `json:"upvotes,omitempty"`
	Replies []Comment `json:"replies"`
}

// DisplayAuthor returns the author or DefaultAuthor when unset.
func (c Comment) DisplayAuthor() string {
	if c.Author == "" {
		return DefaultAuthor
	}
	return c.Author
}

// Score returns the upvote count or DefaultUpvotes when unset.
func (c Comment) Score() int {
	if c.Upvotes == nil {
		return DefaultUpvotes
	}
	return *c.Upvotes
}

// Depth returns the number of levels in the subtree rooted at c (1 for a leaf).
func (c Comment) Depth() int {
	deepest := 0
	for _, r := range c.Replies {
		if d := r.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// CountComments returns the total number of comments in a forest, replies included.
func CountComments(comments []Comment) int {
	n := 0
	for _, c := range comments {
		n += 1 + CountComments(c.Replies)
	}
	return n
}

// MaxDepth returns the deepest nesting level in a forest (0 for an empty forest).
func MaxDepth(comments []Comment) int {
	deepest := 0
	for _, c := range comments {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// IntPtr is a convenience for building Comments with a score.
func IntPtr(v int) *int {
	return &v
}
