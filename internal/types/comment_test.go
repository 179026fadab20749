package types

import (
	"encoding/json"
	"testing"
)

func TestComment_Defaults(t *testing.T) {
	var c Comment
	if got := c.DisplayAuthor(); got != DefaultAuthor {
		t.Errorf("DisplayAuthor() = %q, want %q", got, DefaultAuthor)
	}
	if got := c.Score(); got != DefaultUpvotes {
		t.Errorf("Score() = %d, want %d", got, DefaultUpvotes)
	}

	c = Comment{Author: "kai", Upvotes: IntPtr(-7)}
	if got := c.DisplayAuthor(); got != "kai" {
		t.Errorf("DisplayAuthor() = %q, want kai", got)
	}
	if got := c.Score(); got != -7 {
		t.Errorf("Score() = %d, want -7", got)
	}
}

func TestComment_DepthAndCount(t *testing.T) {
	thread := []Comment{
		{Author: "a", Replies: []Comment{
			{Author: "b", Replies: []Comment{{Author: "c"}}},
			{Author: "d"},
		}},
		{Author: "e"},
	}

	if got := CountComments(thread); got != 5 {
		t.Errorf("CountComments() = %d, want 5", got)
	}
	if got := MaxDepth(thread); got != 3 {
		t.Errorf("MaxDepth() = %d, want 3", got)
	}
	if got := MaxDepth(nil); got != 0 {
		t.Errorf("MaxDepth(nil) = %d, want 0", got)
	}
}

func TestComment_JSONShape(t *testing.T) {
	c := Comment{Author: "a", Body: "hi", Upvotes: IntPtr(3), Replies: []Comment{}}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"author":"a","comment":"hi","upvotes":3,"replies":[]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var back Comment
	if err := json.Unmarshal([]byte(`{"comment":"x"}`), &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if back.Upvotes != nil {
		t.Errorf("missing upvotes should stay nil, got %d", *back.Upvotes)
	}
}

func TestHeadline_Key(t *testing.T) {
	tests := []struct {
		h    Headline
		want string
	}{
		{Headline{Title: "T", Link: "https://x/1"}, "https://x/1"},
		{Headline{Title: "  Only a title "}, "title:Only a title"},
		{Headline{}, ""},
	}
	for _, tt := range tests {
		if got := tt.h.Key(); got != tt.want {
			t.Errorf("Key(%+v) = %q, want %q", tt.h, got, tt.want)
		}
	}
}
