package articulation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"synthfeed/internal/types"
)

func TestToComments_UpvoteCoercion(t *testing.T) {
	// Non-constant so the table compiles where int is 32 bits.
	threeBillion := int64(3_000_000_000)
	large := types.IntPtr(int(threeBillion))

	tests := []struct {
		name string
		raw  string
		want *int
	}{
		{"integer", `12`, types.IntPtr(12)},
		{"negative", `-10`, types.IntPtr(-10)},
		{"float_truncates", `12.9`, types.IntPtr(12)},
		{"exponent", `1e3`, types.IntPtr(1000)},
		{"numeric_string", `" 42 "`, types.IntPtr(42)},
		{"word_string", `"lots"`, nil},
		{"bool", `true`, nil},
		{"null", `null`, nil},
		{"object", `{"n":1}`, nil},
		{"huge", `1e300`, nil},
		{"large_integer", `3000000000`, large},
		{"large_exponent", `3e9`, large},
		{"large_float", `3000000000.0`, large},
		{"large_string", `"3e9"`, large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Recover(`[{"author":"A","upvotes":` + tt.raw + `}]`)
			if err != nil {
				t.Fatalf("Recover error: %v", err)
			}
			got := res.Comments()[0].Upvotes
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Upvotes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToComments_MissingKeysAndOddShapes(t *testing.T) {
	res, err := Recover(`[
		{"comment": "anon"},
		"stray string",
		{"author": 7, "comment": "numeric author", "replies": "none"},
		{"author": "B", "replies": [42, {"author": "C"}]}
	]`)
	if err != nil {
		t.Fatalf("Recover error: %v", err)
	}

	want := []types.Comment{
		{Body: "anon", Replies: []types.Comment{}},
		{Author: "7", Body: "numeric author", Replies: []types.Comment{}},
		{Author: "B", Replies: []types.Comment{
			{Author: "C", Replies: []types.Comment{}},
		}},
	}
	if diff := cmp.Diff(want, res.Comments()); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
	if got := res.Comments()[0].DisplayAuthor(); got != types.DefaultAuthor {
		t.Errorf("DisplayAuthor = %q, want default", got)
	}
}

func TestResult_CommentsNil(t *testing.T) {
	var r *Result
	if r.Comments() != nil {
		t.Error("nil Result should yield nil comments")
	}
}
