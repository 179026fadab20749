package articulation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"synthfeed/internal/logging"
	"synthfeed/internal/types"
)

// Comments converts the recovered tree into typed comments.
func (r *Result) Comments() []types.Comment {
	if r == nil {
		return nil
	}
	return ToComments(r.Tree)
}

// ToComments maps an array of comment objects onto types.Comment.
// Non-object elements are skipped. Missing keys stay zero-valued; defaults
// belong to the renderer.
func ToComments(arr Array) []types.Comment {
	out := make([]types.Comment, 0, len(arr))
	for i, n := range arr {
		obj, ok := n.(Object)
		if !ok {
			logging.ArticulationWarn("skipping thread element %d: %T is not an object", i, n)
			continue
		}
		out = append(out, toComment(obj))
	}
	return out
}

func toComment(obj Object) types.Comment {
	c := types.Comment{Replies: []types.Comment{}}
	if v, ok := obj.Get("author"); ok {
		c.Author = textOf(v)
	}
	if v, ok := obj.Get("comment"); ok {
		c.Body = textOf(v)
	}
	if v, ok := obj.Get("upvotes"); ok {
		c.Upvotes = intOf(v)
	}
	if v, ok := obj.Get("replies"); ok {
		if replies, ok := v.(Array); ok {
			c.Replies = ToComments(replies)
		}
	}
	return c
}

func textOf(n Node) string {
	switch v := n.(type) {
	case String:
		return string(v)
	case Scalar:
		if num, ok := v.Value.(json.Number); ok {
			return num.String()
		}
	}
	return ""
}

// intOf accepts integers, floats (truncated toward zero) and numeric strings.
func intOf(n Node) *int {
	var raw string
	switch v := n.(type) {
	case Scalar:
		num, ok := v.Value.(json.Number)
		if !ok {
			return nil
		}
		raw = num.String()
	case String:
		raw = strings.TrimSpace(string(v))
	default:
		return nil
	}

	if i, err := strconv.Atoi(raw); err == nil {
		return &i
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return nil
	}
	i := int(f)
	return &i
}
