package articulation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// NODE - closed sum type over decoded generator output
// =============================================================================

// Node is a decoded JSON value: Object, Array, String or Scalar.
// The set is closed; only this package implements it.
type Node interface {
	json.Marshaler
	isNode()
}

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value Node
}

// Object is a JSON object with its keys in document order.
type Object []Field

// Array is a JSON array.
type Array []Node

// String is a JSON string.
type String string

// Scalar is a JSON number (json.Number), boolean, or null (nil Value).
type Scalar struct {
	Value interface{}
}

func (Object) isNode() {}
func (Array) isNode()  {}
func (String) isNode() {}
func (Scalar) isNode() {}

// Get returns the value of the last field named key, matching encoding/json.
func (o Object) Get(key string) (Node, bool) {
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].Key == key {
			return o[i].Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the object preserving key order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalText(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalNode(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the array; a nil Array encodes as [].
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, n := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := marshalNode(n)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the string without HTML escaping. json.Marshal
// re-escapes Marshaler output; use an Encoder with SetEscapeHTML(false)
// to keep it.
func (s String) MarshalJSON() ([]byte, error) {
	return marshalText(string(s))
}

// MarshalJSON encodes the scalar value.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch v := s.Value.(type) {
	case nil:
		return []byte("null"), nil
	case json.Number:
		return []byte(v.String()), nil
	case bool:
		if v {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	default:
		return nil, fmt.Errorf("unsupported scalar type %T", v)
	}
}

func marshalNode(n Node) ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	return n.MarshalJSON()
}

func marshalText(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// =============================================================================
// PARSING
// =============================================================================

// Parse decodes text into a Node, preserving object key order.
// Numbers are kept as json.Number so no precision is lost.
func Parse(text string) (Node, error) {
	// Full syntax validation first; the token walk below then only
	// sees well-formed input with exactly one top-level value.
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return decodeNode(dec)
}

func decodeNode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			obj := Object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				val, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := Array{}
			for dec.More() {
				val, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", rune(v))
		}
	case string:
		return String(v), nil
	case json.Number, bool, nil:
		return Scalar{Value: v}, nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

// =============================================================================
// SANITIZATION PASS
// =============================================================================

var markupStripper = strings.NewReplacer("*", "", `\`, "")

// StripMarkup removes every asterisk and backslash from s.
func StripMarkup(s string) string {
	return markupStripper.Replace(s)
}

// Sanitize returns a copy of n with StripMarkup applied to every string
// value at every depth. Keys, order and non-string scalars are unchanged.
func Sanitize(n Node) Node {
	switch v := n.(type) {
	case Object:
		out := make(Object, len(v))
		for i, f := range v {
			out[i] = Field{Key: f.Key, Value: Sanitize(f.Value)}
		}
		return out
	case Array:
		out := make(Array, len(v))
		for i, e := range v {
			out[i] = Sanitize(e)
		}
		return out
	case String:
		return String(StripMarkup(string(v)))
	default:
		return n
	}
}
