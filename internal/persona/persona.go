// Package persona loads the roster of characters that populate a comment
// section. A roster is a YAML list of mappings; the "character" key names the
// persona and every other key is a free-form attribute. Key order is kept so
// prompts read the way the roster author wrote them.
package persona

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"synthfeed/internal/logging"

	"gopkg.in/yaml.v3"
)

// NameKey is the attribute that names a persona.
const NameKey = "character"

//go:embed example.yml
var exampleRoster []byte

// Attribute is one key/value pair of a persona, in file order.
type Attribute struct {
	Key   string
	Value string
}

// Persona is a single roster entry.
type Persona struct {
	Name       string
	Attributes []Attribute
}

// Roster is an ordered list of personas.
type Roster []Persona

// Load reads a roster from path. A missing file yields an empty roster and a
// warning; a malformed file is an error.
func Load(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Get(logging.CategoryBoot).Warn("No persona roster at %s; continuing with none", path)
			return Roster{}, nil
		}
		return nil, fmt.Errorf("failed to read personas: %w", err)
	}

	roster, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	logging.Get(logging.CategoryBoot).Info("Found %d personas", len(roster))
	return roster, nil
}

// Example returns the bundled sample roster.
func Example() Roster {
	r, err := Parse(exampleRoster)
	if err != nil {
		panic(fmt.Sprintf("persona: bundled example is invalid: %v", err))
	}
	return r
}

// ExampleYAML returns the bundled sample roster as written.
func ExampleYAML() []byte {
	return append([]byte(nil), exampleRoster...)
}

// Parse decodes a roster document.
func Parse(data []byte) (Roster, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Roster{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: roster must be a list of personas", root.Line)
	}

	roster := make(Roster, 0, len(root.Content))
	for _, item := range root.Content {
		p, err := decodePersona(item)
		if err != nil {
			return nil, err
		}
		roster = append(roster, p)
	}
	return roster, nil
}

func decodePersona(n *yaml.Node) (Persona, error) {
	if n.Kind != yaml.MappingNode {
		return Persona{}, fmt.Errorf("line %d: persona must be a mapping", n.Line)
	}

	var p Persona
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		value, err := scalarText(val)
		if err != nil {
			return Persona{}, err
		}
		p.Attributes = append(p.Attributes, Attribute{Key: key.Value, Value: value})
		if key.Value == NameKey {
			p.Name = value
		}
	}
	if p.Name == "" {
		return Persona{}, fmt.Errorf("line %d: persona has no %q", n.Line, NameKey)
	}
	return p, nil
}

// scalarText flattens a value node. Lists and mappings become compact
// flow-style YAML.
func scalarText(n *yaml.Node) (string, error) {
	if n.Kind == yaml.ScalarNode {
		return n.Value, nil
	}
	flow := *n
	flow.Style = yaml.FlowStyle
	out, err := yaml.Marshal(&flow)
	if err != nil {
		return "", fmt.Errorf("line %d: %w", n.Line, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Get returns the value for key.
func (p Persona) Get(key string) (string, bool) {
	for _, a := range p.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// OpeningPrompt renders the persona as a system prompt, one sentence per
// attribute in file order.
func (p Persona) OpeningPrompt() string {
	var sb strings.Builder
	for _, a := range p.Attributes {
		fmt.Fprintf(&sb, "Your %s is %s. ", a.Key, a.Value)
	}
	return sb.String()
}

// Names lists persona names in roster order.
func (r Roster) Names() []string {
	names := make([]string, len(r))
	for i, p := range r {
		names[i] = p.Name
	}
	return names
}

// Find looks a persona up by name, ignoring case.
func (r Roster) Find(name string) (Persona, bool) {
	name = strings.TrimSpace(name)
	for _, p := range r {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Persona{}, false
}

// Sample returns up to n distinct personas in random order. n <= 0 or n >=
// len(r) returns every persona, shuffled.
func (r Roster) Sample(n int, rng *rand.Rand) Roster {
	idx := rng.Perm(len(r))
	if n > 0 && n < len(idx) {
		idx = idx[:n]
	}
	out := make(Roster, len(idx))
	for i, j := range idx {
		out[i] = r[j]
	}
	return out
}

// YAML renders the roster back to YAML for embedding in a prompt.
func (r Roster) YAML() (string, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, p := range r {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, a := range p.Attributes {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: a.Key},
				&yaml.Node{Kind: yaml.ScalarNode, Value: a.Value},
			)
		}
		seq.Content = append(seq.Content, m)
	}
	out, err := yaml.Marshal(seq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal roster: %w", err)
	}
	return string(out), nil
}
