// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scales

import (
	"errors"
	"strings"
)

var ErrUnknownScale = errors.New("unknown estimate scale")

// Scale identifiers
const (
	Fibonacci        = "f"
	SimpleFibonacci  = "s"
	TShirt           = "t"
	EngineeringHours = "e"
)

// Scale is a named, fixed set of legal vote tokens
type Scale struct {
	ID        string
	Name      string
	Tokens    []string
	Composite string
	assets    map[string]string
}

// Valid reports whether token is a legal vote on this scale
func (s Scale) Valid(token string) bool {
	_, ok := s.assets[token]
	return ok
}

// Asset returns the display image for a token, or "" for unknown tokens
func (s Scale) Asset(token string) string {
	return s.assets[token]
}

// Registry holds the predefined scales. It is immutable after NewRegistry.
type Registry struct {
	order  []string
	scales map[string]Scale
}

type tokenDef struct {
	token string
	file  string
}

var definitions = []struct {
	id     string
	name   string
	tokens []tokenDef
}{
	{Fibonacci, "Fibonnaci Scale", []tokenDef{
		{"0", "0.png"}, {"1", "1.png"}, {"2", "2.png"}, {"3", "3.png"},
		{"5", "5.png"}, {"8", "8.png"}, {"13", "13.png"}, {"20", "20.png"},
		{"40", "40.png"}, {"100", "100.png"}, {"?", "unsure.png"},
	}},
	{SimpleFibonacci, "Simplified Fibonnaci", []tokenDef{
		{"1", "1.png"}, {"3", "3.png"}, {"5", "5.png"}, {"8", "8.png"}, {"?", "unsure.png"},
	}},
	{TShirt, "T-Shirt Size", []tokenDef{
		{"s", "small.png"}, {"m", "medium.png"}, {"l", "large.png"},
		{"xl", "extralarge.png"}, {"?", "unsure.png"},
	}},
	{EngineeringHours, "Engineering Hours", []tokenDef{
		{"1", "one.png"}, {"2", "two.png"}, {"3", "three.png"}, {"4", "four.png"},
		{"5", "five.png"}, {"6", "six.png"}, {"7", "seven.png"}, {"8", "eight.png"},
		{"2d", "twod.png"}, {"3d", "threed.png"}, {"4d", "fourd.png"}, {"5d", "fived.png"},
		{"1.5w", "weekhalf.png"}, {"2w", "twow.png"}, {"?", "unsure.png"},
	}},
}

// NewRegistry builds the predefined scales with assets served from imageLocation.
// imageLocation is used as a plain prefix, so it normally ends with "/".
func NewRegistry(imageLocation string) *Registry {
	r := &Registry{scales: make(map[string]Scale, len(definitions))}

	for _, def := range definitions {
		s := Scale{
			ID:        def.id,
			Name:      def.name,
			Tokens:    make([]string, 0, len(def.tokens)),
			Composite: imageLocation + def.id + "composite.png",
			assets:    make(map[string]string, len(def.tokens)),
		}
		for _, t := range def.tokens {
			s.Tokens = append(s.Tokens, t.token)
			s.assets[t.token] = imageLocation + t.file
		}
		r.order = append(r.order, def.id)
		r.scales[def.id] = s
	}

	return r
}

// Lookup returns the scale registered under id
func (r *Registry) Lookup(id string) (Scale, error) {
	s, ok := r.scales[id]
	if !ok {
		return Scale{}, ErrUnknownScale
	}
	return s, nil
}

// IDs returns the registered identifiers in definition order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Choices renders the identifiers as "f, s, t or e"
func (r *Registry) Choices() string {
	ids := r.IDs()
	if len(ids) < 2 {
		return strings.Join(ids, "")
	}
	return strings.Join(ids[:len(ids)-1], ", ") + " or " + ids[len(ids)-1]
}
