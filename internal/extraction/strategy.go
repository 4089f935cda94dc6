package extraction

import (
	"strings"

	"github.com/zombor/weighbridge/internal/document"
)

// Strategy is one way of locating a raw field value in a document
type Strategy interface {
	// Lookup returns the raw value and whether the strategy applied
	Lookup(doc *document.Document) (string, bool)
	// String describes what was attempted, for error messages
	String() string
}

// Candidates is an ordered list of tag names where the first tag with a
// qualifying element wins. Match, when set, decides whether an element
// qualifies and what value it yields; by default every element qualifies
// with its trimmed text content.
type Candidates struct {
	Label string
	Tags  []string
	Match func(n *document.Node) (string, bool)
}

// Lookup implements Strategy
func (c Candidates) Lookup(doc *document.Document) (string, bool) {
	match := c.Match
	if match == nil {
		match = trimmedContent
	}
	for _, tag := range c.Tags {
		for _, n := range doc.FindAll(tag) {
			if value, ok := match(n); ok {
				return value, true
			}
		}
	}
	return "", false
}

func (c Candidates) String() string {
	if c.Label != "" {
		return c.Label
	}
	return "tags: " + strings.Join(c.Tags, ", ")
}

// StrictPath descends from the document root one child at a time
type StrictPath []string

// Lookup implements Strategy
func (p StrictPath) Lookup(doc *document.Document) (string, bool) {
	n := doc.Path(p...)
	if n == nil {
		return "", false
	}
	return trimmedContent(n)
}

func (p StrictPath) String() string {
	return "path: /" + strings.Join(p, "/")
}

// firstOf runs strategies in order and returns the first value found
func firstOf(doc *document.Document, strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		if value, ok := s.Lookup(doc); ok {
			return value, true
		}
	}
	return "", false
}

func describe(strategies []Strategy) string {
	parts := make([]string, len(strategies))
	for i, s := range strategies {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; then ")
}

func trimmedContent(n *document.Node) (string, bool) {
	return strings.TrimSpace(n.Content()), true
}
