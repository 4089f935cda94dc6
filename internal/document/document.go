package document

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrMalformed is returned when the input is not a well-formed XML document
var ErrMalformed = errors.New("malformed xml document")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Attr is a single attribute of an element
type Attr struct {
	Name  string
	Value string
}

// Node is one element of a loaded document. Tags and attribute names are
// stored by local name; namespace prefixes are dropped.
type Node struct {
	Tag      string
	Attrs    []Attr
	Text     string // character data directly inside this element
	Children []*Node
}

// Document is a loaded XML document
type Document struct {
	Root *Node
}

// Load reads a single XML document from r and builds its element tree.
// Declared encodings other than UTF-8 (ISO-8859-1 is common on fiscal
// documents) are decoded transparently, and a leading UTF-8 byte-order
// mark is skipped.
func Load(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	decoder := xml.NewDecoder(br)
	decoder.Strict = true
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
		text  = map[*Node]*strings.Builder{}
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				node.Attrs = append(node.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformed)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			node := stack[len(stack)-1]
			if b, ok := text[node]; ok {
				node.Text = b.String()
				delete(text, node)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("%w: text outside root element", ErrMalformed)
				}
				continue
			}
			node := stack[len(stack)-1]
			b, ok := text[node]
			if !ok {
				b = &strings.Builder{}
				text[node] = b
			}
			b.Write(t)
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: unclosed element %q", ErrMalformed, stack[len(stack)-1].Tag)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return &Document{Root: root}, nil
}

// LoadBytes is Load over an in-memory document
func LoadBytes(data []byte) (*Document, error) {
	return Load(bytes.NewReader(data))
}

// Find returns the first element named tag, depth-first in document order,
// including the root element itself.
func (d *Document) Find(tag string) *Node {
	if d.Root.Tag == tag {
		return d.Root
	}
	return d.Root.Find(tag)
}

// FindAll returns every element named tag in document order, including the root.
func (d *Document) FindAll(tag string) []*Node {
	var out []*Node
	if d.Root.Tag == tag {
		out = append(out, d.Root)
	}
	return d.Root.appendAll(tag, out)
}

// Path descends strictly from the root: the root must be named segments[0]
// and each following segment is resolved with Child. Any missing step fails
// the whole path.
func (d *Document) Path(segments ...string) *Node {
	if len(segments) == 0 || d.Root.Tag != segments[0] {
		return nil
	}
	node := d.Root
	for _, seg := range segments[1:] {
		node = node.Child(seg)
		if node == nil {
			return nil
		}
	}
	return node
}

// Find returns the first descendant named tag, depth-first in document order.
func (n *Node) Find(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
		if found := c.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant named tag in document order.
func (n *Node) FindAll(tag string) []*Node {
	return n.appendAll(tag, nil)
}

func (n *Node) appendAll(tag string, out []*Node) []*Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
		out = c.appendAll(tag, out)
	}
	return out
}

// Child returns the first direct child named tag
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Attr looks up an attribute by name, ignoring case
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// Content returns the text of the element and all its descendants
func (n *Node) Content() string {
	if len(n.Children) == 0 {
		return n.Text
	}
	var b strings.Builder
	n.writeContent(&b)
	return b.String()
}

func (n *Node) writeContent(b *strings.Builder) {
	b.WriteString(n.Text)
	for _, c := range n.Children {
		c.writeContent(b)
	}
}
