package htmlprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrParse wraps failures of the HTML parser
var ErrParse = errors.New("parse html")

// domDocument implements Document on top of golang.org/x/net/html with goquery selectors.
type domDocument struct {
	root *html.Node
	doc  *goquery.Document
}

// domElement implements Element for a single *html.Node.
type domElement struct {
	node *html.Node
}

// ParseDocument parses raw HTML into a Document.
// Like a browser, the parser never rejects markup; errors only come from the reader.
func ParseDocument(raw []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &domDocument{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

func (d *domDocument) Query(selector string) []Element {
	nodes := d.doc.Find(selector).Nodes
	if len(nodes) == 0 {
		return nil
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &domElement{node: n})
	}
	return elements
}

func (d *domDocument) QueryFirst(selector string) Element {
	sel := d.doc.Find(selector).First()
	if len(sel.Nodes) == 0 {
		return nil
	}
	return &domElement{node: sel.Nodes[0]}
}

func (d *domDocument) Title() string {
	head := findElement(d.root, "head")
	if head == nil {
		return ""
	}

	title := findElementInParent(head, "title")
	if title == nil {
		return ""
	}

	return truncateRunes(strings.TrimSpace(getTextContent(title)), maxTitleLength)
}

func (d *domDocument) HTML() string {
	documentElement := findElement(d.root, "html")
	if documentElement == nil {
		return ""
	}
	return renderNode(documentElement)
}

func (e *domElement) Tag() string {
	return strings.ToLower(e.node.Data)
}

func (e *domElement) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, attr := range e.node.Attr {
		if attr.Namespace == "" && strings.ToLower(attr.Key) == name {
			return attr.Val, true
		}
	}
	return "", false
}

func (e *domElement) SetAttr(name, value string) {
	name = strings.ToLower(name)
	for i, attr := range e.node.Attr {
		if attr.Namespace == "" && strings.ToLower(attr.Key) == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *domElement) RemoveAttr(name string) {
	name = strings.ToLower(name)
	kept := e.node.Attr[:0]
	for _, attr := range e.node.Attr {
		if attr.Namespace == "" && strings.ToLower(attr.Key) == name {
			continue
		}
		kept = append(kept, attr)
	}
	e.node.Attr = kept
}

func (e *domElement) Text() string {
	return getTextContent(e.node)
}

func (e *domElement) SetText(text string) {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (e *domElement) Remove() {
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

func (e *domElement) Parent() Element {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return &domElement{node: p}
}

func (e *domElement) AppendChild(tag, text string) Element {
	tag = strings.ToLower(tag)
	child := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if text != "" {
		child.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	e.node.AppendChild(child)
	return &domElement{node: child}
}

func (e *domElement) OuterHTML() string {
	return renderNode(e.node)
}

// renderNode serializes a node and its subtree. Render only fails on writer
// errors, which a bytes.Buffer never returns.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// findElement recursively searches for the first element with matching tag name (case-insensitive).
// Returns nil if not found.
func findElement(node *html.Node, tag string) *html.Node {
	if node == nil {
		return nil
	}
	return findElementLower(node, strings.ToLower(tag))
}

func findElementLower(node *html.Node, lowerTag string) *html.Node {
	if node.Type == html.ElementNode && strings.ToLower(node.Data) == lowerTag {
		return node
	}

	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementLower(c, lowerTag); found != nil {
			return found
		}
	}
	return nil
}

// findElementInParent searches parent's subtree (excluding parent itself) for a matching element.
func findElementInParent(parent *html.Node, tag string) *html.Node {
	if parent == nil {
		return nil
	}
	lowerTag := strings.ToLower(tag)

	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementLower(c, lowerTag); found != nil {
			return found
		}
	}
	return nil
}

// getTextContent recursively extracts all text content from node and descendants.
func getTextContent(node *html.Node) string {
	if node == nil {
		return ""
	}

	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(node)
	return sb.String()
}
