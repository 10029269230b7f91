package htmlprocessor

const maxTitleLength = 200

// Document is a mutable, selector-queryable HTML tree owned by one pipeline run.
type Document interface {
	// Query returns every element matching a CSS selector, in document order.
	// An invalid selector matches nothing.
	Query(selector string) []Element

	// QueryFirst returns the first element matching selector, or nil.
	QueryFirst(selector string) Element

	// Title extracts the page title from <title> in <head>.
	// Truncates to 200 characters (runes, not bytes).
	Title() string

	// HTML serializes the document element (the outerHTML of <html>).
	HTML() string
}

// Element is a single element node of a Document.
type Element interface {
	// Tag returns the lowercased tag name.
	Tag() string

	// Attr returns the attribute value and whether the attribute is present.
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	// Text returns the concatenated text of all descendant text nodes.
	Text() string
	// SetText replaces every child with a single text node.
	SetText(text string)

	// Remove detaches the element from its parent. Removing twice is a no-op.
	Remove()

	// Parent returns the parent element, or nil at the top of the tree.
	Parent() Element

	// AppendChild creates a <tag> element holding text and appends it as the last child.
	AppendChild(tag, text string) Element

	OuterHTML() string
}
