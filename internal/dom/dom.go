// Package dom defines the narrow, read-only view of a rendered page that the
// product extractors work against. The browser adapter implements it over live
// element handles; HTMLDocument implements it over a parsed HTML snapshot.
package dom

// Node is a single element (or the document root) that can be queried.
type Node interface {
	// QueryAll returns the descendants matching a CSS selector in document order.
	QueryAll(selector string) ([]Node, error)
	// Attr returns the attribute value, or "" when the attribute is absent.
	Attr(name string) (string, error)
	// Text returns the element's text content.
	Text() (string, error)
	// Tag returns the lower-cased tag name.
	Tag() (string, error)
	// Size returns the element's pixel size. For images this is the natural
	// size when known, falling back to the rendered or declared size.
	Size() (Size, error)
}

// Document is the root of a rendered page.
type Document interface {
	Node
	Title() (string, error)
	URL() string
}

type Size struct {
	Width  float64
	Height float64
}

func (s Size) Area() float64 {
	return s.Width * s.Height
}
