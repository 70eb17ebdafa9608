package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// HTMLDocument is an in-memory Document backed by goquery. Image sizes come
// from declared width/height attributes since nothing is rendered.
type HTMLDocument struct {
	doc *goquery.Document
	url string
}

// Parse reads an HTML snapshot of the page located at pageURL.
func Parse(r io.Reader, pageURL string) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &HTMLDocument{doc: doc, url: pageURL}, nil
}

func ParseString(html, pageURL string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(html), pageURL)
}

func (d *HTMLDocument) QueryAll(selector string) ([]Node, error) {
	return queryAll(d.doc.Selection, selector)
}

func (d *HTMLDocument) Attr(name string) (string, error) { return "", nil }

func (d *HTMLDocument) Text() (string, error) {
	return d.doc.Find("body").Text(), nil
}

func (d *HTMLDocument) Tag() (string, error) { return "html", nil }

func (d *HTMLDocument) Size() (Size, error) { return Size{}, nil }

func (d *HTMLDocument) Title() (string, error) {
	return strings.TrimSpace(d.doc.Find("title").First().Text()), nil
}

func (d *HTMLDocument) URL() string { return d.url }

type htmlNode struct {
	sel *goquery.Selection
}

func (n htmlNode) QueryAll(selector string) ([]Node, error) {
	return queryAll(n.sel, selector)
}

func (n htmlNode) Attr(name string) (string, error) {
	v, _ := n.sel.Attr(name)
	return v, nil
}

func (n htmlNode) Text() (string, error) {
	return n.sel.Text(), nil
}

func (n htmlNode) Tag() (string, error) {
	return strings.ToLower(goquery.NodeName(n.sel)), nil
}

func (n htmlNode) Size() (Size, error) {
	w, _ := n.sel.Attr("width")
	h, _ := n.sel.Attr("height")
	return Size{Width: parseDimension(w), Height: parseDimension(h)}, nil
}

func queryAll(sel *goquery.Selection, selector string) ([]Node, error) {
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	found := sel.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, htmlNode{sel: s})
	})
	return nodes, nil
}

// parseDimension accepts "300" and "300px"; anything else is zero.
func parseDimension(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
