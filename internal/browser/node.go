package browser

import (
	"fmt"
	"strings"

	"github.com/maltedev/storefront-crawler/internal/dom"
	"github.com/playwright-community/playwright-go"
)

const sizeScript = `el => {
	const attr = name => parseFloat(el.getAttribute(name)) || 0;
	return {
		width: el.naturalWidth || el.width || el.offsetWidth || attr('width'),
		height: el.naturalHeight || el.height || el.offsetHeight || attr('height'),
	};
}`

type pageDocument struct {
	page playwright.Page
}

func (d *pageDocument) QueryAll(selector string) ([]dom.Node, error) {
	handles, err := d.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return wrapHandles(handles), nil
}

func (d *pageDocument) Attr(string) (string, error) { return "", nil }

func (d *pageDocument) Text() (string, error) {
	return d.page.TextContent("body")
}

func (d *pageDocument) Tag() (string, error) { return "html", nil }

func (d *pageDocument) Size() (dom.Size, error) { return dom.Size{}, nil }

func (d *pageDocument) Title() (string, error) {
	title, err := d.page.Title()
	return strings.TrimSpace(title), err
}

func (d *pageDocument) URL() string { return d.page.URL() }

type elementNode struct {
	handle playwright.ElementHandle
}

func wrapHandles(handles []playwright.ElementHandle) []dom.Node {
	nodes := make([]dom.Node, len(handles))
	for i, h := range handles {
		nodes[i] = elementNode{handle: h}
	}
	return nodes
}

func (n elementNode) QueryAll(selector string) ([]dom.Node, error) {
	handles, err := n.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return wrapHandles(handles), nil
}

func (n elementNode) Attr(name string) (string, error) {
	return n.handle.GetAttribute(name)
}

func (n elementNode) Text() (string, error) {
	return n.handle.TextContent()
}

func (n elementNode) Tag() (string, error) {
	v, err := n.handle.Evaluate(`el => el.tagName.toLowerCase()`)
	if err != nil {
		return "", err
	}
	tag, _ := v.(string)
	return tag, nil
}

func (n elementNode) Size() (dom.Size, error) {
	v, err := n.handle.Evaluate(sizeScript)
	if err != nil {
		return dom.Size{}, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return dom.Size{}, fmt.Errorf("unexpected size result %T", v)
	}
	return dom.Size{Width: toFloat(m["width"]), Height: toFloat(m["height"])}, nil
}

// toFloat converts a number decoded from the driver, which arrives as either
// an int or a float64 depending on its value.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
