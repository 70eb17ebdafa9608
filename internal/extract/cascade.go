package extract

import (
	"fmt"

	"github.com/maltedev/storefront-crawler/internal/dom"
)

// Mode records which stage of the cascade produced the products.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeListItems  Mode = "list-items"
	ModeAnchors    Mode = "anchors"
	ModeNone       Mode = "none"
)

// LocateItems runs rules in order and returns the items of the first rule
// that matches at least one item. Later rules are not tried. counts holds
// the number of items each tried rule produced, keyed by container selector.
// An empty result is not an error.
func LocateItems(doc dom.Node, rules []SelectorRule) (items []dom.Node, matched string, counts map[string]int, err error) {
	counts = make(map[string]int, len(rules))

	for _, rule := range rules {
		found, err := applyRule(doc, rule)
		if err != nil {
			return nil, "", counts, fmt.Errorf("failed to apply rule %s: %w", rule.Name, err)
		}
		counts[rule.ContainerSelector] = len(found)
		if len(found) > 0 {
			return found, rule.Name, counts, nil
		}
	}

	return nil, "", counts, nil
}

func applyRule(doc dom.Node, rule SelectorRule) ([]dom.Node, error) {
	containers, err := doc.QueryAll(rule.ContainerSelector)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, nil
	}

	if !rule.Scoped {
		return doc.QueryAll(rule.ItemSelector)
	}

	var items []dom.Node
	for _, c := range containers {
		found, err := c.QueryAll(rule.ItemSelector)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}
	return items, nil
}

// listItemCandidates is the catch-all stage: every li holding a product link
// that wraps an image. An li whose nested li elements qualify on their own is
// a grouping wrapper and is skipped in favor of the inner items.
func listItemCandidates(doc dom.Node) ([]dom.Node, error) {
	lis, err := doc.QueryAll("li")
	if err != nil {
		return nil, err
	}

	var items []dom.Node
	for _, li := range lis {
		if !isListItemCandidate(li) || hasNestedCandidate(li) {
			continue
		}
		items = append(items, li)
	}
	return items, nil
}

func isListItemCandidate(li dom.Node) bool {
	anchor, _, err := productAnchor(li)
	return err == nil && anchor != nil
}

func hasNestedCandidate(li dom.Node) bool {
	nested, err := li.QueryAll("li")
	if err != nil {
		return false
	}
	for _, n := range nested {
		if isListItemCandidate(n) {
			return true
		}
	}
	return false
}

// anchorCandidates is the last resort: product links that wrap an image.
func anchorCandidates(doc dom.Node) ([]dom.Node, error) {
	anchors, err := doc.QueryAll("a[href]")
	if err != nil {
		return nil, err
	}

	var items []dom.Node
	for _, a := range anchors {
		href, _ := a.Attr("href")
		if !usableHref(href) || !IsProductPath(href) {
			continue
		}
		imgs, err := a.QueryAll("img")
		if err != nil || len(imgs) == 0 {
			continue
		}
		items = append(items, a)
	}
	return items, nil
}

// productAnchor returns the first product link under n that wraps an image,
// with its href. It returns a nil node when there is none.
func productAnchor(n dom.Node) (dom.Node, string, error) {
	anchors, err := n.QueryAll("a[href]")
	if err != nil {
		return nil, "", err
	}
	for _, a := range anchors {
		href, err := a.Attr("href")
		if err != nil {
			return nil, "", err
		}
		if !usableHref(href) || !IsProductPath(href) {
			continue
		}
		imgs, err := a.QueryAll("img")
		if err != nil {
			return nil, "", err
		}
		if len(imgs) > 0 {
			return a, href, nil
		}
	}
	return nil, "", nil
}
