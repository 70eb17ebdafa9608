// Package sites keeps the registry of storefronts the crawler knows about.
package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/maltedev/storefront-crawler/internal/urlnorm"
)

var (
	ErrNotFound   = errors.New("site not found")
	ErrDuplicate  = errors.New("site already registered")
	ErrInvalidURL = errors.New("invalid site url")
)

type Site struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	BaseURL string `json:"baseUrl"`
}

// Store persists sites in insertion order.
type Store interface {
	List(ctx context.Context) ([]Site, error)
	Get(ctx context.Context, id string) (Site, error)
	Add(ctx context.Context, site Site) error
	Delete(ctx context.Context, id string) error
}

// NewSite builds a site from a listing URL. The name is the host without
// "www." and the base URL is the origin.
func NewSite(rawURL string) (Site, error) {
	u, err := urlnorm.ParseAbsolute(rawURL)
	if err != nil {
		return Site{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	return Site{
		ID:      uuid.NewString(),
		Name:    strings.TrimPrefix(u.Hostname(), "www."),
		URL:     u.String(),
		BaseURL: u.Scheme + "://" + u.Host,
	}, nil
}

// DefaultSites seeds an empty registry.
func DefaultSites() []Site {
	return []Site{
		{
			ID:      "outofline",
			Name:    "Out of Line",
			URL:     "https://outofline.co.kr/product/list.html?cate_no=24",
			BaseURL: "https://outofline.co.kr",
		},
	}
}
