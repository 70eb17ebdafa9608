package extract

import (
	"regexp"
	"strings"
)

// ExcludedImageKeywords mark image URLs that belong to page chrome rather
// than product photos. Matching is case-insensitive.
var ExcludedImageKeywords = []string{
	"logo", "btn", "button", "icon", "banner", "ad_", "nav_", "menu",
	"cart", "search", "close", "prev", "next", "top", "bottom", "left",
	"right", "share", "sns", "social", "kakao", "naver", "facebook",
	"instagram", "youtube", "twitter", "header", "footer", "background",
	"bg_", "popup", "loading", "spinner", "arrow", "dot", "slide", "blank",
	"empty",
}

// ProductPathKeywords are path fragments that indicate a product detail
// page or a product image directory.
var ProductPathKeywords = []string{
	"/product/", "/goods/", "/item/", "/prod/", "/products/",
	"/goods_images/", "/item_images/", "/product_images/",
	"/shop/", "/shopping/", "/catalog/",
}

var productIDPattern = regexp.MustCompile(`/[Pp]\d+`)

// ListingPathMarkers identify a URL that already points at a product list.
var ListingPathMarkers = []string{"product/list", "goods/list", "items/list"}

// CategoryMarkers make a listing link win over longer candidates.
var CategoryMarkers = []string{"cate_no", "category"}

var listingLinkMarkers = append([]string{"category", "cate_no", "list.html"}, ListingPathMarkers...)

// IsProductPath reports whether href looks like it leads to a product.
func IsProductPath(href string) bool {
	if containsAny(href, ProductPathKeywords) {
		return true
	}
	return productIDPattern.MatchString(href)
}

// IsExcludedImage reports whether an image URL names a UI asset.
func IsExcludedImage(imageURL string) bool {
	return containsAny(strings.ToLower(imageURL), ExcludedImageKeywords)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
