package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/maltedev/storefront-crawler/internal/crawler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `<html><head><title>Shop</title></head><body>
<ul class="prdList">
  <li><a href="/product/a/1/"><img src="/web/product/1.jpg"></a><span class="price">19,800원</span></li>
  <li><a href="/product/b/2/"><img src="/web/product/2.jpg"></a><span class="price">29,800원</span></li>
</ul></body></html>`

func TestExtractFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	listing := filepath.Join(dir, "listing.html")
	require.NoError(t, os.WriteFile(listing, []byte(snapshot), 0o644))
	empty := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(empty, []byte(`<html><body></body></html>`), 0o644))

	t.Run("extracts products", func(t *testing.T) {
		result, err := extractFile(listing, "", "https://shop.example.com", 1, logger)
		require.NoError(t, err)
		require.Len(t, result.Products, 1)
		assert.Equal(t, "https://shop.example.com/product/a/1/", result.Products[0].URL)
		assert.Equal(t, 19800, *result.Products[0].Price)
	})

	t.Run("no products", func(t *testing.T) {
		_, err := extractFile(empty, "", "https://shop.example.com", 20, logger)
		assert.Equal(t, crawler.KindNoProductsFound, crawler.KindOf(err))
	})

	t.Run("missing base", func(t *testing.T) {
		_, err := extractFile(listing, "", "", 20, logger)
		assert.Equal(t, crawler.KindInvalidInput, crawler.KindOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := extractFile(filepath.Join(dir, "nope.html"), "", "https://shop.example.com", 20, logger)
		assert.Equal(t, crawler.KindInvalidInput, crawler.KindOf(err))
	})
}
