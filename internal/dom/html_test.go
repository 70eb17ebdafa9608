package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<html><head><title> Shop </title></head>
<body class="main list">
  <ul class="prdList">
    <li><a href="/product/1"><img src="/a.jpg" width="200" height="180px"></a><span class="price">10,000원</span></li>
    <li><a href="/product/2"><img src="/b.jpg"></a></li>
  </ul>
</body></html>`

func TestHTMLDocument(t *testing.T) {
	doc, err := ParseString(sampleHTML, "https://shop.example.com/list")
	require.NoError(t, err)

	title, err := doc.Title()
	require.NoError(t, err)
	assert.Equal(t, "Shop", title)
	assert.Equal(t, "https://shop.example.com/list", doc.URL())

	items, err := doc.QueryAll("ul.prdList > li")
	require.NoError(t, err)
	require.Len(t, items, 2)

	imgs, err := items[0].QueryAll("img")
	require.NoError(t, err)
	require.Len(t, imgs, 1)

	src, _ := imgs[0].Attr("src")
	assert.Equal(t, "/a.jpg", src)

	missing, _ := imgs[0].Attr("data-original")
	assert.Empty(t, missing)

	size, _ := imgs[0].Size()
	assert.Equal(t, Size{Width: 200, Height: 180}, size)
	assert.Equal(t, float64(36000), size.Area())

	tag, _ := imgs[0].Tag()
	assert.Equal(t, "img", tag)

	price, err := items[0].QueryAll(`[class*="price"]`)
	require.NoError(t, err)
	require.Len(t, price, 1)
	text, _ := price[0].Text()
	assert.Equal(t, "10,000원", text)
}

func TestHTMLDocumentInvalidSelector(t *testing.T) {
	doc, err := ParseString(sampleHTML, "")
	require.NoError(t, err)

	_, err = doc.QueryAll("li[")
	assert.Error(t, err)
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"300", 300},
		{"300px", 300},
		{" 120 ", 120},
		{"auto", 0},
		{"", 0},
		{"-5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseDimension(tt.input))
		})
	}
}
