package extract

import (
	"strings"

	"github.com/maltedev/storefront-crawler/internal/dom"
)

// MinImageDimension is the smallest width or height a product photo may have.
const MinImageDimension = 100

// Band bounds the width/height ratio of an acceptable product photo.
type Band struct {
	MinRatio float64
	MaxRatio float64
}

var (
	// Loose admits portrait and landscape shots.
	Loose = Band{MinRatio: 0.5, MaxRatio: 2.0}
	// NearSquare admits roughly square shots only.
	NearSquare = Band{MinRatio: 0.7, MaxRatio: 1.3}
)

func (b Band) Contains(ratio float64) bool {
	return ratio >= b.MinRatio && ratio <= b.MaxRatio
}

type ImageCandidate struct {
	Src          string
	DataOriginal string
	Size         dom.Size
}

// URL is the address the browser loaded: src, else data-original.
func (c ImageCandidate) URL() string {
	if c.Src != "" {
		return c.Src
	}
	return c.DataOriginal
}

// Thumbnail is the address reported for the product. Lazy loaders keep the
// full image in data-original and a placeholder in src.
func (c ImageCandidate) Thumbnail() string {
	if c.DataOriginal != "" {
		return c.DataOriginal
	}
	return c.Src
}

// PickBestImage returns the largest candidate that passes the keyword, size
// and ratio filters. The first candidate wins ties. ok is false when every
// candidate was excluded.
func PickBestImage(candidates []ImageCandidate, band Band) (best ImageCandidate, ok bool) {
	var bestArea float64
	for _, c := range candidates {
		if !qualifies(c, band) {
			continue
		}
		if area := c.Size.Area(); !ok || area > bestArea {
			best, bestArea, ok = c, area, true
		}
	}
	return best, ok
}

func qualifies(c ImageCandidate, band Band) bool {
	u := c.Thumbnail()
	if !usableImage(u) || IsExcludedImage(u) {
		return false
	}
	w, h := c.Size.Width, c.Size.Height
	if w < MinImageDimension || h < MinImageDimension {
		return false
	}
	return band.Contains(w / h)
}

// imageCandidates collects every img under n with its measured size.
func imageCandidates(n dom.Node) ([]ImageCandidate, error) {
	imgs, err := n.QueryAll("img")
	if err != nil {
		return nil, err
	}

	candidates := make([]ImageCandidate, 0, len(imgs))
	for _, img := range imgs {
		src, err := img.Attr("src")
		if err != nil {
			return nil, err
		}
		original, err := img.Attr("data-original")
		if err != nil {
			return nil, err
		}
		size, err := img.Size()
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, ImageCandidate{
			Src:          strings.TrimSpace(src),
			DataOriginal: strings.TrimSpace(original),
			Size:         size,
		})
	}
	return candidates, nil
}
