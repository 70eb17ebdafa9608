package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"19,800원", 19800, true},
		{"KRW 129,000", 129000, true},
		{" 5000 ", 5000, true},
		{"₩ 1.200", 1200, true},
		{"가격문의", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Linen Shirt", cleanText("\n  Linen\t Shirt  "))
	assert.Equal(t, "", cleanText("   "))
}
