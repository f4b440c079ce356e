package ocr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses whitespace", in: "hello    world", want: "hello world"},
		{name: "collapses mixed whitespace", in: "hello \t\n world   test", want: "hello world test"},
		{name: "trims ends", in: "   hello   ", want: "hello"},
		{name: "empty input", in: "", want: ""},
		{name: "whitespace only", in: "   \n\t  ", want: ""},
		{name: "pipe becomes I", in: "He||o", want: "HeIIo"},
		{name: "zero becomes O", in: "W0rld", want: "WOrld"},
		{name: "camel case split", in: "camelCaseExample", want: "camel Case Example"},
		{name: "classic OCR confusion", in: "He||o W0r|d", want: "HeIIo WOr Id"},
		{name: "strips disallowed characters", in: "price is €5", want: "priceis 5"},
		{name: "keeps punctuation set", in: `a.b,c!d?e;f:g'h"i(j)k[l]m{n}o-p+q=r@s#t$u%v^w&x*y~z`, want: `a.b,c!d?e;f:g'h"i(j)k[l]m{n}o-p+q=r@s#t$u%v^w&x*y~z`},
		{name: "keeps slashes and angle brackets", in: `a/b\c<d>e` + "`f`", want: `a/b\c<d>e` + "`f`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestCleanTextOrderMatters(t *testing.T) {
	// The 0->O substitution runs before the camelCase split, so a digit after
	// a lowercase letter produces a boundary: "a0Bc" -> "aOBc" -> "a OBc".
	require.Equal(t, "a OBc", CleanText("a0Bc"))

	// Whitespace collapse runs first, so the trim sees a single-space pad.
	require.Equal(t, "x", CleanText(" \n x \t "))
}
