package ocr

import (
	"regexp"
	"strings"
)

var (
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	camelBoundary   = regexp.MustCompile(`([a-z])([A-Z])`)
	disallowedChars = regexp.MustCompile("[^\\w\\s.,!?;:'\"()\\[\\]{}+=@#$%^&*~`<>/\\\\-]")
)

// CleanText normalizes raw recognized text. The steps run in a fixed order,
// each feeding the next: collapse whitespace, trim, substitute the classic
// tesseract confusions (| for I, 0 for O), split fused camelCase words, then
// strip anything outside the allowed character set.
//
// The 0->O and |->I substitutions are deliberately blunt and will rewrite
// legitimate digits and pipes; they are applied unscoped to match the observed
// recall on screenshot text. Empty input cleans to "".
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}

	text := whitespaceRuns.ReplaceAllString(raw, " ")
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "|", "I")
	text = strings.ReplaceAll(text, "0", "O")
	text = camelBoundary.ReplaceAllString(text, "$1 $2")
	text = disallowedChars.ReplaceAllString(text, "")

	return text
}
