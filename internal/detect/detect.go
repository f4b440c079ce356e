/**
 * Image candidate detection for the Extractext page context
 *
 * Heuristically ranks document images by how likely they are to contain
 * readable text. Detection is a pure function of the image attributes and the
 * surrounding page; presentation (banners, highlighting) is the caller's job.
 */

package detect

import (
	"regexp"
	"sort"
	"strings"
)

// ImageRef identifies one document image. Produced by scanning, read-only
// downstream; the ID is a stable handle for later overlay attachment.
type ImageRef struct {
	ID            string
	Src           string
	Alt           string
	Class         string
	NaturalWidth  int
	NaturalHeight int
	DisplayWidth  int
	DisplayHeight int
	Complete      bool
}

// PageInfo carries the page-level context the heuristics consult.
type PageInfo struct {
	URL           string
	HasCodeBlocks bool
}

// ImageCandidate pairs an image with its derived confidence score.
// Confidence is recomputed per scan, never persisted.
type ImageCandidate struct {
	Image      ImageRef
	Confidence int
}

// skipPatterns excludes common non-text imagery regardless of other signals.
var skipPatterns = []string{
	"avatar", "logo", "icon", "profile", "thumb", "banner",
	"ad-", "ads/", "tracking", "pixel", "badge",
}

// textIndicators suggest the image is a capture of rendered text.
var textIndicators = []string{
	"screenshot", "code", "snippet", "terminal", "console",
	"error", "output", "result", "example", "demo",
}

var tutorialPagePattern = regexp.MustCompile(`(?i)tutorial|guide|docs|documentation|stackoverflow|github`)

// Detect scans the given images and returns candidates sorted by confidence
// descending. Ties keep input order. Pure: no side effects.
func Detect(page PageInfo, images []ImageRef) []ImageCandidate {
	var candidates []ImageCandidate

	for _, img := range images {
		if !IsLikelyTextImage(page, img) {
			continue
		}
		candidates = append(candidates, ImageCandidate{
			Image:      img,
			Confidence: CalculateConfidence(img),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return candidates
}

// IsLikelyTextImage reports whether the image passes the inclusion heuristics.
// A failing check excludes the image; it is never an error.
func IsLikelyTextImage(page PageInfo, img ImageRef) bool {
	// Skip if too small
	if img.NaturalWidth < 100 || img.NaturalHeight < 50 {
		return false
	}

	// Skip if not loaded yet
	if !img.Complete || img.NaturalWidth == 0 {
		return false
	}

	src := strings.ToLower(img.Src)
	alt := strings.ToLower(img.Alt)
	class := strings.ToLower(img.Class)

	for _, pattern := range skipPatterns {
		if strings.Contains(src, pattern) || strings.Contains(alt, pattern) || strings.Contains(class, pattern) {
			return false
		}
	}

	// Favor screenshot-like dimensions
	ratio := float64(img.NaturalWidth) / float64(img.NaturalHeight)
	if ratio <= 0.5 || ratio >= 6 {
		return false
	}

	hasTextIndicator := false
	for _, indicator := range textIndicators {
		if strings.Contains(src, indicator) || strings.Contains(alt, indicator) || strings.Contains(class, indicator) {
			hasTextIndicator = true
			break
		}
	}

	isTutorialPage := tutorialPagePattern.MatchString(page.URL)

	return hasTextIndicator || page.HasCodeBlocks || isTutorialPage
}

// CalculateConfidence scores the likelihood of a successful extraction.
// Base 50, additive bonuses, capped at 100. Deterministic per ImageRef.
func CalculateConfidence(img ImageRef) int {
	confidence := 50

	src := strings.ToLower(img.Src)
	alt := strings.ToLower(img.Alt)

	// Size bonus: larger images typically carry more readable text
	area := img.NaturalWidth * img.NaturalHeight
	if area > 500000 {
		confidence += 20
	} else if area > 100000 {
		confidence += 10
	}

	// Aspect ratio bonus for wide rectangles
	ratio := float64(img.NaturalWidth) / float64(img.NaturalHeight)
	if ratio > 1.5 && ratio < 4 {
		confidence += 15
	}

	if strings.Contains(src, "code") || strings.Contains(alt, "code") {
		confidence += 25
	}
	if strings.Contains(src, "screenshot") {
		confidence += 20
	}
	if strings.Contains(src, "terminal") || strings.Contains(src, "console") {
		confidence += 20
	}

	// PNG is the common screenshot format
	if strings.Contains(src, ".png") {
		confidence += 10
	}

	if confidence > 100 {
		confidence = 100
	}

	return confidence
}
