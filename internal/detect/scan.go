package detect

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// codeBlockClasses mark page structure that often surrounds text screenshots.
var codeBlockClasses = []string{"highlight", "code-block", "syntax"}

// ScanHTML walks an HTML document and collects image references plus the page
// context the detector heuristics need. Images scanned from static markup have
// no live layout, so natural size falls back to the width/height attributes and
// display size defaults to natural size.
func ScanHTML(r io.Reader, pageURL string) ([]ImageRef, PageInfo, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("parse document: %w", err)
	}

	page := PageInfo{URL: pageURL}
	var images []ImageRef
	seq := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img":
				img := imageFromNode(n, seq)
				images = append(images, img)
				seq++
			case "pre", "code":
				page.HasCodeBlocks = true
			default:
				if class := attrValue(n, "class"); class != "" {
					lower := strings.ToLower(class)
					for _, marker := range codeBlockClasses {
						if strings.Contains(lower, marker) {
							page.HasCodeBlocks = true
							break
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return images, page, nil
}

func imageFromNode(n *html.Node, seq int) ImageRef {
	w := intAttr(n, "width")
	h := intAttr(n, "height")

	img := ImageRef{
		ID:            fmt.Sprintf("img-%d", seq),
		Src:           attrValue(n, "src"),
		Alt:           attrValue(n, "alt"),
		Class:         attrValue(n, "class"),
		NaturalWidth:  w,
		NaturalHeight: h,
		DisplayWidth:  w,
		DisplayHeight: h,
		// Static markup carries no load state; assume loaded when sized.
		Complete: w > 0 && h > 0,
	}
	return img
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func intAttr(n *html.Node, name string) int {
	v, err := strconv.Atoi(strings.TrimSuffix(attrValue(n, name), "px"))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
