package htmlutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// GetText returns the concatenation of every text node under `node`.
func GetText(node *html.Node) string {
	var out strings.Builder
	writeText(node, &out)
	return out.String()
}

func writeText(node *html.Node, out *strings.Builder) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		out.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(child, out)
	}
}

var innerWhitespace = regexp.MustCompile(`\s{2,}`)

// printable maps every unicode space (&nbsp; shows up a lot) to an ascii space and drops
// anything that is not printable.
func printable(r rune) rune {
	switch {
	case unicode.IsSpace(r):
		return ' '
	case unicode.IsPrint(r):
		return r
	default:
		return -1
	}
}

// Normalize strips non printable characters, trims the ends and collapses inner whitespace.
func Normalize(text string) string {
	text = strings.TrimSpace(strings.Map(printable, text))
	return innerWhitespace.ReplaceAllString(text, " ")
}

// NormalizedText is GetText followed by Normalize.
func NormalizedText(node *html.Node) string {
	return Normalize(GetText(node))
}
