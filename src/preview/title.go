package preview

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxTitleLen = 80

// Title names a code block for the preview index. HTML documents use their
// <title> or first heading; everything else is named after its language.
func Title(block CodeBlock) string {
	if KindOf(block.Language) == KindHTML {
		if t := htmlTitle(block.Code); t != "" {
			return t
		}
	}
	switch KindOf(block.Language) {
	case KindScript:
		return "JavaScript preview"
	case KindStyle:
		return "CSS preview"
	}
	if block.Language == "" {
		return "text"
	}
	return block.Language
}

func htmlTitle(doc string) string {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"head > title", "title", "h1"} {
		t := strings.Join(strings.Fields(d.Find(sel).First().Text()), " ")
		if t == "" {
			continue
		}
		if r := []rune(t); len(r) > maxTitleLen {
			t = string(r[:maxTitleLen-1]) + "…"
		}
		return t
	}
	return ""
}
