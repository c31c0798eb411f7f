package chat

import (
	"regexp"
	"strings"
)

// videoLinkPattern matches YouTube watch, short, shorts and embed links
var videoLinkPattern = regexp.MustCompile(`(?i)\bhttps?://(?:(?:www\.|m\.|music\.)?youtube\.com/(?:watch\?\S*?v=|shorts/|embed/|live/)|youtu\.be/)[A-Za-z0-9_-]{11}\S*`)

// FindVideoLink returns the first recognized video link in text
func FindVideoLink(text string) (string, bool) {
	link := videoLinkPattern.FindString(text)
	if link == "" {
		return "", false
	}
	return strings.TrimRight(link, ".,;:!?)]}\"'"), true
}

// ExtractVideoLink removes the first video link from text and returns both
func ExtractVideoLink(text string) (link, rest string, ok bool) {
	loc := videoLinkPattern.FindStringIndex(text)
	if loc == nil {
		return "", text, false
	}
	link, _ = FindVideoLink(text[loc[0]:loc[1]])
	// keep trailing punctuation that was trimmed from the link
	head := strings.TrimRight(text[:loc[0]], " \t")
	tail := strings.TrimLeft(text[loc[0]+len(link):], " \t")
	if head != "" && tail != "" && !strings.HasSuffix(head, "\n") && !strings.HasPrefix(tail, "\n") {
		head += " "
	}
	return link, strings.TrimSpace(head + tail), true
}
