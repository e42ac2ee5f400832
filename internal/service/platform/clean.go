package platform

import (
	"regexp"
	"strings"
)

var (
	hashtagPattern   = regexp.MustCompile(`#\S*`)
	timestampPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
	urlPattern       = regexp.MustCompile(`https?://\S+`)
)

// stripHashtags removes hashtags and collapses the remaining whitespace.
func stripHashtags(s string) string {
	return collapseWhitespace(hashtagPattern.ReplaceAllString(s, " "))
}

// stripTimestamps removes chapter markers like "1:23" or "01:02:03".
func stripTimestamps(s string) string {
	return collapseWhitespace(timestampPattern.ReplaceAllString(s, " "))
}

// stripURLs removes embedded links.
func stripURLs(s string) string {
	return collapseWhitespace(urlPattern.ReplaceAllString(s, " "))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
