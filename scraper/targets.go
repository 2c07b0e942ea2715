package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// Sort modes for search-backed targets.
const (
	SortLatest = "Latest"
	SortTop    = "Top"
)

// SearchURL builds a search target for a free-form query. SortLatest maps to
// the live tab, anything else to top.
func SearchURL(query, sort string) string {
	mode := "top"
	if sort == SortLatest {
		mode = "live"
	}
	return fmt.Sprintf("https://x.com/search?q=%s&src=typed_query&f=%s", url.QueryEscape(query), mode)
}

// UserURL builds a profile timeline target, optionally the with-replies tab.
func UserURL(handle string, withReplies bool) string {
	handle = strings.TrimPrefix(handle, "@")
	if withReplies {
		return fmt.Sprintf("https://x.com/%s/with_replies", handle)
	}
	return fmt.Sprintf("https://x.com/%s", handle)
}

// LikesURL builds the likes tab target for a handle.
func LikesURL(handle string) string {
	return fmt.Sprintf("https://x.com/%s/likes", strings.TrimPrefix(handle, "@"))
}

// ThreadURL accepts either a bare numeric post id or a full status URL and
// returns a navigable detail-page target.
func ThreadURL(idOrURL string) string {
	if isAllDigits(idOrURL) {
		return fmt.Sprintf("https://x.com/i/web/status/%s", idOrURL)
	}
	return idOrURL
}

// HashtagURL builds a search target for a hashtag, with or without the
// leading '#'.
func HashtagURL(tag, sort string) string {
	return SearchURL("#"+strings.TrimPrefix(tag, "#"), sort)
}

// HomeURL is the authenticated home timeline.
func HomeURL() string {
	return "https://x.com/home"
}
