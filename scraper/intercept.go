package scraper

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"xscraper/models"
)

// timelinePatterns mark GraphQL endpoints whose bodies carry post records.
// The trailing "graphql" entry is the catch-all for endpoints not listed
// explicitly; profile endpoints are checked first so they never fall
// through to it.
var timelinePatterns = []string{
	"SearchTimeline",
	"UserTweets",
	"UserTweetsAndReplies",
	"TweetDetail",
	"HomeTimeline",
	"HomeLatestTimeline",
	"Likes",
	"Bookmarks",
	"ListLatestTweetsTimeline",
	"graphql",
}

var profilePatterns = []string{
	"UserByScreenName",
	"UserByRestId",
}

// rateLimitErrorCode is the application-level "rate limit exceeded" code the
// target embeds in otherwise-200 GraphQL bodies.
const rateLimitErrorCode = 88

func matchesAny(url string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// capture buffers everything one session intercepts. Response handlers run
// concurrently with the scroll loop, so the buffer and profile slot sit
// behind a mutex.
type capture struct {
	log    zerolog.Logger
	signal *RateLimitSignal

	mu      sync.Mutex
	posts   []models.Post
	profile *models.Profile
}

func newCapture(log zerolog.Logger, signal *RateLimitSignal) *capture {
	return &capture{log: log, signal: signal}
}

// handle processes one observed response. readBody is only invoked for
// responses whose URL matches a known endpoint pattern. Decode and
// extraction failures are swallowed: one malformed response must not abort
// the session.
func (c *capture) handle(status int, url string, readBody func() ([]byte, error)) {
	if status == 429 && (strings.Contains(url, "twitter.com") || strings.Contains(url, "x.com")) {
		if c.signal.Trip() {
			c.log.Warn().Msgf("429 on %s", truncate(url, 80))
		}
		return
	}

	if matchesAny(url, profilePatterns) {
		body, err := readBody()
		if err != nil {
			return
		}
		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			return
		}
		if p := ExtractProfile(data); p != nil {
			c.mu.Lock()
			keep := c.profile == nil
			if keep {
				c.profile = p
			}
			c.mu.Unlock()
			if keep {
				c.log.Info().Msgf("Profile: @%s (%d followers)", p.Handle, p.Followers)
			}
		}
		return
	}

	if !matchesAny(url, timelinePatterns) {
		return
	}
	body, err := readBody()
	if err != nil {
		return
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return
	}
	if m := asMap(data); m != nil {
		for _, e := range asSlice(m["errors"]) {
			if num(asMap(e), "code") == rateLimitErrorCode {
				if c.signal.Trip() {
					c.log.Warn().Msgf("Rate limit code %d", rateLimitErrorCode)
				}
				return
			}
		}
	}
	if posts := ExtractPosts(data); len(posts) > 0 {
		c.mu.Lock()
		c.posts = append(c.posts, posts...)
		c.mu.Unlock()
	}
}

// Count returns the number of buffered posts, duplicates included.
func (c *capture) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.posts)
}

// Posts returns a snapshot of the buffer.
func (c *capture) Posts() []models.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Post, len(c.posts))
	copy(out, c.posts)
	return out
}

// Profile returns the first profile this session observed, if any.
func (c *capture) Profile() *models.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
