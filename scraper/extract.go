package scraper

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"xscraper/models"
)

// ExtractPosts walks a decoded GraphQL payload and collects every real post
// in it. A candidate is any object carrying both a "rest_id" and a "legacy"
// body; it is accepted only if the id is purely numeric and the text is
// non-empty after trimming. Rejected candidates and already-seen ids are not
// emitted, but their children are still walked: quote and repost wrappers
// nest the post they reference, and ghost records (user stubs, URL objects)
// can wrap real ones.
func ExtractPosts(payload any) []models.Post {
	var posts []models.Post
	seen := make(map[string]bool)

	var walk func(node any)
	walk = func(node any) {
		switch n := node.(type) {
		case map[string]any:
			_, hasLegacy := n["legacy"]
			_, hasID := n["rest_id"]
			if hasLegacy && hasID {
				if p, ok := buildPost(n, seen); ok {
					posts = append(posts, p)
				}
			}
			for _, k := range sortedKeys(n) {
				walk(n[k])
			}
		case []any:
			for _, item := range n {
				walk(item)
			}
		}
	}
	walk(payload)
	return posts
}

func buildPost(node map[string]any, seen map[string]bool) (models.Post, bool) {
	id := str(node, "rest_id")
	leg := asMap(node["legacy"])

	raw, ok := leg["full_text"]
	if !ok {
		raw = leg["text"]
	}
	text, _ := raw.(string)
	text = strings.TrimSpace(text)

	if !isAllDigits(id) || text == "" {
		return models.Post{}, false
	}
	if seen[id] {
		return models.Post{}, false
	}
	seen[id] = true

	author := findAuthor(node)
	handle := str(author, "screen_name")

	kind := models.PostOriginal
	switch {
	case leg["retweeted_status_result"] != nil:
		kind = models.PostRepost
	case node["quoted_status_result"] != nil:
		kind = models.PostQuote
	case str(leg, "in_reply_to_status_id_str") != "":
		kind = models.PostReply
	}

	ents := asMap(leg["entities"])
	var hashtags, mentions, urls []string
	for _, h := range asSlice(ents["hashtags"]) {
		hashtags = append(hashtags, str(asMap(h), "text"))
	}
	for _, m := range asSlice(ents["user_mentions"]) {
		mentions = append(mentions, str(asMap(m), "screen_name"))
	}
	for _, u := range asSlice(ents["urls"]) {
		expanded := str(asMap(u), "expanded_url")
		if !strings.HasPrefix(expanded, "https://twitter.com/i/web") {
			urls = append(urls, expanded)
		}
	}
	var media []models.Media
	for _, m := range asSlice(ents["media"]) {
		mm := asMap(m)
		media = append(media, models.Media{Type: str(mm, "type"), URL: str(mm, "media_url_https")})
	}

	permalink := "https://x.com/i/status/" + id
	if handle != "" {
		permalink = "https://x.com/" + handle + "/status/" + id
	}

	return models.Post{
		ID:              id,
		Text:            decodeEntities(text),
		Lang:            str(leg, "lang"),
		CreatedAt:       normalizeCreatedAt(str(leg, "created_at")),
		Kind:            kind,
		ReplyToID:       str(leg, "in_reply_to_status_id_str"),
		ReplyToHandle:   str(leg, "in_reply_to_screen_name"),
		AuthorHandle:    handle,
		AuthorName:      str(author, "name"),
		AuthorID:        str(author, "id_str"),
		AuthorFollowers: num(author, "followers_count"),
		AuthorFollowing: num(author, "friends_count"),
		AuthorVerified:  boolField(author, "verified") || boolField(author, "is_blue_verified"),
		Likes:           num(leg, "favorite_count"),
		Reposts:         num(leg, "retweet_count"),
		Replies:         num(leg, "reply_count"),
		Quotes:          num(leg, "quote_count"),
		Bookmarks:       num(leg, "bookmark_count"),
		Views:           num(asMap(node["views"]), "count"),
		Hashtags:        hashtags,
		Mentions:        mentions,
		URLs:            urls,
		Media:           media,
		Permalink:       permalink,
		CapturedAt:      time.Now(),
	}, true
}

// findAuthor resolves the author object of a candidate post. Different
// endpoints nest the author at different depths, so a fixed list of known
// paths is tried first, then a depth-bounded scan for anything shaped like
// a user record.
func findAuthor(node map[string]any) map[string]any {
	candidates := []map[string]any{
		digMap(node, "core", "user_results", "result", "legacy"),
		digMap(node, "tweet", "core", "user_results", "result", "legacy"),
		digMap(node, "user_results", "result", "legacy"),
		digMap(node, "core", "user_results", "result", "core", "legacy"),
		digMap(node, "user", "legacy"),
	}
	for _, c := range candidates {
		if str(c, "screen_name") != "" {
			return c
		}
	}
	return deepFindUser(node, 0)
}

// deepFindUser is the last-resort author scan: any sub-object with both a
// handle and a display name that is not itself a post body. Capped at depth
// 6 so a pathological payload cannot blow the stack.
func deepFindUser(node any, depth int) map[string]any {
	if depth > 6 {
		return nil
	}
	switch n := node.(type) {
	case map[string]any:
		if str(n, "screen_name") != "" && str(n, "name") != "" && str(n, "full_text") == "" {
			return n
		}
		for _, k := range sortedKeys(n) {
			if found := deepFindUser(n[k], depth+1); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range n {
			if found := deepFindUser(item, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

// ExtractProfile walks a decoded payload for the first object whose legacy
// body has a handle but no post text, and builds a profile snapshot from it.
func ExtractProfile(payload any) *models.Profile {
	switch n := payload.(type) {
	case map[string]any:
		leg := asMap(n["legacy"])
		if str(leg, "screen_name") != "" && str(leg, "full_text") == "" {
			return buildProfile(n, leg)
		}
		for _, k := range sortedKeys(n) {
			if p := ExtractProfile(n[k]); p != nil {
				return p
			}
		}
	case []any:
		for _, item := range n {
			if p := ExtractProfile(item); p != nil {
				return p
			}
		}
	}
	return nil
}

func buildProfile(node, leg map[string]any) *models.Profile {
	pinned := ""
	if ids := asSlice(leg["pinned_tweet_ids_str"]); len(ids) > 0 {
		pinned, _ = ids[0].(string)
	}
	return &models.Profile{
		Handle:       str(leg, "screen_name"),
		Name:         str(leg, "name"),
		ID:           str(node, "rest_id"),
		Bio:          str(leg, "description"),
		Location:     str(leg, "location"),
		Website:      str(leg, "url"),
		Followers:    num(leg, "followers_count"),
		Following:    num(leg, "friends_count"),
		Listed:       num(leg, "listed_count"),
		Posts:        num(leg, "statuses_count"),
		Verified:     boolField(leg, "verified") || boolField(node, "is_blue_verified"),
		CreatedAt:    normalizeCreatedAt(str(leg, "created_at")),
		AvatarURL:    str(leg, "profile_image_url_https"),
		BannerURL:    str(leg, "profile_banner_url"),
		PinnedPostID: pinned,
		CapturedAt:   time.Now(),
	}
}

// normalizeCreatedAt rewrites the source's ruby-style timestamp
// ("Mon Jan 15 14:22:01 +0000 2024") as UTC RFC3339, whose byte order is
// chronological order. Values that do not parse pass through unchanged.
func normalizeCreatedAt(s string) string {
	t, err := time.Parse(time.RubyDate, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(time.RFC3339)
}

// decodeEntities undoes the four basic HTML entities the source escapes in
// post text.
func decodeEntities(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return strings.ReplaceAll(s, "&quot;", `"`)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// num reads a numeric field that the source serializes either as a JSON
// number or as a digit string (view counts arrive as strings).
func num(m map[string]any, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func boolField(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func digMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		m = asMap(m[k])
		if m == nil {
			return nil
		}
	}
	return m
}

// sortedKeys gives walks a stable order, so repeated extraction of the same
// payload yields the same post order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
