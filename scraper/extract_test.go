package scraper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"xscraper/models"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func decodeFixture(t *testing.T, name string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(loadFixture(t, name), &v); err != nil {
		t.Fatalf("failed to decode fixture %s: %v", name, err)
	}
	return v
}

func mustDecode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return v
}

func TestExtractPosts_SearchTimeline(t *testing.T) {
	posts := ExtractPosts(decodeFixture(t, "search_timeline.json"))

	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	p := posts[0]
	if p.ID != "1879412345678901234" {
		t.Fatalf("unexpected id %s", p.ID)
	}
	want := "Benchmarks & pprof traces for the rewritten scheduler > old one #golang @rob_pike https://t.co/x1"
	if p.Text != want {
		t.Fatalf("entities not decoded: %q", p.Text)
	}
	if p.CreatedAt != "2024-01-15T14:22:01Z" {
		t.Fatalf("created_at not normalized: %q", p.CreatedAt)
	}
	if p.Kind != models.PostOriginal {
		t.Fatalf("expected original, got %s", p.Kind)
	}
	if p.AuthorHandle != "gopherdev" || p.AuthorName != "Gopher Dev" || p.AuthorID != "44196397" {
		t.Fatalf("author not resolved: %s / %s / %s", p.AuthorHandle, p.AuthorName, p.AuthorID)
	}
	if p.AuthorFollowers != 15200 || p.AuthorFollowing != 310 {
		t.Fatalf("author counts wrong: %d / %d", p.AuthorFollowers, p.AuthorFollowing)
	}
	// is_blue_verified lives on the user result node, not on the legacy
	// object the author paths return, so it does not mark the author.
	if p.AuthorVerified {
		t.Fatal("author should not be verified from legacy fields")
	}
	if p.Likes != 321 || p.Reposts != 48 || p.Replies != 12 || p.Quotes != 3 || p.Bookmarks != 27 {
		t.Fatalf("engagement counts wrong: %d %d %d %d %d", p.Likes, p.Reposts, p.Replies, p.Quotes, p.Bookmarks)
	}
	if p.Views != 48213 {
		t.Fatalf("string view count not coerced: %d", p.Views)
	}
	if p.Lang != "en" {
		t.Fatalf("unexpected lang %q", p.Lang)
	}
	if len(p.Hashtags) != 1 || p.Hashtags[0] != "golang" {
		t.Fatalf("unexpected hashtags %v", p.Hashtags)
	}
	if len(p.Mentions) != 1 || p.Mentions[0] != "rob_pike" {
		t.Fatalf("unexpected mentions %v", p.Mentions)
	}
	if len(p.URLs) != 1 || p.URLs[0] != "https://go.dev/blog/sched" {
		t.Fatalf("self-referential URL not filtered: %v", p.URLs)
	}
	if len(p.Media) != 1 || p.Media[0].Type != "photo" || p.Media[0].URL != "https://pbs.twimg.com/media/GDx91hQWsAA.jpg" {
		t.Fatalf("unexpected media %v", p.Media)
	}
	if p.Permalink != "https://x.com/gopherdev/status/1879412345678901234" {
		t.Fatalf("unexpected permalink %s", p.Permalink)
	}

	reply := posts[1]
	if reply.Kind != models.PostReply {
		t.Fatalf("expected reply, got %s", reply.Kind)
	}
	if reply.ReplyToID != "1879000000000000001" || reply.ReplyToHandle != "rsc" {
		t.Fatalf("reply fields wrong: %s / %s", reply.ReplyToID, reply.ReplyToHandle)
	}
	if reply.Views != 1733 {
		t.Fatalf("numeric view count wrong: %d", reply.Views)
	}
	if len(reply.Hashtags) != 0 || len(reply.Media) != 0 {
		t.Fatalf("absent entities should stay empty: %v %v", reply.Hashtags, reply.Media)
	}
}

func TestExtractPosts_GhostRecordsSkipped(t *testing.T) {
	posts := ExtractPosts(decodeFixture(t, "search_timeline.json"))
	for _, p := range posts {
		if p.ID == "https://t.co/9HqzPqkdeW" {
			t.Fatal("link preview stub was emitted")
		}
		if p.ID == "1879555000000000000" {
			t.Fatal("blank-text placeholder was emitted")
		}
		if !isAllDigits(p.ID) {
			t.Fatalf("non-numeric id emitted: %s", p.ID)
		}
		if p.Text == "" {
			t.Fatalf("empty text emitted for %s", p.ID)
		}
	}
}

func TestExtractPosts_NestedQuoteEmitted(t *testing.T) {
	posts := ExtractPosts(decodeFixture(t, "quote_wrapper.json"))

	if len(posts) != 1 {
		t.Fatalf("expected only the nested quoted post, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != "1880100200300400999" {
		t.Fatalf("unexpected id %s", p.ID)
	}
	if p.Kind != models.PostOriginal {
		t.Fatalf("nested quoted post should be original, got %s", p.Kind)
	}
	if p.AuthorHandle != "iovec" {
		t.Fatalf("unexpected author %s", p.AuthorHandle)
	}
}

func TestExtractPosts_RepostBeatsReply(t *testing.T) {
	posts := ExtractPosts(decodeFixture(t, "repost.json"))

	if len(posts) != 2 {
		t.Fatalf("expected wrapper and nested original, got %d", len(posts))
	}
	if posts[0].ID != "1881222333444555666" {
		t.Fatalf("unexpected first id %s", posts[0].ID)
	}
	if posts[0].Kind != models.PostRepost {
		t.Fatalf("candidate with both repost and reply markers must classify repost, got %s", posts[0].Kind)
	}
	if posts[1].ID != "1880100200300400999" || posts[1].Kind != models.PostOriginal {
		t.Fatalf("nested original wrong: %s / %s", posts[1].ID, posts[1].Kind)
	}
}

func TestExtractPosts_DuplicateChildrenStillWalked(t *testing.T) {
	payload := mustDecode(t, `[
		{"rest_id": "1001001", "legacy": {"full_text": "first copy", "created_at": "Mon Jan 01 00:00:00 +0000 2024"}},
		{"rest_id": "1001001", "legacy": {
			"full_text": "second copy",
			"retweeted_status_result": {"result": {
				"rest_id": "1001002",
				"legacy": {"full_text": "nested under the duplicate"}
			}}
		}}
	]`)

	posts := ExtractPosts(payload)
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "1001001" || posts[0].Text != "first copy" {
		t.Fatalf("first occurrence must win: %s %q", posts[0].ID, posts[0].Text)
	}
	if posts[1].ID != "1001002" {
		t.Fatalf("nested post under duplicate not emitted: %s", posts[1].ID)
	}
}

func TestNormalizeCreatedAt(t *testing.T) {
	if got := normalizeCreatedAt("Mon Jan 01 00:00:00 +0000 2024"); got != "2024-01-01T00:00:00Z" {
		t.Fatalf("ruby date not rewritten: %q", got)
	}
	if got := normalizeCreatedAt("not a timestamp"); got != "not a timestamp" {
		t.Fatalf("unparseable value must pass through, got %q", got)
	}
	if got := normalizeCreatedAt(""); got != "" {
		t.Fatalf("empty value must stay empty, got %q", got)
	}
}

func TestFindAuthor_DeepScanWithinBound(t *testing.T) {
	payload := mustDecode(t, `{
		"rest_id": "2002002",
		"legacy": {"full_text": "author hides in an unknown wrapper"},
		"item": {"details": {"user_info": {
			"screen_name": "hidden_author",
			"name": "Hidden Author",
			"followers_count": 7
		}}}
	}`)

	posts := ExtractPosts(payload)
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].AuthorHandle != "hidden_author" {
		t.Fatalf("deep scan missed author: %q", posts[0].AuthorHandle)
	}
	if posts[0].Permalink != "https://x.com/hidden_author/status/2002002" {
		t.Fatalf("unexpected permalink %s", posts[0].Permalink)
	}
}

func TestFindAuthor_DeepScanDepthCapped(t *testing.T) {
	payload := mustDecode(t, `{
		"rest_id": "3003003",
		"legacy": {"full_text": "author buried too deep"},
		"l1": {"l2": {"l3": {"l4": {"l5": {"l6": {"l7": {
			"screen_name": "too_deep",
			"name": "Too Deep"
		}}}}}}}
	}`)

	posts := ExtractPosts(payload)
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].AuthorHandle != "" {
		t.Fatalf("scan should stop at depth 6, found %q", posts[0].AuthorHandle)
	}
	if posts[0].Permalink != "https://x.com/i/status/3003003" {
		t.Fatalf("expected identifier-only permalink, got %s", posts[0].Permalink)
	}
}

func TestExtractProfile_UserEndpoint(t *testing.T) {
	payload := decodeFixture(t, "user_profile.json")

	profile := ExtractProfile(payload)
	if profile == nil {
		t.Fatal("no profile extracted")
	}
	if profile.Handle != "gopherdev" || profile.Name != "Gopher Dev" || profile.ID != "44196397" {
		t.Fatalf("identity wrong: %s / %s / %s", profile.Handle, profile.Name, profile.ID)
	}
	if profile.Bio != "runtime and scheduler notes, mostly" {
		t.Fatalf("unexpected bio %q", profile.Bio)
	}
	if profile.Location != "Waterloo, ON" || profile.Website != "https://t.co/Ab3dEv" {
		t.Fatalf("location/website wrong: %s / %s", profile.Location, profile.Website)
	}
	if profile.Followers != 15200 || profile.Following != 310 || profile.Listed != 96 || profile.Posts != 8421 {
		t.Fatalf("counts wrong: %d %d %d %d", profile.Followers, profile.Following, profile.Listed, profile.Posts)
	}
	// legacy.verified is false but the node-level blue check marks it.
	if !profile.Verified {
		t.Fatal("blue verification not picked up from the result node")
	}
	if profile.PinnedPostID != "1850000000000000001" {
		t.Fatalf("unexpected pinned id %s", profile.PinnedPostID)
	}
	if profile.AvatarURL == "" || profile.BannerURL == "" {
		t.Fatal("profile asset fields missing")
	}
	if profile.CreatedAt != "2009-03-21T20:50:14Z" {
		t.Fatalf("created_at not normalized: %q", profile.CreatedAt)
	}

	// The same payload carries no post bodies, so post extraction must be
	// empty.
	if posts := ExtractPosts(payload); len(posts) != 0 {
		t.Fatalf("profile payload produced %d posts", len(posts))
	}
}
