package scraper

import "testing"

func TestSearchURL(t *testing.T) {
	got := SearchURL("go scheduler", SortLatest)
	if got != "https://x.com/search?q=go+scheduler&src=typed_query&f=live" {
		t.Fatalf("unexpected search URL %s", got)
	}
	got = SearchURL("golang", SortTop)
	if got != "https://x.com/search?q=golang&src=typed_query&f=top" {
		t.Fatalf("unexpected top-sorted URL %s", got)
	}
}

func TestUserURL(t *testing.T) {
	if got := UserURL("@gopherdev", false); got != "https://x.com/gopherdev" {
		t.Fatalf("unexpected user URL %s", got)
	}
	if got := UserURL("gopherdev", true); got != "https://x.com/gopherdev/with_replies" {
		t.Fatalf("unexpected replies URL %s", got)
	}
	if got := LikesURL("@gopherdev"); got != "https://x.com/gopherdev/likes" {
		t.Fatalf("unexpected likes URL %s", got)
	}
}

func TestThreadURL(t *testing.T) {
	if got := ThreadURL("1879412345678901234"); got != "https://x.com/i/web/status/1879412345678901234" {
		t.Fatalf("bare id not expanded: %s", got)
	}
	full := "https://x.com/gopherdev/status/1879412345678901234"
	if got := ThreadURL(full); got != full {
		t.Fatalf("full URL must pass through, got %s", got)
	}
}

func TestHashtagURL(t *testing.T) {
	want := "https://x.com/search?q=%23golang&src=typed_query&f=live"
	if got := HashtagURL("golang", SortLatest); got != want {
		t.Fatalf("unexpected hashtag URL %s", got)
	}
	if got := HashtagURL("#golang", SortLatest); got != want {
		t.Fatalf("leading # must not double up: %s", got)
	}
}
