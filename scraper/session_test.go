package scraper

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"xscraper/auth"
	"xscraper/config"
	"xscraper/models"
)

type fakeDriver struct {
	handler    func(status int, url string, readBody func() ([]byte, error))
	navErr     error
	navCalled  bool
	scrolls    int
	onScroll   func(n int)
	cookies    []playwright.Cookie
	cookiesErr error
	closed     bool
}

func (f *fakeDriver) OnResponse(fn func(status int, url string, readBody func() ([]byte, error))) {
	f.handler = fn
}

func (f *fakeDriver) Navigate(url string, timeout time.Duration) error {
	f.navCalled = true
	return f.navErr
}

func (f *fakeDriver) ScrollToBottom() error {
	f.scrolls++
	if f.onScroll != nil {
		f.onScroll(f.scrolls)
	}
	return nil
}

func (f *fakeDriver) Cookies() ([]playwright.Cookie, error) {
	return f.cookies, f.cookiesErr
}

func (f *fakeDriver) AddCookies(cookies []playwright.OptionalCookie) error {
	return nil
}

func (f *fakeDriver) Close() {
	f.closed = true
}

// feedPosts pushes one timeline response with the given post ids through the
// session's interceptor, as if the page had loaded another batch.
func feedPosts(f *fakeDriver, ids ...string) {
	items := make([]string, len(ids))
	for i, id := range ids {
		items[i] = fmt.Sprintf(`{"rest_id":%q,"legacy":{"full_text":"post %s","created_at":"Mon Jan 15 0%d:00:00 +0000 2024"}}`, id, id, i)
	}
	f.handler(200, "https://x.com/i/api/graphql/abc/UserTweets", bodyOf("["+strings.Join(items, ",")+"]"))
}

func fastConfig() *config.ScraperConfig {
	return &config.ScraperConfig{
		MaxParallel:     2,
		PostsPerSession: 50,
		MaxScrolls:      5,
	}
}

func newTestSession(t *testing.T, cfg *config.ScraperConfig, driver *fakeDriver) (*Session, *RateLimitSignal) {
	t.Helper()
	sig := &RateLimitSignal{}
	s := &Session{
		id:     1,
		proxy:  &models.ProxyEndpoint{Address: "http://127.0.0.1:9"},
		cfg:    cfg,
		signal: sig,
		store:  auth.NewStore(filepath.Join(t.TempDir(), "cookies.json")),
		log:    zerolog.Nop(),
		cap:    newCapture(zerolog.Nop(), sig),
		driver: driver,
	}
	driver.OnResponse(s.cap.handle)
	return s, sig
}

func TestSessionScrape_RateLimitMidScroll(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxScrolls = 3

	driver := &fakeDriver{}
	driver.onScroll = func(n int) {
		switch n {
		case 1:
			feedPosts(driver, "7001", "7002")
		case 2:
			driver.handler(429, "https://x.com/i/api/graphql/abc/UserTweets", bodyOf(""))
		}
	}
	s, sig := newTestSession(t, cfg, driver)

	posts, _ := s.Scrape("https://x.com/gopherdev")

	if len(posts) != 2 {
		t.Fatalf("posts from before the rate limit must be kept, got %d", len(posts))
	}
	if !sig.Tripped() {
		t.Fatal("signal must be tripped")
	}
	// Scroll 3 must never run: the loop re-checks the signal first.
	if driver.scrolls != 2 {
		t.Fatalf("expected 2 scrolls, got %d", driver.scrolls)
	}
}

func TestSessionScrape_SignalledBeforeStart(t *testing.T) {
	driver := &fakeDriver{}
	s, sig := newTestSession(t, fastConfig(), driver)
	sig.Trip()

	posts, profile := s.Scrape("https://x.com/gopherdev")

	if len(posts) != 0 || profile != nil {
		t.Fatalf("expected empty buffer, got %d posts", len(posts))
	}
	if driver.navCalled {
		t.Fatal("session must not navigate once the signal is set")
	}
}

func TestSessionScrape_NavErrorReturnsBuffer(t *testing.T) {
	driver := &fakeDriver{navErr: errors.New("net::ERR_TIMED_OUT")}
	s, _ := newTestSession(t, fastConfig(), driver)

	// Responses intercepted before the navigation gave up.
	feedPosts(driver, "8801")

	posts, _ := s.Scrape("https://x.com/gopherdev")

	if len(posts) != 1 {
		t.Fatalf("buffered posts must survive a navigation error, got %d", len(posts))
	}
	if driver.scrolls != 0 {
		t.Fatalf("no scrolling after a failed navigation, got %d", driver.scrolls)
	}
}

func TestSessionScrape_TargetReachedStopsEarly(t *testing.T) {
	cfg := fastConfig()
	cfg.PostsPerSession = 2

	driver := &fakeDriver{}
	driver.onScroll = func(n int) {
		if n == 1 {
			feedPosts(driver, "9101", "9102")
		}
	}
	s, _ := newTestSession(t, cfg, driver)

	posts, _ := s.Scrape("https://x.com/gopherdev")

	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if driver.scrolls != 1 {
		t.Fatalf("loop must stop once the target is reached, got %d scrolls", driver.scrolls)
	}
}

func TestSessionClose_PersistsCookies(t *testing.T) {
	driver := &fakeDriver{
		cookies: []playwright.Cookie{
			{Name: "auth_token", Value: "tok-1", Domain: ".x.com", Path: "/"},
		},
	}
	s, _ := newTestSession(t, fastConfig(), driver)

	s.Close()

	if !driver.closed {
		t.Fatal("browser must be torn down")
	}
	loaded, err := s.store.Load()
	if err != nil {
		t.Fatalf("cookie store not written: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "auth_token" {
		t.Fatalf("unexpected cookie store contents: %+v", loaded)
	}
}

func TestSessionClose_TearsDownEvenIfCookiesFail(t *testing.T) {
	driver := &fakeDriver{cookiesErr: errors.New("context already closed")}
	s, _ := newTestSession(t, fastConfig(), driver)

	s.Close()

	if !driver.closed {
		t.Fatal("browser must be torn down regardless of cookie failure")
	}
	if s.store.Exists() {
		t.Fatal("no cookie file should be written on failure")
	}
}
