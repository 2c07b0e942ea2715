package scraper

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xscraper/auth"
	"xscraper/config"
	"xscraper/errs"
	"xscraper/logging"
	"xscraper/models"
	"xscraper/proxypool"
)

// sessionRunner is the per-proxy unit of work the orchestrator schedules.
type sessionRunner interface {
	Open() error
	Scrape(targetURL string) ([]models.Post, *models.Profile)
	Close()
}

// Orchestrator runs scrape waves: one session per available proxy, bounded
// by the configured parallelism, merged into a single deduplicated result.
type Orchestrator struct {
	cfg    *config.ScraperConfig
	pool   *proxypool.Pool
	store  *auth.Store
	signal *RateLimitSignal
	health *HealthMonitor
	log    zerolog.Logger

	sid atomic.Int64

	// newSession builds the runner for one checked-out proxy. Tests
	// substitute their own.
	newSession func(id int, proxy *models.ProxyEndpoint) sessionRunner
}

func NewOrchestrator(cfg *config.ScraperConfig, pool *proxypool.Pool, store *auth.Store) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		pool:   pool,
		store:  store,
		signal: &RateLimitSignal{},
		health: NewHealthMonitor(),
		log:    logging.Component("scraper"),
	}
	o.newSession = func(id int, proxy *models.ProxyEndpoint) sessionRunner {
		return NewSession(id, proxy, cfg, o.signal, store)
	}
	return o
}

// runSession drives one full session lifecycle against targetURL and records
// its outcome with the pool and the health monitor. Failures never
// propagate; they become recorded outcomes so one bad proxy cannot abort the
// wave. An open failure is recorded with zero elapsed time, keeping it out
// of the pool's tested-session tally.
func (o *Orchestrator) runSession(targetURL string) ([]models.Post, *models.Profile, bool) {
	proxy, ok := o.pool.Checkout()
	if !ok {
		return nil, nil, false
	}
	id := int(o.sid.Add(1))
	session := o.newSession(id, proxy)
	start := time.Now()

	if err := session.Open(); err != nil {
		o.log.Warn().Int("sid", id).Err(err).Msg("session open failed")
		o.pool.Record(proxy.Address, false, 0, 0)
		o.health.Record(false, 0, time.Since(start))
		return nil, nil, false
	}

	posts, profile := session.Scrape(targetURL)
	session.Close()
	elapsed := time.Since(start)

	o.pool.Record(proxy.Address, true, len(posts), elapsed)
	o.health.Record(true, len(posts), elapsed)
	return posts, profile, true
}

// Scrape runs one wave against targetURL. It clears the rate-limit signal,
// submits one task per currently available proxy to a worker pool of
// cfg.MaxParallel, and collects buffers in completion order. The merged
// result is deduplicated by post id (first occurrence wins), sorted newest
// first, and truncated to limit. A tripped signal flags the result as
// partial rather than failing it.
func (o *Orchestrator) Scrape(targetURL, label string, limit int) (*models.ScrapeResult, error) {
	nProxies := o.pool.Remaining()
	if nProxies == 0 {
		return nil, errs.New(errs.KindResourceExhausted, "proxy pool is empty; refresh the proxy list")
	}
	o.signal.Clear()
	start := time.Now()

	expected := nProxies * o.cfg.PostsPerSession
	if limit < expected {
		expected = limit
	}
	o.log.Info().Msgf("Target: %s | proxies: %d | parallel: %d | expected: up to %d posts",
		label, nProxies, o.cfg.MaxParallel, expected)

	type outcome struct {
		posts   []models.Post
		profile *models.Profile
		ok      bool
	}
	results := make(chan outcome)
	sem := make(chan struct{}, o.cfg.MaxParallel)
	var wg sync.WaitGroup
	for i := 0; i < nProxies; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			posts, profile, ok := o.runSession(targetURL)
			results <- outcome{posts: posts, profile: profile, ok: ok}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		batches  [][]models.Post
		profiles []*models.Profile
		done     int
		raw      int
		okCount  int
	)
	for res := range results {
		batches = append(batches, res.posts)
		if res.profile != nil {
			profiles = append(profiles, res.profile)
		}
		if res.ok {
			okCount++
		}
		done++
		raw += len(res.posts)
		o.log.Info().Msgf("%d/%d done | %d raw posts", done, nProxies, raw)
	}

	merged := mergePosts(batches)

	partial := o.signal.Tripped()
	if partial {
		o.log.Warn().Msgf("'%s' ended early (429). %d posts kept. Wait before re-running.", label, len(merged))
	} else {
		o.log.Info().Msgf("'%s' done: %d unique from %d raw", label, len(merged), raw)
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}

	var best *models.Profile
	for _, p := range profiles {
		if best == nil || p.Followers > best.Followers {
			best = p
		}
	}

	return &models.ScrapeResult{
		RunID:       uuid.NewString(),
		Target:      targetURL,
		Posts:       merged,
		Profile:     best,
		Partial:     partial,
		SessionsRun: done,
		SessionsOK:  okCount,
		Elapsed:     time.Since(start),
	}, nil
}

// mergePosts flattens completion-ordered buffers, dropping ids already seen
// and sorting the survivors newest first. Creation timestamps are
// fixed-width strings whose byte order is chronological, so the sort
// compares them directly.
func mergePosts(batches [][]models.Post) []models.Post {
	seen := make(map[string]bool)
	var merged []models.Post
	for _, batch := range batches {
		for _, p := range batch {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}
	sortPostsNewestFirst(merged)
	return merged
}

// ScrapeSearch scrapes a free-form query, SortLatest or SortTop.
func (o *Orchestrator) ScrapeSearch(query string, limit int, sort string) (*models.ScrapeResult, error) {
	return o.Scrape(SearchURL(query, sort), query, limit)
}

// ScrapeUser scrapes a profile timeline. The result carries the profile
// snapshot when one was intercepted.
func (o *Orchestrator) ScrapeUser(handle string, limit int, withReplies bool) (*models.ScrapeResult, error) {
	label := "@" + strings.TrimPrefix(handle, "@")
	if withReplies {
		label += "/with_replies"
	}
	return o.Scrape(UserURL(handle, withReplies), label, limit)
}

// ScrapeLikes scrapes a user's likes tab.
func (o *Orchestrator) ScrapeLikes(handle string, limit int) (*models.ScrapeResult, error) {
	return o.Scrape(LikesURL(handle), "@"+strings.TrimPrefix(handle, "@")+"/likes", limit)
}

// ScrapeThread scrapes a post's detail page, pulling the thread around it.
// Accepts a bare post id or a full status URL.
func (o *Orchestrator) ScrapeThread(idOrURL string, limit int) (*models.ScrapeResult, error) {
	target := ThreadURL(idOrURL)
	return o.Scrape(target, "thread:"+tail(target, 20), limit)
}

// ScrapeHashtag scrapes a hashtag via search.
func (o *Orchestrator) ScrapeHashtag(tag string, limit int, sort string) (*models.ScrapeResult, error) {
	return o.Scrape(HashtagURL(tag, sort), "#"+strings.TrimPrefix(tag, "#"), limit)
}

// ScrapeHome scrapes the authenticated home timeline.
func (o *Orchestrator) ScrapeHome(limit int) (*models.ScrapeResult, error) {
	return o.Scrape(HomeURL(), "home", limit)
}

// ScrapeMode dispatches on the mode vocabulary shared by the CLI and the
// daemon jobs file.
func (o *Orchestrator) ScrapeMode(mode, query string, limit int) (*models.ScrapeResult, error) {
	switch mode {
	case "search":
		return o.ScrapeSearch(query, limit, SortLatest)
	case "top":
		return o.ScrapeSearch(query, limit, SortTop)
	case "user":
		return o.ScrapeUser(query, limit, false)
	case "replies":
		return o.ScrapeUser(query, limit, true)
	case "likes":
		return o.ScrapeLikes(query, limit)
	case "thread":
		return o.ScrapeThread(query, limit)
	case "hashtag":
		return o.ScrapeHashtag(query, limit, SortLatest)
	case "home":
		return o.ScrapeHome(limit)
	default:
		return nil, errs.Configurationf("unknown mode %q (want search, top, user, replies, likes, thread, hashtag or home)", mode)
	}
}

// Report renders the aggregate health report including the proxy pool
// summary.
func (o *Orchestrator) Report() string {
	return o.health.Report(o.pool.Summary())
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// sortPostsNewestFirst is stable so posts sharing a timestamp keep their
// first-seen order from the merge.
func sortPostsNewestFirst(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt > posts[j].CreatedAt
	})
}
