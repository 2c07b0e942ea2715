package scraper

import (
	"time"

	"github.com/rs/zerolog"

	"xscraper/auth"
	"xscraper/config"
	"xscraper/errs"
	"xscraper/logging"
	"xscraper/models"
	"xscraper/proxypool"
)

// Session is one proxy-bound browser context living for exactly one scrape
// pass. It never re-dials through another proxy: if its endpoint is bad the
// session fails and the orchestrator moves on.
type Session struct {
	id     int
	proxy  *models.ProxyEndpoint
	cfg    *config.ScraperConfig
	signal *RateLimitSignal
	store  *auth.Store
	log    zerolog.Logger
	cap    *capture
	driver pageDriver
}

func NewSession(id int, proxy *models.ProxyEndpoint, cfg *config.ScraperConfig, signal *RateLimitSignal, store *auth.Store) *Session {
	log := logging.Component("session").With().Int("sid", id).Logger()
	return &Session{
		id:     id,
		proxy:  proxy,
		cfg:    cfg,
		signal: signal,
		store:  store,
		log:    log,
		cap:    newCapture(log, signal),
	}
}

// Open launches the proxied browser, attaches the response interceptor
// before any navigation so no response is missed, and loads the shared
// cookie store into the context. Sessions never authenticate interactively;
// a missing store fails the open.
func (s *Session) Open() error {
	proxyCfg, err := proxypool.PlaywrightProxy(s.proxy)
	if err != nil {
		return errs.Wrap(errs.KindSessionOpen, "proxy config", err)
	}
	driver, err := launchBrowser(s.cfg, proxyCfg)
	if err != nil {
		return errs.Wrap(errs.KindSessionOpen, "launch browser", err)
	}
	driver.OnResponse(s.cap.handle)
	cookies, err := s.store.Load()
	if err != nil {
		driver.Close()
		return errs.Wrap(errs.KindSessionOpen, "load cookie store (run the login flow first)", err)
	}
	if err := driver.AddCookies(cookies); err != nil {
		driver.Close()
		return errs.Wrap(errs.KindSessionOpen, "add cookies", err)
	}
	s.driver = driver
	s.log.Info().Msgf("Ready | proxy: %s", s.proxy.Address)
	return nil
}

// Scrape navigates to the target and scrolls until the buffer reaches the
// per-session target, the scroll cap is hit, or the shared rate-limit signal
// trips. It always returns whatever was buffered, so a mid-run rate limit
// still yields the records collected before it.
func (s *Session) Scrape(targetURL string) ([]models.Post, *models.Profile) {
	if s.signal.Tripped() {
		s.log.Warn().Msg("Skipping -- rate limit signalled")
		return s.cap.Posts(), s.cap.Profile()
	}

	if stagger := randBetween(0, s.cfg.StaggerMax); stagger > 0 {
		s.log.Info().Msgf("Stagger: %.1fs", stagger.Seconds())
		time.Sleep(stagger)
	}
	if s.signal.Tripped() {
		return s.cap.Posts(), s.cap.Profile()
	}

	s.log.Info().Msgf("Navigating: %s", targetURL)
	if err := s.driver.Navigate(targetURL, s.cfg.NavTimeout); err != nil {
		navErr := errs.Wrap(errs.KindNavigationTimeout, "navigate "+targetURL, err)
		s.log.Warn().Msgf("scrape error: %v", navErr)
		return s.cap.Posts(), s.cap.Profile()
	}
	time.Sleep(randBetween(s.cfg.SettlePauseMin, s.cfg.SettlePauseMax))

	target := s.cfg.PostsPerSession
	maxScrolls := s.cfg.MaxScrolls
	for n := 1; n <= maxScrolls; n++ {
		if s.signal.Tripped() {
			s.log.Warn().Msgf("Rate limit -- stopping at scroll %d", n-1)
			break
		}
		if err := s.driver.ScrollToBottom(); err != nil {
			s.log.Warn().Msgf("scrape error: %v", err)
			break
		}
		pause := randBetween(s.cfg.ScrollPauseMin, s.cfg.ScrollPauseMax)
		time.Sleep(pause)
		count := s.cap.Count()
		s.log.Info().Msgf("scroll %d/%d | %d posts | %.1fs pause", n, maxScrolls, count, pause.Seconds())
		if count >= target {
			s.log.Info().Msgf("Target %d reached", target)
			break
		}
	}
	return s.cap.Posts(), s.cap.Profile()
}

// Close persists the context's cookies back to the shared store (sessions
// can pick up refreshed tokens during a run), then tears the browser down
// regardless of outcome.
func (s *Session) Close() {
	if s.driver == nil {
		return
	}
	cookies, err := s.driver.Cookies()
	if err != nil {
		s.log.Warn().Msgf("Cookie save failed: %v", err)
	} else if err := s.store.Save(cookies); err != nil {
		s.log.Warn().Msgf("Cookie save failed: %v", err)
	}
	s.driver.Close()
	s.log.Info().Msgf("Closed | %d posts | proxy: %s", s.cap.Count(), s.proxy.Address)
}
