package scraper

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"

	"xscraper/config"
)

// stealthScript hides the obvious automation tells before any page script
// runs. Applied at context creation so it covers every navigation.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver',  {get: () => undefined});
Object.defineProperty(navigator, 'plugins',    {get: () => [1,2,3,4,5]});
Object.defineProperty(navigator, 'languages',  {get: () => ['en-US','en']});
window.chrome = {runtime: {}};
`

var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-setuid-sandbox",
}

// pageDriver is the slice of browser behavior a session actually uses.
type pageDriver interface {
	OnResponse(fn func(status int, url string, readBody func() ([]byte, error)))
	Navigate(url string, timeout time.Duration) error
	ScrollToBottom() error
	Cookies() ([]playwright.Cookie, error)
	AddCookies(cookies []playwright.OptionalCookie) error
	Close()
}

// browserEnv owns one playwright driver, browser, and proxied context. Each
// session launches its own so a bad proxy can never poison a neighbor.
type browserEnv struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func launchBrowser(cfg *config.ScraperConfig, proxy *playwright.Proxy) (*browserEnv, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(cfg.UserAgents[rand.Intn(len(cfg.UserAgents))]),
		Viewport:   &playwright.Size{Width: 1280, Height: 900},
		Locale:     playwright.String("en-US"),
		TimezoneId: playwright.String("America/New_York"),
		Proxy:      proxy,
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	if err := context.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}
	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &browserEnv{pw: pw, browser: browser, context: context, page: page}, nil
}

func (b *browserEnv) OnResponse(fn func(status int, url string, readBody func() ([]byte, error))) {
	b.page.OnResponse(func(response playwright.Response) {
		go fn(response.Status(), response.URL(), response.Body)
	})
}

func (b *browserEnv) Navigate(url string, timeout time.Duration) error {
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (b *browserEnv) ScrollToBottom() error {
	_, err := b.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}

func (b *browserEnv) Cookies() ([]playwright.Cookie, error) {
	return b.context.Cookies()
}

func (b *browserEnv) AddCookies(cookies []playwright.OptionalCookie) error {
	return b.context.AddCookies(cookies)
}

func (b *browserEnv) Close() {
	if b.context != nil {
		b.context.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		b.pw.Stop()
	}
}

// randBetween picks a uniform delay in [min, max).
func randBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
