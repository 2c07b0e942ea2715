package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"xscraper/logging"
)

const loginURL = "https://x.com/i/flow/login"

// The interactive window is a real person typing, so one stable desktop
// fingerprint reads cleaner than a rotating one.
const loginAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

const loginStealth = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// successPaths are URL fragments that only appear once the account is
// authenticated. Checked with substring matching so query strings and
// trailing segments still count.
var successPaths = []string{"/home", "/explore", "/notifications", "/messages"}

// flowPaths mean the login flow is still in progress, whatever else the
// URL contains.
var flowPaths = []string{"/i/flow/", "/login"}

func loggedIn(url string) bool {
	for _, p := range flowPaths {
		if strings.Contains(url, p) {
			return false
		}
	}
	if !strings.Contains(url, "x.com") && !strings.Contains(url, "twitter.com") {
		return false
	}
	for _, p := range successPaths {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// Login runs the one-time manual authentication flow: it opens a visible
// Chrome window on the login page, waits for the operator to sign in, and
// persists the context cookies through the store the moment an
// authenticated URL shows up. No proxy is involved; this is the operator's
// own connection.
//
// If the store already holds cookies the flow is a no-op. Delete the file
// and re-run for a fresh login.
func Login(store *Store, timeout time.Duration) error {
	log := logging.Component("login")

	if store.Exists() {
		log.Info().Msgf("Cookie store already exists: %s", store.Path())
		log.Info().Msg("Delete it and re-run if you need a fresh login.")
		return nil
	}

	rule := strings.Repeat("=", 55)
	fmt.Printf("\n%s\n  MANUAL AUTHENTICATION\n%s\n", rule, rule)
	fmt.Println("  A Chrome window will open.")
	fmt.Println("  Log in to X yourself; the URL is watched and the")
	fmt.Println("  cookies are saved the moment you reach your feed.")
	fmt.Printf("  (%s timeout)\n%s\n\n", timeout, rule)

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
		Channel:  playwright.String("chrome"),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return fmt.Errorf("failed to launch chrome: %w", err)
	}
	defer browser.Close()

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(loginAgent),
		Viewport:  &playwright.Size{Width: 1280, Height: 900},
		Locale:    playwright.String("en-US"),
	})
	if err != nil {
		return fmt.Errorf("failed to create context: %w", err)
	}
	if err := context.AddInitScript(playwright.Script{Content: playwright.String(loginStealth)}); err != nil {
		log.Warn().Err(err).Msg("Stealth init failed, continuing without it")
	}

	page, err := context.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	log.Info().Msg("Opening x.com login page...")
	if _, err := page.Goto(loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	log.Info().Msg("Waiting for login... (URL checked every 1s)")
	authenticated := false
	for i := 0; i < int(timeout/time.Second); i++ {
		time.Sleep(time.Second)
		current := page.URL()
		if i%10 == 0 {
			log.Info().Msgf("[%03ds] URL: %s", i, current)
		}
		if loggedIn(current) {
			log.Info().Msgf("Login detected! URL: %s", current)
			authenticated = true
			break
		}
	}

	if !authenticated {
		// The URL watch can miss (redirect variants, custom home), but if
		// the operator did sign in the cookies are valid anyway. Save
		// whatever the context has before giving up.
		log.Warn().Msgf("Login not detected before timeout. Final URL: %s", page.URL())
		log.Warn().Msg("Attempting emergency cookie save anyway...")
		time.Sleep(2 * time.Second)
		if err := persist(context, store, log); err != nil {
			return fmt.Errorf("login was not completed before timeout: %w", err)
		}
		log.Info().Msgf("Emergency save succeeded. Check that %s holds a valid session.", store.Path())
		return nil
	}

	log.Info().Msg("Pausing 3s for cookies to settle...")
	time.Sleep(3 * time.Second)

	if err := persist(context, store, log); err != nil {
		return err
	}

	fmt.Printf("\n%s\n  COOKIES SAVED\n%s\n", rule, rule)
	fmt.Printf("  File: %s\n\n", store.Path())
	fmt.Println("  Next steps:")
	fmt.Println("    1. xscraper proxies")
	fmt.Println("    2. xscraper scrape <query>")
	fmt.Printf("\n  Re-run login only when cookies expire (~30 days).\n%s\n\n", rule)
	return nil
}

func persist(context playwright.BrowserContext, store *Store, log zerolog.Logger) error {
	cookies, err := context.Cookies()
	if err != nil {
		return fmt.Errorf("read context cookies: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("context returned no cookies, nothing to save")
	}
	if err := store.Save(cookies); err != nil {
		return err
	}
	log.Info().Msgf("Saved %d cookies -> %s", len(cookies), store.Path())
	return nil
}
