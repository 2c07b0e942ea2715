package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xscraper/auth"
	"xscraper/errs"
	"xscraper/models"
	"xscraper/proxypool"
	"xscraper/scraper"
)

var (
	flagMode    string
	flagLimit   int
	flagJSON    string
	flagNoStore bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <query|@handle|#tag|post-id|url>",
	Short: "Run one scrape wave across the proxy pool",
	Long: `Run one wave: every proxy in the list gets its own browser session, all
sessions hit the same target in parallel (bounded by MAX_PARALLEL_SESSIONS),
and the results merge into a single deduplicated, newest-first list.

The wave needs stored cookies (xscraper login) and a verified proxy list
(xscraper proxies). A rate-limit response ends the wave early; everything
collected up to that point is kept and the result is flagged partial.`,
	Example: `  # Live search, newest first
  xscraper scrape "golang generics" --limit 100

  # Top-ranked results instead of live
  xscraper scrape golang --mode top

  # A user's posts, with or without replies
  xscraper scrape @golang --mode user
  xscraper scrape @golang --mode replies

  # Likes tab, hashtag, one thread, home timeline
  xscraper scrape @golang --mode likes
  xscraper scrape '#devops' --mode hashtag
  xscraper scrape 1881234567890123456 --mode thread
  xscraper scrape --mode home

  # Keep the JSON, skip the archive
  xscraper scrape golang --json out.json --no-store`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().StringVarP(&flagMode, "mode", "m", "search", "search, top, user, replies, likes, thread, hashtag or home")
	scrapeCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "max posts to keep (default POSTS_PER_SESSION)")
	scrapeCmd.Flags().StringVar(&flagJSON, "json", "", "write the full result to this JSON file")
	scrapeCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "skip the local archive")
}

func runScrape(cmd *cobra.Command, args []string) error {
	var query string
	if len(args) > 0 {
		query = strings.TrimSpace(args[0])
	}
	if query == "" && flagMode != "home" {
		return errs.Configurationf("mode %q needs a query argument", flagMode)
	}

	store := auth.NewStore(cfg.CookieFile)
	if !store.Exists() {
		return errs.Configurationf("no cookie store at %s; run 'xscraper login' first", cfg.CookieFile)
	}

	pool, err := proxypool.Load(cfg.ProxyList)
	if err != nil {
		return err
	}

	orch := scraper.NewOrchestrator(&cfg.Scraper, pool, store)

	limit := flagLimit
	if limit <= 0 {
		limit = cfg.Scraper.PostsPerSession
	}

	started := time.Now()
	res, err := orch.ScrapeMode(flagMode, query, limit)
	if err != nil {
		return err
	}

	fmt.Println(orch.Report())
	if res.Partial {
		fmt.Printf("%d posts kept (partial: rate limited mid-run)\n", len(res.Posts))
	} else {
		fmt.Printf("%d posts in %s\n", len(res.Posts), res.Elapsed.Round(time.Second))
	}

	if flagJSON != "" {
		if err := writeResultJSON(flagJSON, res); err != nil {
			return err
		}
		fmt.Printf("Result written to %s\n", flagJSON)
	}

	if flagNoStore {
		return nil
	}
	archive, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer archive.Close()
	return archive.PersistResult(cmd.Context(), flagMode, query, started, res)
}

func writeResultJSON(path string, res *models.ScrapeResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
