package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xscraper/config"
	"xscraper/logging"
	"xscraper/storage"
)

var (
	cfg     *config.Config
	logFile *logging.RotatingWriter

	flagLogLevel string
	flagProxies  string
	flagCookies  string
)

var rootCmd = &cobra.Command{
	Use:   "xscraper",
	Short: "Concurrent, proxy-isolated browser scraping for X/Twitter",
	Long: `xscraper runs waves of isolated browser sessions, one per proxy, against
X/Twitter timelines. Each session carries the shared login cookies, intercepts
the timeline API responses behind the page, and the wave merges everything
into one deduplicated, newest-first result.

Typical flow:
  1. xscraper login      store cookies from a manual browser login
  2. xscraper proxies    harvest and verify free proxies into proxies.json
  3. xscraper scrape     run a wave against a query, user, hashtag or thread`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		if flagProxies != "" {
			cfg.ProxyList = flagProxies
			cfg.Finder.Output = flagProxies
		}
		if flagCookies != "" {
			cfg.CookieFile = flagCookies
		}

		logFile, err = logging.Setup(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagProxies, "proxies", "", "proxy list path (default proxies.json)")
	rootCmd.PersistentFlags().StringVar(&flagCookies, "cookies", "", "cookie store path (default cookies.json)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// openArchive wires the local store plus the optional Postgres mirror.
func openArchive(ctx context.Context) (*storage.Archive, error) {
	local, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	var mirror *storage.PostgresStore
	if cfg.Storage.PostgresDSN != "" {
		mirror, err = storage.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			local.Close()
			return nil, err
		}
	}
	return storage.NewArchive(local, mirror), nil
}
