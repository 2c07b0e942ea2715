package main

import (
	"fmt"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xscraper/auth"
	"xscraper/errs"
	"xscraper/proxypool"
	"xscraper/scheduler"
	"xscraper/scraper"
	"xscraper/storage"
	"xscraper/workers"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled scrape jobs until interrupted",
	Long: `Runs the jobs from the YAML jobs file on their cron schedules, archiving
every result. Each firing loads a fresh proxy list, so keep a cron-driven
'xscraper proxies' run (or an external refresh) feeding it.

The media archiver runs alongside, mirroring post attachments to the
configured S3-compatible bucket. SIGINT or SIGTERM stops scheduling and
waits for in-flight jobs to drain.`,
	Example: `  # jobs.yaml
  jobs:
    - name: golang-live
      schedule: "0 * * * *"
      mode: search
      query: golang
      limit: 200

  xscraper daemon`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := cfg.LoadJobs(); err != nil {
		return err
	}

	store := auth.NewStore(cfg.CookieFile)
	if !store.Exists() {
		return errs.Configurationf("no cookie store at %s; run 'xscraper login' first", cfg.CookieFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	archive, err := openArchive(ctx)
	if err != nil {
		return err
	}
	defer archive.Close()

	fmt.Printf("Archive: %s\n", cfg.Storage.SQLitePath)
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("Postgres mirror: %s\n", maskDSN(cfg.Storage.PostgresDSN))
	}

	newOrch := func() (*scraper.Orchestrator, error) {
		pool, err := proxypool.Load(cfg.ProxyList)
		if err != nil {
			return nil, err
		}
		return scraper.NewOrchestrator(&cfg.Scraper, pool, store), nil
	}

	sched := scheduler.New(cfg, newOrch, archive)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	var uploader workers.Uploader = workers.NoOpUploader{}
	if cfg.S3.Bucket != "" {
		up, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			return err
		}
		uploader = up
		fmt.Printf("Media mirror: bucket %s\n", cfg.S3.Bucket)
	} else {
		fmt.Println("No S3 bucket configured; media queue drains without mirroring")
	}
	go workers.NewArchiver(archive.Local, uploader).Run(ctx, 20, 2*time.Minute)

	fmt.Printf("Daemon running with %d jobs. Press Ctrl+C to stop.\n", len(cfg.Daemon.Jobs))
	<-ctx.Done()

	fmt.Println("Shutting down...")
	sched.Stop()
	return nil
}

// maskDSN hides the password so connection strings can be logged.
func maskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsn
}
