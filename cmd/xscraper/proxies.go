package main

import (
	"github.com/spf13/cobra"

	"xscraper/errs"
	"xscraper/proxyfinder"
)

var (
	flagHarvestOnly bool
	flagVerifyOnly  bool
)

var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "Harvest and verify free proxies into the proxy list",
	Long: `Collects proxy candidates from public raw-text lists, JSON APIs and HTML
tables, deduplicates them, then probes each one through itself: first a
plain connectivity check, then a fetch of the actual target site. Only
proxies that pass verification land in the output list, sorted fastest
first.

Free proxies churn fast. Re-run this before any serious scrape.`,
	Example: `  # Full run: harvest, verify, write proxies.json
  xscraper proxies

  # Collect candidates only (written unverified)
  xscraper proxies --harvest-only

  # Re-verify an existing list after some hours
  xscraper proxies --verify-only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagHarvestOnly && flagVerifyOnly {
			return errs.New(errs.KindConfiguration, "--harvest-only and --verify-only are mutually exclusive")
		}
		return proxyfinder.New(&cfg.Finder).Run(flagHarvestOnly, flagVerifyOnly)
	},
}

func init() {
	rootCmd.AddCommand(proxiesCmd)
	proxiesCmd.Flags().BoolVar(&flagHarvestOnly, "harvest-only", false, "collect candidates without probing them")
	proxiesCmd.Flags().BoolVar(&flagVerifyOnly, "verify-only", false, "re-probe an existing candidate list")
}
