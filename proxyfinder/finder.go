package proxyfinder

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"xscraper/config"
	"xscraper/errs"
	"xscraper/logging"
	"xscraper/models"
)

// Finder chains the two stages and owns the output file. The scrape
// pipeline never calls it; proxies are refreshed out of band, usually
// right before a run.
type Finder struct {
	cfg *config.FinderConfig
	log zerolog.Logger
}

func New(cfg *config.FinderConfig) *Finder {
	return &Finder{cfg: cfg, log: logging.Component("finder")}
}

// Run harvests and verifies, then writes the passing set to the output
// file. harvestOnly persists raw candidates without probing them;
// verifyOnly re-probes whatever the output file currently holds.
func (f *Finder) Run(harvestOnly, verifyOnly bool) error {
	var candidates []models.ProxyRecord

	if verifyOnly {
		data, err := os.ReadFile(f.cfg.Output)
		if err != nil {
			return errs.Wrap(errs.KindConfiguration, "verify-only needs an existing proxy list", err)
		}
		if err := json.Unmarshal(data, &candidates); err != nil {
			return errs.Wrap(errs.KindConfiguration, fmt.Sprintf("parse %s", f.cfg.Output), err)
		}
		f.log.Info().Msgf("Re-verifying %d proxies from %s", len(candidates), f.cfg.Output)
	} else {
		candidates = NewHarvester(f.cfg.FetchTimeout).Harvest(f.cfg.HarvestWorkers)
		if len(candidates) == 0 {
			return errs.New(errs.KindResourceExhausted, "no proxies harvested from any source; check the network")
		}
	}

	if harvestOnly {
		if err := f.save(candidates); err != nil {
			return err
		}
		f.log.Info().Msgf("Saved %d unverified candidates -> %s", len(candidates), f.cfg.Output)
		return nil
	}

	working := NewVerifier(f.cfg.BasicTimeout, f.cfg.TargetTimeout).VerifyAll(candidates, f.cfg.VerifyWorkers)
	if len(working) == 0 {
		return errs.New(errs.KindResourceExhausted, "no proxies passed verification; free lists churn, try again")
	}

	if err := f.save(working); err != nil {
		return err
	}

	f.printSummary(len(candidates), working)
	return nil
}

func (f *Finder) save(records []models.ProxyRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode proxy list: %w", err)
	}
	if err := os.WriteFile(f.cfg.Output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.cfg.Output, err)
	}
	return nil
}

func (f *Finder) printSummary(tested int, working []models.ProxyRecord) {
	rule := strings.Repeat("=", 60)
	fastest := working[0]
	slowest := working[len(working)-1]

	fmt.Printf("\n%s\n  RESULTS\n%s\n", rule, rule)
	fmt.Printf("  Proxies tested:     %d\n", tested)
	fmt.Printf("  Working on target:  %d\n", len(working))
	fmt.Printf("  Fastest:            %s  (%.2fs)\n", fastest.Proxy, fastest.Speed)
	fmt.Printf("  Slowest:            %s  (%.2fs)\n", slowest.Proxy, slowest.Speed)
	fmt.Printf("\n  Saved to: %s\n%s\n\n", f.cfg.Output, rule)

	fmt.Println("  Top 10 fastest proxies:")
	for i, rec := range working {
		if i == 10 {
			break
		}
		fmt.Printf("    %2d. %-45s  %.2fs\n", i+1, rec.Proxy, rec.Speed)
	}
	fmt.Println()
}
