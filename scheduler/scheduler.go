package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"xscraper/config"
	"xscraper/errs"
	"xscraper/logging"
	"xscraper/scraper"
	"xscraper/storage"
)

// OrchestratorFactory builds a fresh orchestrator for one firing. Proxies
// are one-shot per run, so every firing reloads the proxy list instead of
// draining a shared pool.
type OrchestratorFactory func() (*scraper.Orchestrator, error)

// Scheduler fires the configured scrape jobs on their cron schedules and
// archives every result. Firings of one job never overlap: a tick that
// lands while the previous firing is still running is skipped.
type Scheduler struct {
	cfg     *config.Config
	newOrch OrchestratorFactory
	archive *storage.Archive
	cron    *cron.Cron
	log     zerolog.Logger

	mu      sync.Mutex
	running map[string]bool
}

func New(cfg *config.Config, newOrch OrchestratorFactory, archive *storage.Archive) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		newOrch: newOrch,
		archive: archive,
		cron:    cron.New(),
		log:     logging.Component("scheduler"),
		running: make(map[string]bool),
	}
}

// Start registers every job and starts the cron loop. A bad schedule
// expression rejects the whole daemon up front rather than silently
// dropping the job.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.cfg.Daemon.Jobs) == 0 {
		s.log.Warn().Str("file", s.cfg.Daemon.JobsFile).Msg("No jobs configured; scheduler is idle")
	}

	for i := range s.cfg.Daemon.Jobs {
		job := s.cfg.Daemon.Jobs[i]
		if _, err := s.cron.AddFunc(job.Schedule, func() { s.fire(ctx, job) }); err != nil {
			return errs.Wrap(errs.KindConfiguration,
				"job "+job.Name+": bad schedule "+job.Schedule, err)
		}
		s.log.Info().Str("job", job.Name).Str("schedule", job.Schedule).
			Str("mode", job.Mode).Str("query", job.Query).Msg("Job registered")
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for in-flight firings to drain.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) fire(ctx context.Context, job config.Job) {
	s.mu.Lock()
	if s.running[job.Name] {
		s.mu.Unlock()
		s.log.Warn().Str("job", job.Name).Msg("Previous firing still running; tick skipped")
		return
	}
	s.running[job.Name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, job.Name)
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	s.log.Info().Str("job", job.Name).Str("mode", job.Mode).Str("query", job.Query).Msg("Job firing")

	orch, err := s.newOrch()
	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name).Msg("Job could not build a run")
		return
	}

	res, err := orch.ScrapeMode(job.Mode, job.Query, job.Limit)
	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name).Msg("Job failed")
		return
	}

	if err := s.archive.PersistResult(ctx, job.Mode, job.Query, started, res); err != nil {
		s.log.Error().Err(err).Str("job", job.Name).Msg("Job result could not be archived")
		return
	}

	s.log.Info().Str("job", job.Name).Int("posts", len(res.Posts)).
		Bool("partial", res.Partial).Dur("elapsed", res.Elapsed).Msg("Job done")
}
