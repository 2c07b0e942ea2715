package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"xscraper/logging"
	"xscraper/models"
)

// Archive fans run results out to the always-on local store and, when a DSN
// is configured, the shared Postgres mirror. Mirror writes are best effort:
// a down mirror costs a warning, never the local archive.
type Archive struct {
	Local  *SQLiteStore
	Mirror *PostgresStore // nil when no DSN is configured

	log zerolog.Logger
}

func NewArchive(local *SQLiteStore, mirror *PostgresStore) *Archive {
	return &Archive{
		Local:  local,
		Mirror: mirror,
		log:    logging.Component("storage"),
	}
}

func (a *Archive) Close() {
	if a.Mirror != nil {
		a.Mirror.Close()
	}
	a.Local.Close()
}

// PersistResult archives one finished run: the run row, every post (media
// queued as a side effect), and the best profile snapshot when one was
// captured.
func (a *Archive) PersistResult(ctx context.Context, mode, query string, started time.Time, res *models.ScrapeResult) error {
	status := models.RunStatusCompleted
	if res.Partial {
		status = models.RunStatusPartial
	}
	finished := time.Now()

	run := &models.ScrapeRun{
		RunID:      res.RunID,
		Mode:       mode,
		Query:      query,
		Target:     res.Target,
		StartedAt:  started,
		FinishedAt: &finished,
		Status:     status,
		PostsFound: len(res.Posts),
		Sessions:   res.SessionsRun,
		SessionsOK: res.SessionsOK,
	}

	if err := a.Local.CreateRun(run); err != nil {
		return err
	}
	if err := a.Local.SavePosts(run.RunID, res.Posts); err != nil {
		return err
	}
	if res.Profile != nil {
		if err := a.Local.UpsertProfile(res.Profile); err != nil {
			return err
		}
	}
	if err := a.Local.FinishRun(run); err != nil {
		return err
	}

	if a.Mirror != nil {
		a.mirror(ctx, run, res)
	}

	a.log.Info().Str("run", run.RunID).Int("posts", run.PostsFound).
		Str("status", string(status)).Msg("Run archived")
	return nil
}

func (a *Archive) mirror(ctx context.Context, run *models.ScrapeRun, res *models.ScrapeResult) {
	if err := a.Mirror.CreateRun(ctx, run); err != nil {
		a.log.Warn().Err(err).Msg("Postgres mirror: run insert failed")
		return
	}
	if err := a.Mirror.SavePosts(ctx, run.RunID, res.Posts); err != nil {
		a.log.Warn().Err(err).Msg("Postgres mirror: posts failed")
	}
	if res.Profile != nil {
		if err := a.Mirror.UpsertProfile(ctx, res.Profile); err != nil {
			a.log.Warn().Err(err).Msg("Postgres mirror: profile failed")
		}
	}
	if err := a.Mirror.FinishRun(ctx, run); err != nil {
		a.log.Warn().Err(err).Msg("Postgres mirror: run finish failed")
	}
}
