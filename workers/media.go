package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xscraper/httputil"
	"xscraper/logging"
	"xscraper/models"
	"xscraper/storage"
)

const (
	mediaAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxMediaSize = 50 << 20
)

// Uploader pushes one object into the mirror bucket.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// NoOpUploader drains the payload and reports success. Stands in when no
// bucket is configured.
type NoOpUploader struct{}

func (NoOpUploader) Upload(_ context.Context, _ string, data io.Reader, _ string) error {
	_, err := io.Copy(io.Discard, data)
	return err
}

// Archiver drains the media queue: fetch the original URL, push the bytes
// to the mirror bucket, record the outcome. Failed rows stay queued until
// the store's retry budget runs out.
type Archiver struct {
	store    *storage.SQLiteStore
	uploader Uploader
	client   *http.Client
	log      zerolog.Logger

	// pause between downloads inside one batch
	cooldown time.Duration
}

func NewArchiver(store *storage.SQLiteStore, uploader Uploader) *Archiver {
	return &Archiver{
		store:    store,
		uploader: uploader,
		client:   httputil.Direct(60 * time.Second),
		log:      logging.Component("media"),
		cooldown: 200 * time.Millisecond,
	}
}

// Run drains the queue every interval until the context ends.
func (a *Archiver) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info().Int("batch", batchSize).Dur("interval", interval).Msg("Media archiver started")

	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("Media archiver stopping")
			return
		case <-ticker.C:
			a.ProcessBatch(ctx, batchSize)
		}
	}
}

// ProcessBatch mirrors up to batchSize pending attachments and reports how
// many uploaded and how many failed.
func (a *Archiver) ProcessBatch(ctx context.Context, batchSize int) (uploaded, failed int) {
	files, err := a.store.PendingMedia(batchSize)
	if err != nil {
		a.log.Error().Err(err).Msg("Media queue read failed")
		return 0, 0
	}
	if len(files) == 0 {
		return 0, 0
	}

	a.log.Info().Int("items", len(files)).Msg("Mirroring media batch")

	for i := range files {
		if ctx.Err() != nil {
			break
		}
		f := &files[i]

		key, size, err := a.mirror(ctx, f)
		if err != nil {
			a.log.Warn().Err(err).Str("url", f.OriginalURL).Int("attempts", f.Attempts+1).
				Msg("Media mirror failed")
			if err := a.store.MarkMediaFailed(f.ID); err != nil {
				a.log.Error().Err(err).Str("id", f.ID).Msg("Could not record media failure")
			}
			failed++
			continue
		}

		if err := a.store.MarkMediaUploaded(f.ID, key); err != nil {
			a.log.Error().Err(err).Str("id", f.ID).Msg("Could not record media upload")
			failed++
			continue
		}

		a.log.Debug().Str("key", key).Int64("bytes", size).Msg("Media uploaded")
		uploaded++

		time.Sleep(a.cooldown)
	}

	if uploaded > 0 || failed > 0 {
		a.log.Info().Int("uploaded", uploaded).Int("failed", failed).Msg("Media batch done")
	}
	return uploaded, failed
}

// mirror downloads one attachment and uploads it under a key derived from
// the owning post and the queue row, so retries overwrite rather than
// duplicate.
func (a *Archiver) mirror(ctx context.Context, f *models.MediaFile) (key string, size int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.OriginalURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", mediaAgent)
	req.Header.Set("Accept", "image/*,video/*,*/*")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("download status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize))
	if err != nil {
		return "", 0, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	ext := guessExtension(f.OriginalURL, contentType)
	key = fmt.Sprintf("media/%s/%s%s", f.PostID, f.ID, ext)

	if err := a.uploader.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", 0, fmt.Errorf("upload: %w", err)
	}
	return key, int64(len(data)), nil
}

// guessExtension picks a file extension from the URL path, falling back to
// the response content type. CDN URLs often carry the format in a query
// parameter instead of the path, so the query string is stripped first.
func guessExtension(rawURL, contentType string) string {
	trimmed, _, _ := strings.Cut(rawURL, "?")
	if ext := strings.ToLower(path.Ext(trimmed)); knownMediaExt(ext) {
		return ext
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".jpg"
	}
}

func knownMediaExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".mp4":
		return true
	}
	return false
}
