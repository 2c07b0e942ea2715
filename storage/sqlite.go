package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"xscraper/identity"
	"xscraper/models"
)

// SQLiteStore is the always-on local archive. Every orchestrated run lands
// here: the run row, the canonical posts (upserted by post ID so repeat
// observations refresh counters instead of duplicating), the best profile
// snapshot per handle, and the media mirror queue.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		run_id TEXT PRIMARY KEY,
		mode TEXT,
		query TEXT,
		target TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		posts_found INTEGER DEFAULT 0,
		sessions INTEGER DEFAULT 0,
		sessions_ok INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		text TEXT,
		lang TEXT,
		created_at TEXT,
		kind TEXT,
		reply_to_id TEXT,
		reply_to_handle TEXT,
		author_handle TEXT,
		author_name TEXT,
		author_id TEXT,
		author_followers INTEGER DEFAULT 0,
		author_following INTEGER DEFAULT 0,
		author_verified BOOLEAN DEFAULT FALSE,
		likes INTEGER DEFAULT 0,
		reposts INTEGER DEFAULT 0,
		replies INTEGER DEFAULT 0,
		quotes INTEGER DEFAULT 0,
		bookmarks INTEGER DEFAULT 0,
		views INTEGER DEFAULT 0,
		hashtags JSON,
		mentions JSON,
		urls JSON,
		permalink TEXT,
		content_hash TEXT,
		run_id TEXT,
		first_seen_at DATETIME,
		last_seen_at DATETIME,
		times_seen INTEGER DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS profiles (
		handle TEXT PRIMARY KEY,
		user_id TEXT,
		name TEXT,
		bio TEXT,
		location TEXT,
		website TEXT,
		followers INTEGER DEFAULT 0,
		following INTEGER DEFAULT 0,
		listed INTEGER DEFAULT 0,
		posts INTEGER DEFAULT 0,
		verified BOOLEAN DEFAULT FALSE,
		created_at TEXT,
		avatar_url TEXT,
		banner_url TEXT,
		pinned_post_id TEXT,
		captured_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS media_files (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		type TEXT,
		original_url TEXT NOT NULL,
		mirror_key TEXT,
		status TEXT DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		created_at DATETIME,
		UNIQUE(post_id, original_url),
		FOREIGN KEY (post_id) REFERENCES posts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_handle, created_at);
	CREATE INDEX IF NOT EXISTS idx_posts_run ON posts(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_media_pending ON media_files(status) WHERE status = 'pending';
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_runs (run_id, mode, query, target, started_at, status, posts_found, sessions, sessions_ok)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0)`,
		run.RunID, run.Mode, run.Query, run.Target, run.StartedAt, run.Status)
	return err
}

func (s *SQLiteStore) FinishRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, posts_found = ?, sessions = ?, sessions_ok = ?
		WHERE run_id = ?`,
		run.FinishedAt, run.Status, run.PostsFound, run.Sessions, run.SessionsOK, run.RunID)
	return err
}

// SavePosts upserts every post and queues its media for mirroring. A post
// seen again refreshes its counters, text and content hash and bumps
// times_seen; run_id and first_seen_at stay with the run that found it.
func (s *SQLiteStore) SavePosts(runID string, posts []models.Post) error {
	now := time.Now()
	for i := range posts {
		post := &posts[i]
		hashtags, _ := json.Marshal(post.Hashtags)
		mentions, _ := json.Marshal(post.Mentions)
		urls, _ := json.Marshal(post.URLs)

		_, err := s.db.Exec(`
			INSERT INTO posts (id, text, lang, created_at, kind, reply_to_id, reply_to_handle,
				author_handle, author_name, author_id, author_followers, author_following, author_verified,
				likes, reposts, replies, quotes, bookmarks, views,
				hashtags, mentions, urls, permalink, content_hash, run_id, first_seen_at, last_seen_at, times_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(id) DO UPDATE SET
				text = excluded.text,
				content_hash = excluded.content_hash,
				likes = excluded.likes,
				reposts = excluded.reposts,
				replies = excluded.replies,
				quotes = excluded.quotes,
				bookmarks = excluded.bookmarks,
				views = excluded.views,
				author_followers = excluded.author_followers,
				author_following = excluded.author_following,
				last_seen_at = excluded.last_seen_at,
				times_seen = times_seen + 1`,
			post.ID, post.Text, post.Lang, post.CreatedAt, post.Kind, post.ReplyToID, post.ReplyToHandle,
			post.AuthorHandle, post.AuthorName, post.AuthorID, post.AuthorFollowers, post.AuthorFollowing, post.AuthorVerified,
			post.Likes, post.Reposts, post.Replies, post.Quotes, post.Bookmarks, post.Views,
			hashtags, mentions, urls, post.Permalink, identity.Fingerprint(post), runID, now, now)
		if err != nil {
			return err
		}

		for _, m := range post.Media {
			if m.URL == "" {
				continue
			}
			_, err := s.db.Exec(`
				INSERT OR IGNORE INTO media_files (id, post_id, type, original_url, status, attempts, created_at)
				VALUES (?, ?, ?, ?, 'pending', 0, ?)`,
				uuid.NewString(), post.ID, m.Type, m.URL, now)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLiteStore) GetPost(id string) (*models.Post, error) {
	row := s.db.QueryRow(`
		SELECT id, text, lang, created_at, kind, reply_to_id, reply_to_handle,
			author_handle, author_name, author_id, author_followers, author_following, author_verified,
			likes, reposts, replies, quotes, bookmarks, views,
			hashtags, mentions, urls, permalink
		FROM posts WHERE id = ?`, id)

	var p models.Post
	var hashtags, mentions, urls sql.NullString
	err := row.Scan(&p.ID, &p.Text, &p.Lang, &p.CreatedAt, &p.Kind, &p.ReplyToID, &p.ReplyToHandle,
		&p.AuthorHandle, &p.AuthorName, &p.AuthorID, &p.AuthorFollowers, &p.AuthorFollowing, &p.AuthorVerified,
		&p.Likes, &p.Reposts, &p.Replies, &p.Quotes, &p.Bookmarks, &p.Views,
		&hashtags, &mentions, &urls, &p.Permalink)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if hashtags.Valid {
		json.Unmarshal([]byte(hashtags.String), &p.Hashtags)
	}
	if mentions.Valid {
		json.Unmarshal([]byte(mentions.String), &p.Mentions)
	}
	if urls.Valid {
		json.Unmarshal([]byte(urls.String), &p.URLs)
	}
	return &p, nil
}

func (s *SQLiteStore) TimesSeen(id string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT times_seen FROM posts WHERE id = ?`, id).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// UpsertProfile keeps the best snapshot per handle: an incoming row only
// replaces the stored one when its follower count is at least as high.
func (s *SQLiteStore) UpsertProfile(p *models.Profile) error {
	_, err := s.db.Exec(`
		INSERT INTO profiles (handle, user_id, name, bio, location, website, followers, following,
			listed, posts, verified, created_at, avatar_url, banner_url, pinned_post_id, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			bio = excluded.bio,
			location = excluded.location,
			website = excluded.website,
			followers = excluded.followers,
			following = excluded.following,
			listed = excluded.listed,
			posts = excluded.posts,
			verified = excluded.verified,
			created_at = excluded.created_at,
			avatar_url = excluded.avatar_url,
			banner_url = excluded.banner_url,
			pinned_post_id = excluded.pinned_post_id,
			captured_at = excluded.captured_at
		WHERE excluded.followers >= profiles.followers`,
		p.Handle, p.ID, p.Name, p.Bio, p.Location, p.Website, p.Followers, p.Following,
		p.Listed, p.Posts, p.Verified, p.CreatedAt, p.AvatarURL, p.BannerURL, p.PinnedPostID, p.CapturedAt)
	return err
}

func (s *SQLiteStore) GetProfile(handle string) (*models.Profile, error) {
	row := s.db.QueryRow(`
		SELECT handle, user_id, name, bio, location, website, followers, following,
			listed, posts, verified, created_at, avatar_url, banner_url, pinned_post_id, captured_at
		FROM profiles WHERE handle = ?`, handle)

	var p models.Profile
	err := row.Scan(&p.Handle, &p.ID, &p.Name, &p.Bio, &p.Location, &p.Website, &p.Followers, &p.Following,
		&p.Listed, &p.Posts, &p.Verified, &p.CreatedAt, &p.AvatarURL, &p.BannerURL, &p.PinnedPostID, &p.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PendingMedia returns the oldest un-mirrored attachments, skipping rows
// that already burned their retry budget.
func (s *SQLiteStore) PendingMedia(limit int) ([]models.MediaFile, error) {
	rows, err := s.db.Query(`
		SELECT id, post_id, type, original_url, mirror_key, status, attempts, created_at
		FROM media_files
		WHERE status = 'pending' AND attempts < 3
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.MediaFile
	for rows.Next() {
		var f models.MediaFile
		var mirrorKey sql.NullString
		if err := rows.Scan(&f.ID, &f.PostID, &f.Type, &f.OriginalURL, &mirrorKey,
			&f.Status, &f.Attempts, &f.CreatedAt); err != nil {
			return nil, err
		}
		if mirrorKey.Valid {
			f.MirrorKey = &mirrorKey.String
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) MarkMediaUploaded(id, mirrorKey string) error {
	_, err := s.db.Exec(`
		UPDATE media_files SET status = 'uploaded', mirror_key = ?, attempts = attempts + 1
		WHERE id = ?`, mirrorKey, id)
	return err
}

// MarkMediaFailed bumps the attempt counter; the third strike parks the
// row as failed so the worker stops picking it up.
func (s *SQLiteStore) MarkMediaFailed(id string) error {
	_, err := s.db.Exec(`
		UPDATE media_files SET
			attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= 3 THEN 'failed' ELSE 'pending' END
		WHERE id = ?`, id)
	return err
}
