package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"xscraper/identity"
	"xscraper/models"
)

// PostgresStore mirrors the archive to a shared database. It is optional;
// a deployment without POSTGRES_DSN runs on SQLite alone. The media queue
// stays local, only runs, posts and profiles are mirrored.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		run_id TEXT PRIMARY KEY,
		mode TEXT,
		query TEXT,
		target TEXT,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
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
		author_followers BIGINT DEFAULT 0,
		author_following BIGINT DEFAULT 0,
		author_verified BOOLEAN DEFAULT FALSE,
		likes BIGINT DEFAULT 0,
		reposts BIGINT DEFAULT 0,
		replies BIGINT DEFAULT 0,
		quotes BIGINT DEFAULT 0,
		bookmarks BIGINT DEFAULT 0,
		views BIGINT DEFAULT 0,
		hashtags JSONB,
		mentions JSONB,
		urls JSONB,
		permalink TEXT,
		content_hash TEXT,
		run_id TEXT,
		first_seen_at TIMESTAMPTZ,
		last_seen_at TIMESTAMPTZ,
		times_seen INTEGER DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS profiles (
		handle TEXT PRIMARY KEY,
		user_id TEXT,
		name TEXT,
		bio TEXT,
		location TEXT,
		website TEXT,
		followers BIGINT DEFAULT 0,
		following BIGINT DEFAULT 0,
		listed BIGINT DEFAULT 0,
		posts BIGINT DEFAULT 0,
		verified BOOLEAN DEFAULT FALSE,
		created_at TEXT,
		avatar_url TEXT,
		banner_url TEXT,
		pinned_post_id TEXT,
		captured_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_handle, created_at);
	CREATE INDEX IF NOT EXISTS idx_posts_run ON posts(run_id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (run_id, mode, query, target, started_at, status, posts_found, sessions, sessions_ok)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0)`

	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.Mode, run.Query, run.Target, run.StartedAt, run.Status)
	return err
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		UPDATE scrape_runs SET finished_at = $2, status = $3, posts_found = $4, sessions = $5, sessions_ok = $6
		WHERE run_id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.FinishedAt, run.Status, run.PostsFound, run.Sessions, run.SessionsOK)
	return err
}

func (s *PostgresStore) SavePosts(ctx context.Context, runID string, posts []models.Post) error {
	query := `
		INSERT INTO posts (id, text, lang, created_at, kind, reply_to_id, reply_to_handle,
			author_handle, author_name, author_id, author_followers, author_following, author_verified,
			likes, reposts, replies, quotes, bookmarks, views,
			hashtags, mentions, urls, permalink, content_hash, run_id, first_seen_at, last_seen_at, times_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, 1)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			content_hash = EXCLUDED.content_hash,
			likes = EXCLUDED.likes,
			reposts = EXCLUDED.reposts,
			replies = EXCLUDED.replies,
			quotes = EXCLUDED.quotes,
			bookmarks = EXCLUDED.bookmarks,
			views = EXCLUDED.views,
			author_followers = EXCLUDED.author_followers,
			author_following = EXCLUDED.author_following,
			last_seen_at = EXCLUDED.last_seen_at,
			times_seen = posts.times_seen + 1`

	now := time.Now()
	for i := range posts {
		post := &posts[i]
		hashtags, _ := json.Marshal(post.Hashtags)
		mentions, _ := json.Marshal(post.Mentions)
		urls, _ := json.Marshal(post.URLs)

		_, err := s.pool.Exec(ctx, query,
			post.ID, post.Text, post.Lang, post.CreatedAt, post.Kind, post.ReplyToID, post.ReplyToHandle,
			post.AuthorHandle, post.AuthorName, post.AuthorID, post.AuthorFollowers, post.AuthorFollowing, post.AuthorVerified,
			post.Likes, post.Reposts, post.Replies, post.Quotes, post.Bookmarks, post.Views,
			hashtags, mentions, urls, post.Permalink, identity.Fingerprint(post), runID, now, now)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (handle, user_id, name, bio, location, website, followers, following,
			listed, posts, verified, created_at, avatar_url, banner_url, pinned_post_id, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (handle) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			bio = EXCLUDED.bio,
			location = EXCLUDED.location,
			website = EXCLUDED.website,
			followers = EXCLUDED.followers,
			following = EXCLUDED.following,
			listed = EXCLUDED.listed,
			posts = EXCLUDED.posts,
			verified = EXCLUDED.verified,
			created_at = EXCLUDED.created_at,
			avatar_url = EXCLUDED.avatar_url,
			banner_url = EXCLUDED.banner_url,
			pinned_post_id = EXCLUDED.pinned_post_id,
			captured_at = EXCLUDED.captured_at
		WHERE EXCLUDED.followers >= profiles.followers`

	_, err := s.pool.Exec(ctx, query,
		p.Handle, p.ID, p.Name, p.Bio, p.Location, p.Website, p.Followers, p.Following,
		p.Listed, p.Posts, p.Verified, p.CreatedAt, p.AvatarURL, p.BannerURL, p.PinnedPostID, p.CapturedAt)
	return err
}

func (s *PostgresStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	query := `
		SELECT id, text, lang, created_at, kind, reply_to_id, reply_to_handle,
			author_handle, author_name, author_id, author_followers, author_following, author_verified,
			likes, reposts, replies, quotes, bookmarks, views, permalink
		FROM posts WHERE id = $1`

	var p models.Post
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Text, &p.Lang, &p.CreatedAt, &p.Kind, &p.ReplyToID, &p.ReplyToHandle,
		&p.AuthorHandle, &p.AuthorName, &p.AuthorID, &p.AuthorFollowers, &p.AuthorFollowing, &p.AuthorVerified,
		&p.Likes, &p.Reposts, &p.Replies, &p.Quotes, &p.Bookmarks, &p.Views, &p.Permalink)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
