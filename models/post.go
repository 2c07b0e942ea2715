package models

import "time"

type PostKind string

const (
	PostOriginal PostKind = "original"
	PostReply    PostKind = "reply"
	PostQuote    PostKind = "quote"
	PostRepost   PostKind = "repost"
)

// Post is one canonical post record extracted from an intercepted timeline
// payload. IDs are pure numeric strings; anything else is a ghost record
// (link-preview stubs, placeholders) and never reaches this type.
type Post struct {
	ID string `json:"id" db:"id"`

	Text string `json:"text" db:"text"`
	Lang string `json:"lang,omitempty" db:"lang"`

	// CreatedAt is the creation time rewritten as UTC RFC3339 at extraction.
	// Byte order equals chronological order, so sorts compare it directly.
	CreatedAt string `json:"created_at" db:"created_at"`

	Kind          PostKind `json:"kind" db:"kind"`
	ReplyToID     string   `json:"reply_to_id,omitempty" db:"reply_to_id"`
	ReplyToHandle string   `json:"reply_to_handle,omitempty" db:"reply_to_handle"`

	AuthorHandle    string `json:"author_handle" db:"author_handle"`
	AuthorName      string `json:"author_name" db:"author_name"`
	AuthorID        string `json:"author_id" db:"author_id"`
	AuthorFollowers int64  `json:"author_followers" db:"author_followers"`
	AuthorFollowing int64  `json:"author_following" db:"author_following"`
	AuthorVerified  bool   `json:"author_verified" db:"author_verified"`

	Likes     int64 `json:"likes" db:"likes"`
	Reposts   int64 `json:"reposts" db:"reposts"`
	Replies   int64 `json:"replies" db:"replies"`
	Quotes    int64 `json:"quotes" db:"quotes"`
	Bookmarks int64 `json:"bookmarks" db:"bookmarks"`
	Views     int64 `json:"views" db:"views"`

	Hashtags []string `json:"hashtags,omitempty" db:"-"`
	Mentions []string `json:"mentions,omitempty" db:"-"`
	URLs     []string `json:"urls,omitempty" db:"-"`
	Media    []Media  `json:"media,omitempty" db:"-"`

	Permalink  string    `json:"permalink" db:"permalink"`
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
}

// Media is one attachment on a post (photo, video, animated_gif).
type Media struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}
