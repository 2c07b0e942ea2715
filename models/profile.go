package models

import "time"

// Profile is a user snapshot assembled from profile-endpoint payloads.
// Sessions keep the first one they observe; across sessions the one with
// the highest follower count wins.
type Profile struct {
	Handle       string    `json:"handle" db:"handle"`
	Name         string    `json:"name" db:"name"`
	ID           string    `json:"id" db:"id"`
	Bio          string    `json:"bio,omitempty" db:"bio"`
	Location     string    `json:"location,omitempty" db:"location"`
	Website      string    `json:"website,omitempty" db:"website"`
	Followers    int64     `json:"followers" db:"followers"`
	Following    int64     `json:"following" db:"following"`
	Listed       int64     `json:"listed" db:"listed"`
	Posts        int64     `json:"posts" db:"posts"`
	Verified     bool      `json:"verified" db:"verified"`
	CreatedAt    string    `json:"created_at,omitempty" db:"created_at"`
	AvatarURL    string    `json:"avatar_url,omitempty" db:"avatar_url"`
	BannerURL    string    `json:"banner_url,omitempty" db:"banner_url"`
	PinnedPostID string    `json:"pinned_post_id,omitempty" db:"pinned_post_id"`
	CapturedAt   time.Time `json:"captured_at" db:"captured_at"`
}
