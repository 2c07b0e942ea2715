package models

import "time"

type MediaStatus string

const (
	MediaStatusPending  MediaStatus = "pending"
	MediaStatusUploaded MediaStatus = "uploaded"
	MediaStatusFailed   MediaStatus = "failed"
)

// MediaFile is an archive row for one post attachment awaiting (or done
// with) mirroring to object storage.
type MediaFile struct {
	ID          string      `json:"id" db:"id"`
	PostID      string      `json:"post_id" db:"post_id"`
	Type        string      `json:"type" db:"type"`
	OriginalURL string      `json:"original_url" db:"original_url"`
	MirrorKey   *string     `json:"mirror_key" db:"mirror_key"` // nil until uploaded
	Status      MediaStatus `json:"status" db:"status"`
	Attempts    int         `json:"attempts" db:"attempts"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
