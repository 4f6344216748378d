package models

import (
	"time"

	"inkwell/internal/lib/metadata"

	"github.com/google/uuid"
)

// Post is a persisted content item. Title and Body are stored sanitized,
// Metadata holds the encoded scalar produced by metadata.Encode. MediaURL is
// resolved from the featured media on read and never stored.
type Post struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Metadata  string     `db:"metadata" json:"metadata,omitempty"`
	MediaID   *uuid.UUID `db:"media_id" json:"media,omitempty"`
	MediaURL  string     `db:"-" json:"media_url,omitempty"`
	AuthorID  uuid.UUID  `db:"author_id" json:"author"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// DecodedMetadata returns the metadata tree behind the stored scalar.
func (p *Post) DecodedMetadata() (metadata.Map, error) {
	return metadata.Decode(p.Metadata)
}

func (p *Post) HasMedia() bool {
	return p.MediaID != nil && *p.MediaID != uuid.Nil
}

// PostPatch is a partial update. Nil fields are left unchanged; ClearMedia
// wins over MediaID.
type PostPatch struct {
	Title      *string
	Body       *string
	Metadata   *string
	MediaID    *uuid.UUID
	ClearMedia bool
}

// Apply merges the patch into p. UpdatedAt is the caller's concern.
func (pp PostPatch) Apply(p *Post) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Body != nil {
		p.Body = *pp.Body
	}
	if pp.Metadata != nil {
		p.Metadata = *pp.Metadata
	}
	if pp.MediaID != nil {
		id := *pp.MediaID
		p.MediaID = &id
	}
	if pp.ClearMedia {
		p.MediaID = nil
	}
}
