package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Media is the featured asset of exactly one Post. The payload lives in file
// storage at StoragePath; this record carries its content type and size.
type Media struct {
	ID               uuid.UUID `json:"id" db:"id"`
	PostID           uuid.UUID `json:"post_id" db:"post_id"`
	UploaderID       uuid.UUID `json:"uploader_id" db:"uploader_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	StoragePath      string    `json:"storage_path" db:"storage_path"`
	FileSize         int64     `json:"file_size" db:"file_size"`
	MimeType         string    `json:"mime_type,omitempty" db:"mime_type"`
}

// NewMedia fills the identity and timestamp of a fresh record.
func NewMedia(postID, uploaderID uuid.UUID, filename, path, mimeType string, size int64) *Media {
	return &Media{
		ID:               uuid.New(),
		PostID:           postID,
		UploaderID:       uploaderID,
		CreatedAt:        time.Now().UTC(),
		OriginalFilename: filename,
		StoragePath:      path,
		FileSize:         size,
		MimeType:         mimeType,
	}
}

// Validate collects every problem with the record in one error.
func (m *Media) Validate() error {
	var validationErrors []string

	if m.PostID == uuid.Nil {
		validationErrors = append(validationErrors, "post ID is required")
	}
	if m.OriginalFilename == "" {
		validationErrors = append(validationErrors, "original filename is required")
	}
	if len(m.OriginalFilename) > 255 {
		validationErrors = append(validationErrors, "original filename must be 255 characters or less")
	}
	if m.StoragePath == "" {
		validationErrors = append(validationErrors, "storage path is required")
	}
	if m.FileSize <= 0 {
		validationErrors = append(validationErrors, "file size must be positive")
	}
	if len(m.MimeType) > 100 {
		validationErrors = append(validationErrors, "mime type must be 100 characters or less")
	}

	if len(validationErrors) > 0 {
		return &MediaValidationError{
			Errors: validationErrors,
		}
	}

	return nil
}

type MediaValidationError struct {
	Errors []string
}

func (e *MediaValidationError) Error() string {
	return fmt.Sprintf("media validation failed: %s", strings.Join(e.Errors, "; "))
}
