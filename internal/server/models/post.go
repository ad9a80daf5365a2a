package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is the relational ownership record of one uploaded file.
type Post struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FileName  string
	IsTagged  bool
	CreatedAt time.Time
}

// Metadata is the free-form description submitted with each file.
type Metadata struct {
	Title       string `json:"title"`
	Creator     string `json:"creator"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

// PostDocument is the document-store twin of a Post, correlated by PostID.
type PostDocument struct {
	PostID   uuid.UUID
	Metadata Metadata
	Uploader uuid.UUID
}
