package models

import (
	"time"
)

// Document status values.
const (
	DocumentStatusUploaded = "uploaded"
	DocumentStatusReady    = "ready"
	DocumentStatusFailed   = "failed"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents an uploaded PDF.
type Document struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StorageURL  string    `db:"storage_url" json:"storage_url"` // S3 URL
	ContentType string    `db:"content_type" json:"content_type"`
	SHA256      string    `db:"sha256" json:"sha256"`
	PageCount   int       `db:"page_count" json:"page_count"`
	Status      string    `db:"status" json:"status"` // uploaded | ready | failed
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
