package models

import "time"

// Share grants download access to one FileEntry under optional expiry,
// quota and password constraints. Slug is the public identifier; DlCount
// is only ever mutated by the access gate's conditional update and never
// exceeds MaxDownloads when that is set.
type Share struct {
	Slug         string     `json:"slug"`
	FileID       string     `json:"file_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	MaxDownloads *int64     `json:"max_downloads,omitempty"`
	DlCount      int64      `json:"dl_count"`
	PasswordHash *string    `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PasswordRequired reports whether redeeming this share needs a password.
func (s *Share) PasswordRequired() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// PublicShare is the projection of Share+FileEntry that is safe to expose
// to an unauthenticated caller before password verification. It never
// carries the password hash.
type PublicShare struct {
	Slug             string     `json:"slug"`
	FileName         string     `json:"file_name"`
	FileSize         int64      `json:"file_size"`
	CreatedAt        time.Time  `json:"created_at"`
	DlCount          int64      `json:"dl_count"`
	MaxDownloads     *int64     `json:"max_downloads,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	PasswordRequired bool       `json:"password_required"`
}
