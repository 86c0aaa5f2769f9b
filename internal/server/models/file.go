// Package models defines server-side data models persisted in the database.
package models

import "time"

// FileEntry is a registered on-disk file. AbsPath is the canonical absolute
// path (symlinks and relative segments resolved) and is unique: registering
// the same path twice returns the same row.
type FileEntry struct {
	ID        string    `json:"id"`
	AbsPath   string    `json:"abs_path"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
