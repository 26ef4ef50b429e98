package storage

import "time"

// Post is one published blog post persisted between syncs
type Post struct {
	ID          string    `db:"id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Authors     string    `db:"authors"` // comma-joined display names
	Body        string    `db:"body"`    // rendered plain text
	ContentHash string    `db:"content_hash"`
	Link        string    `db:"link"` // canonical /blog/{slug} path
	Date        time.Time `db:"date"`
	SyncedAt    time.Time `db:"synced_at"`
}
