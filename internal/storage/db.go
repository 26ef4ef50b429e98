package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps SQLite database operations
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		authors TEXT,
		body TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		link TEXT NOT NULL,
		date TIMESTAMP,
		synced_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slug ON posts(slug);
	CREATE INDEX IF NOT EXISTS idx_date ON posts(date);
	CREATE INDEX IF NOT EXISTS idx_synced ON posts(synced_at);
	CREATE INDEX IF NOT EXISTS idx_hash ON posts(content_hash);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Upsert inserts or updates a post
func (d *DB) Upsert(post *Post) error {
	query := `
	INSERT INTO posts (
		id, slug, title, authors, body, content_hash, link, date, synced_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		slug = excluded.slug,
		title = excluded.title,
		authors = excluded.authors,
		body = excluded.body,
		content_hash = excluded.content_hash,
		link = excluded.link,
		date = excluded.date,
		synced_at = excluded.synced_at
	`

	_, err := d.db.Exec(query,
		post.ID, post.Slug, post.Title, post.Authors, post.Body,
		post.ContentHash, post.Link, post.Date, post.SyncedAt,
	)
	return err
}

// Get retrieves a post by ID
func (d *DB) Get(id string) (*Post, error) {
	post := &Post{}
	query := `
	SELECT id, slug, title, authors, body, content_hash, link, date, synced_at
	FROM posts
	WHERE id = ?
	`

	err := d.db.QueryRow(query, id).Scan(
		&post.ID, &post.Slug, &post.Title, &post.Authors, &post.Body,
		&post.ContentHash, &post.Link, &post.Date, &post.SyncedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return post, nil
}

// GetBySlug retrieves a post by its normalized slug
func (d *DB) GetBySlug(slug string) (*Post, error) {
	post := &Post{}
	query := `
	SELECT id, slug, title, authors, body, content_hash, link, date, synced_at
	FROM posts
	WHERE slug = ?
	`

	err := d.db.QueryRow(query, slug).Scan(
		&post.ID, &post.Slug, &post.Title, &post.Authors, &post.Body,
		&post.ContentHash, &post.Link, &post.Date, &post.SyncedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return post, nil
}

// List retrieves all posts, newest first
func (d *DB) List() ([]*Post, error) {
	query := `
	SELECT id, slug, title, authors, body, content_hash, link, date, synced_at
	FROM posts
	ORDER BY date DESC
	`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post := &Post{}
		err := rows.Scan(
			&post.ID, &post.Slug, &post.Title, &post.Authors, &post.Body,
			&post.ContentHash, &post.Link, &post.Date, &post.SyncedAt,
		)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// Delete removes a post, e.g. after it is unpublished upstream
func (d *DB) Delete(id string) error {
	_, err := d.db.Exec("DELETE FROM posts WHERE id = ?", id)
	return err
}

// Count returns the total number of posts
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}

// GetContentHash retrieves just the content hash for a post
func (d *DB) GetContentHash(id string) (string, error) {
	var hash string
	err := d.db.QueryRow("SELECT content_hash FROM posts WHERE id = ?", id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}
