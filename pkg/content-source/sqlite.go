package contentsource

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLite serves content stored as rows of a SQLite database.
type SQLite struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLite opens (and if needed creates) the given database file.
// If file name is empty, a new in-memory db is opened.
func NewSQLite(filename string) (SQLite, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLite{}, fmt.Errorf("open %s: %w", filename, err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			body BLOB,
			modified INTEGER
		)`,
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return SQLite{}, fmt.Errorf("init %s: %w", filename, err)
		}
	}
	return SQLite{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLite) Read(requestPath string) (File, error) {
	for _, p := range []string{cleanPath(requestPath), indexPath(requestPath)} {
		var body []byte
		err := s.db.QueryRow("SELECT body FROM files WHERE path = ?", p).Scan(&body)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		} else if err != nil {
			return File{}, err
		}
		if body == nil {
			body = []byte{}
		}
		return File{Name: path.Base(p), Body: body}, nil
	}
	return File{}, ErrNotFound
}

func (s SQLite) Write(requestPath string, body []byte) error {
	p := cleanPath(requestPath)
	if p == "/" {
		return fmt.Errorf("cannot write to content root")
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO files (path, body, modified) VALUES (?, ?, ?)",
		p, body, time.Now().Unix(),
	)
	return err
}

// Paths calls the given callback for each stored path.
func (s SQLite) Paths(cb func(string)) error {
	rows, err := s.db.Query("SELECT path FROM files ORDER BY path")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return err
		}
		cb(p)
	}
	return rows.Err()
}

func (s SQLite) Close() error {
	return s.db.Close()
}
