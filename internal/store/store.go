// Package store provides single-connection, mutex-serialized access to the
// relational store backing users, sessions, videos, and watch history. All
// statements are prepared, bound, stepped, and finalized while holding one
// process-wide mutex, trading write-path throughput for correctness
// simplicity — the design the specification calls for.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"ott-server/internal/apperr"
	"ott-server/internal/logging"
	"ott-server/internal/metrics"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	hash     BLOB NOT NULL,
	salt     BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	filename    TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT,
	duration    INTEGER
);

CREATE TABLE IF NOT EXISTS watch_history (
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	video_id   INTEGER NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
	position   REAL NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, video_id)
);
`

// Store is a single handle to the SQLite-backed relational store. Every
// exported method acquires mu for its entire statement lifecycle.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, applies the
// built-in schema, and configures WAL mode, a 5s busy timeout, and foreign
// keys. Used by operator tooling and tests, which only ever address a
// database the server itself already created.
func Open(path string) (*Store, error) {
	return open(path, schema)
}

// OpenWithSchemaFile is like Open, but reads the schema DDL from
// schemaPath instead of using the built-in copy, so an operator can
// customize or version the schema independently of the binary. schemaPath
// must exist; a missing file is a fatal condition for the server (spec
// §6), not silently substituted with the built-in schema.
func OpenWithSchemaFile(path, schemaPath string) (*Store, error) {
	ddl, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", schemaPath, err)
	}
	return open(path, string(ddl))
}

func open(path, ddl string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// withMetrics times an operation and records its outcome.
func withMetrics(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueriesTotal.WithLabelValues(operation, status).Inc()
	return err
}

// User represents a row in the users table.
type User struct {
	ID   int64
	Hash []byte
	Salt []byte
}

// GetUserCredentials returns (user_id, hash, salt) for username, or a
// NotFound *apperr.Error.
func (s *Store) GetUserCredentials(username string) (User, error) {
	var u User
	err := withMetrics("get_user_credentials", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		row := s.db.QueryRow(`SELECT id, hash, salt FROM users WHERE username = ?`, username)
		if err := row.Scan(&u.ID, &u.Hash, &u.Salt); err != nil {
			if err == sql.ErrNoRows {
				return apperr.NotFoundf("user not found")
			}
			return apperr.Internalf(err, "query user credentials")
		}
		return nil
	})
	return u, err
}

// CreateUser inserts a new user row, returning a Conflict *apperr.Error if
// the username already exists.
func (s *Store) CreateUser(username string, hash, salt []byte) (int64, error) {
	var id int64
	err := withMetrics("create_user", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := s.db.Exec(`INSERT INTO users (username, hash, salt) VALUES (?, ?, ?)`, username, hash, salt)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return apperr.Conflictf("username already exists")
			}
			return apperr.Internalf(err, "create user")
		}
		id, err = res.LastInsertId()
		if err != nil {
			return apperr.Internalf(err, "read last insert id")
		}
		return nil
	})
	return id, err
}

// UpsertUser inserts a user if absent, used only by boot-time seeding; it
// never overwrites an existing row's credentials.
func (s *Store) UpsertUser(username string, hash, salt []byte) error {
	return withMetrics("upsert_user", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.Exec(
			`INSERT INTO users (username, hash, salt) VALUES (?, ?, ?)
			 ON CONFLICT(username) DO NOTHING`,
			username, hash, salt,
		)
		if err != nil {
			return apperr.Internalf(err, "upsert user")
		}
		return nil
	})
}

// ListUsernames returns every username, ordered alphabetically.
func (s *Store) ListUsernames() ([]string, error) {
	var usernames []string
	err := withMetrics("list_usernames", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := s.db.Query(`SELECT username FROM users ORDER BY username`)
		if err != nil {
			return apperr.Internalf(err, "list usernames")
		}
		defer rows.Close()
		for rows.Next() {
			var username string
			if err := rows.Scan(&username); err != nil {
				return apperr.Internalf(err, "scan username")
			}
			usernames = append(usernames, username)
		}
		return rows.Err()
	})
	return usernames, err
}

// UpdateUserPassword overwrites a user's hash and salt, invalidating every
// existing session for that user.
func (s *Store) UpdateUserPassword(username string, hash, salt []byte) error {
	return withMetrics("update_user_password", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := s.db.Exec(`UPDATE users SET hash = ?, salt = ? WHERE username = ?`, hash, salt, username)
		if err != nil {
			return apperr.Internalf(err, "update user password")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.Internalf(err, "read rows affected")
		}
		if n == 0 {
			return apperr.NotFoundf("user not found")
		}
		if _, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = (SELECT id FROM users WHERE username = ?)`, username); err != nil {
			return apperr.Internalf(err, "invalidate sessions")
		}
		return nil
	})
}

// DeleteUser removes a user and cascades to their sessions and watch
// history via the schema's foreign-key ON DELETE CASCADE.
func (s *Store) DeleteUser(username string) error {
	return withMetrics("delete_user", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := s.db.Exec(`DELETE FROM users WHERE username = ?`, username)
		if err != nil {
			return apperr.Internalf(err, "delete user")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.Internalf(err, "read rows affected")
		}
		if n == 0 {
			return apperr.NotFoundf("user not found")
		}
		return nil
	})
}

// CreateSession upserts a session by token.
func (s *Store) CreateSession(token string, userID int64, expiresAt time.Time) error {
	return withMetrics("create_session", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.Exec(
			`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at`,
			token, userID, expiresAt.Unix(),
		)
		if err != nil {
			return apperr.Internalf(err, "create session")
		}
		return nil
	})
}

// Session represents a row in the sessions table.
type Session struct {
	UserID    int64
	ExpiresAt time.Time
}

// GetSession returns the session for token, or NotFound.
func (s *Store) GetSession(token string) (Session, error) {
	var sess Session
	var expiresAt int64
	err := withMetrics("get_session", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		row := s.db.QueryRow(`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token)
		if err := row.Scan(&sess.UserID, &expiresAt); err != nil {
			if err == sql.ErrNoRows {
				return apperr.NotFoundf("session not found")
			}
			return apperr.Internalf(err, "query session")
		}
		return nil
	})
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	return sess, err
}

// DeleteSession removes a session by token. Deleting a non-existent token
// is not an error.
func (s *Store) DeleteSession(token string) error {
	return withMetrics("delete_session", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
		if err != nil {
			return apperr.Internalf(err, "delete session")
		}
		return nil
	})
}

// PurgeExpiredSessions deletes every session whose expiry is <= now.
func (s *Store) PurgeExpiredSessions(now time.Time) error {
	return withMetrics("purge_expired_sessions", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
		if err != nil {
			return apperr.Internalf(err, "purge expired sessions")
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			metrics.SessionsPurgedTotal.Add(float64(n))
		}
		return nil
	})
}

// CountActiveSessions refreshes the ActiveSessions gauge from the current
// row count in sessions.
func (s *Store) CountActiveSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		logging.Debug("failed to count active sessions: %v", err)
		return
	}
	metrics.ActiveSessions.Set(float64(n))
}

// GetUsernameByID returns the username for a user id, or NotFound.
func (s *Store) GetUsernameByID(userID int64) (string, error) {
	var username string
	err := withMetrics("get_user_credentials", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		row := s.db.QueryRow(`SELECT username FROM users WHERE id = ?`, userID)
		if err := row.Scan(&username); err != nil {
			if err == sql.ErrNoRows {
				return apperr.NotFoundf("user not found")
			}
			return apperr.Internalf(err, "query username by id")
		}
		return nil
	})
	return username, err
}

// UpsertVideo inserts or updates a video row by its unique filename.
func (s *Store) UpsertVideo(title, filename string, description *string, duration *int) (int64, error) {
	var id int64
	err := withMetrics("upsert_video", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.Exec(
			`INSERT INTO videos (filename, title, description, duration) VALUES (?, ?, ?, ?)
			 ON CONFLICT(filename) DO UPDATE SET title = excluded.title, description = excluded.description, duration = excluded.duration`,
			filename, title, description, duration,
		)
		if err != nil {
			return apperr.Internalf(err, "upsert video")
		}
		row := s.db.QueryRow(`SELECT id FROM videos WHERE filename = ?`, filename)
		if err := row.Scan(&id); err != nil {
			return apperr.Internalf(err, "read upserted video id")
		}
		return nil
	})
	return id, err
}

// DeleteVideoByFilename removes a single video row by filename.
func (s *Store) DeleteVideoByFilename(filename string) error {
	return withMetrics("delete_video_by_filename", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.Exec(`DELETE FROM videos WHERE filename = ?`, filename)
		if err != nil {
			return apperr.Internalf(err, "delete video by filename")
		}
		return nil
	})
}

// PruneMissingVideos deletes every video whose filename is not present in
// liveFilenames. Implemented via a temp table, never a nested transaction,
// so the catalog engine can call it while holding no other DB state.
func (s *Store) PruneMissingVideos(liveFilenames []string) error {
	return withMetrics("prune_missing_videos", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx, err := s.db.Begin()
		if err != nil {
			return apperr.Internalf(err, "begin prune transaction")
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`CREATE TEMP TABLE IF NOT EXISTS live_filenames (filename TEXT PRIMARY KEY)`); err != nil {
			return apperr.Internalf(err, "create temp table")
		}
		if _, err := tx.Exec(`DELETE FROM live_filenames`); err != nil {
			return apperr.Internalf(err, "clear temp table")
		}

		stmt, err := tx.Prepare(`INSERT INTO live_filenames (filename) VALUES (?)`)
		if err != nil {
			return apperr.Internalf(err, "prepare temp insert")
		}
		for _, f := range liveFilenames {
			if _, err := stmt.Exec(f); err != nil {
				stmt.Close()
				return apperr.Internalf(err, "populate temp table")
			}
		}
		stmt.Close()

		if _, err := tx.Exec(`DELETE FROM videos WHERE filename NOT IN (SELECT filename FROM live_filenames)`); err != nil {
			return apperr.Internalf(err, "prune missing videos")
		}
		if _, err := tx.Exec(`DROP TABLE live_filenames`); err != nil {
			return apperr.Internalf(err, "drop temp table")
		}

		return tx.Commit()
	})
}

// Video represents a row in the videos table.
type Video struct {
	ID          int64
	Title       string
	Filename    string
	Description *string
	Duration    *int
}

// GetVideoByID returns a video by id, or NotFound.
func (s *Store) GetVideoByID(id int64) (Video, error) {
	v := Video{ID: id}
	err := withMetrics("get_video_by_id", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		row := s.db.QueryRow(`SELECT title, filename, description, duration FROM videos WHERE id = ?`, id)
		if err := row.Scan(&v.Title, &v.Filename, &v.Description, &v.Duration); err != nil {
			if err == sql.ErrNoRows {
				return apperr.NotFoundf("video not found")
			}
			return apperr.Internalf(err, "query video by id")
		}
		return nil
	})
	return v, err
}

// QueryVideos fetches limit+1 rows starting at offset, optionally filtered
// by a case-insensitive substring search over title/filename/description,
// invoking emit for each of the first `limit` rows. It returns hasMore,
// true if the (limit+1)th row existed.
func (s *Store) QueryVideos(search string, limit, offset int, emit func(Video)) (bool, error) {
	var hasMore bool
	err := withMetrics("query_videos", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		var rows *sql.Rows
		var err error
		if search != "" {
			pattern := "%" + search + "%"
			rows, err = s.db.Query(
				`SELECT id, title, filename, description, duration FROM videos
				 WHERE title LIKE ? ESCAPE '\' OR filename LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
				 ORDER BY id ASC LIMIT ? OFFSET ?`,
				pattern, pattern, pattern, limit+1, offset,
			)
		} else {
			rows, err = s.db.Query(
				`SELECT id, title, filename, description, duration FROM videos ORDER BY id ASC LIMIT ? OFFSET ?`,
				limit+1, offset,
			)
		}
		if err != nil {
			return apperr.Internalf(err, "query videos")
		}
		defer rows.Close()

		var buffered []Video
		for rows.Next() {
			var v Video
			if err := rows.Scan(&v.ID, &v.Title, &v.Filename, &v.Description, &v.Duration); err != nil {
				return apperr.Internalf(err, "scan video row")
			}
			buffered = append(buffered, v)
		}
		if err := rows.Err(); err != nil {
			return apperr.Internalf(err, "iterate video rows")
		}

		if len(buffered) > limit {
			hasMore = true
			buffered = buffered[:limit]
		}
		for _, v := range buffered {
			emit(v)
		}
		return nil
	})
	return hasMore, err
}

// UpdateWatchHistory upserts the (user_id, video_id) row with position and
// sets updated_at to now.
func (s *Store) UpdateWatchHistory(userID, videoID int64, position float64) error {
	return withMetrics("update_watch_history", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.Exec(
			`INSERT INTO watch_history (user_id, video_id, position, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, video_id) DO UPDATE SET position = excluded.position, updated_at = excluded.updated_at`,
			userID, videoID, position, time.Now().Unix(),
		)
		if err != nil {
			return apperr.Internalf(err, "update watch history")
		}
		return nil
	})
}

// GetResumePosition returns the stored position for (userID, videoID), or 0
// if no row exists.
func (s *Store) GetResumePosition(userID, videoID int64) (float64, error) {
	var pos float64
	err := withMetrics("get_resume_position", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		row := s.db.QueryRow(`SELECT position FROM watch_history WHERE user_id = ? AND video_id = ?`, userID, videoID)
		if err := row.Scan(&pos); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return apperr.Internalf(err, "query resume position")
		}
		return nil
	})
	return pos, err
}

// HistoryEntry joins a watch_history row with its video for listing.
type HistoryEntry struct {
	VideoID   int64
	Title     string
	Filename  string
	Position  float64
	UpdatedAt time.Time
}

// ListWatchHistory invokes emit for each history row belonging to userID,
// ordered by updated_at descending.
func (s *Store) ListWatchHistory(userID int64, emit func(HistoryEntry)) error {
	return withMetrics("list_watch_history", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		rows, err := s.db.Query(
			`SELECT v.id, v.title, v.filename, h.position, h.updated_at
			 FROM watch_history h JOIN videos v ON v.id = h.video_id
			 WHERE h.user_id = ? ORDER BY h.updated_at DESC`,
			userID,
		)
		if err != nil {
			return apperr.Internalf(err, "query watch history")
		}
		defer rows.Close()

		var buffered []HistoryEntry
		for rows.Next() {
			var e HistoryEntry
			var updatedAt int64
			if err := rows.Scan(&e.VideoID, &e.Title, &e.Filename, &e.Position, &updatedAt); err != nil {
				return apperr.Internalf(err, "scan watch history row")
			}
			e.UpdatedAt = time.Unix(updatedAt, 0)
			buffered = append(buffered, e)
		}
		if err := rows.Err(); err != nil {
			return apperr.Internalf(err, "iterate watch history rows")
		}

		for _, e := range buffered {
			emit(e)
		}
		return nil
	})
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
