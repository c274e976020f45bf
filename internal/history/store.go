package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements the history and user-directory persistence using
// modernc.org/sqlite (pure Go, no CGO).
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes all access through Go's pool, preventing "database is
	// locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// newULID generates a new ULID string for record ids.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		raw, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// CreateUser adds a user to the directory, selected by default.
func (s *Store) CreateUser(ctx context.Context, name string) (User, error) {
	u := User{
		ID:       uuid.New().String(),
		Name:     name,
		Selected: true,
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, selected) VALUES (?, ?, 1)", u.ID, u.Name)
	if err != nil {
		return User{}, fmt.Errorf("%w: insert user: %v", ErrPersistenceFailure, err)
	}
	if err := exactlyOneRow(res); err != nil {
		return User{}, err
	}
	return u, nil
}

// SetUserSelected flips a user's participation flag.
func (s *Store) SetUserSelected(ctx context.Context, id string, selected bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET selected = ? WHERE id = ?", boolToInt(selected), id)
	if err != nil {
		return fmt.Errorf("%w: update user: %v", ErrPersistenceFailure, err)
	}
	return exactlyOneRow(res)
}

// ListUsers returns the whole directory in name order.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, selected FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var selected int
		if err := rows.Scan(&u.ID, &u.Name, &selected); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Selected = selected != 0
		users = append(users, u)
	}
	return users, rows.Err()
}

// SelectedUsers returns the participating users. An empty directory is
// ErrNoUsersFound; a directory with nobody selected is
// ErrNoSelectedUsers.
func (s *Store) SelectedUsers(ctx context.Context) ([]User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoUsersFound
	}

	var selected []User
	for _, u := range users {
		if u.Selected {
			selected = append(selected, u)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoSelectedUsers
	}
	return selected, nil
}

// InsertRecord persists one completed-session record. An affected-row
// count other than exactly 1 is itself an anomaly reported as a failure.
func (s *Store) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = newULID()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO session_records (id, user_id, timestamp_ms, duration_ms) VALUES (?, ?, ?, ?)",
		rec.ID, rec.UserID, rec.Timestamp.UnixMilli(), rec.DurationMs)
	if err != nil {
		return Record{}, fmt.Errorf("%w: insert record: %v", ErrPersistenceFailure, err)
	}
	if err := exactlyOneRow(res); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// SaveSession writes one record per participating user. The first
// failure aborts the remaining writes.
func (s *Store) SaveSession(ctx context.Context, finishedAt time.Time, durationMs int64, userIDs []string) error {
	for _, id := range userIDs {
		_, err := s.InsertRecord(ctx, Record{
			UserID:     id,
			Timestamp:  finishedAt,
			DurationMs: durationMs,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Timestamps returns a user's session timestamps in ascending order.
func (s *Store) Timestamps(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT timestamp_ms FROM session_records WHERE user_id = ? ORDER BY timestamp_ms",
		userID)
	if err != nil {
		return nil, fmt.Errorf("query timestamps: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		out = append(out, time.UnixMilli(ms))
	}
	return out, rows.Err()
}

// Records returns a user's most recent records, newest first.
func (s *Store) Records(ctx context.Context, userID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, timestamp_ms, duration_ms
		 FROM session_records WHERE user_id = ?
		 ORDER BY timestamp_ms DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var ms int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &ms, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ms)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UserTotals returns a user's session count and cumulated exercise time.
func (s *Store) UserTotals(ctx context.Context, userID string) (count int64, totalMs int64, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(duration_ms), 0) FROM session_records WHERE user_id = ?",
		userID).Scan(&count, &totalMs)
	if err != nil {
		return 0, 0, fmt.Errorf("query user totals: %w", err)
	}
	return count, totalMs, nil
}

// DeleteRecordsFor clears a user's whole history and reports how many
// records were removed.
func (s *Store) DeleteRecordsFor(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM session_records WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete records: %v", ErrPersistenceFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", ErrPersistenceFailure, err)
	}
	return n, nil
}

// exactlyOneRow enforces the single-row write contract.
func exactlyOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrPersistenceFailure, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: expected 1 affected row, got %d", ErrPersistenceFailure, n)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
