package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB represents a database connection
type DB struct {
	conn *sql.DB
}

// ============================================================
// MODELS
// ============================================================

// User represents a registered user
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Analysis represents one completed analysis request
type Analysis struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Kind      string    `json:"kind"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis kinds recorded in the history table.
const (
	KindChat         = "chat"
	KindXRay         = "xray"
	KindDicom        = "dicom"
	KindMedicalImage = "medical_image"
	KindDrugInfo     = "drug"
	KindSymptom      = "symptom"
	KindCompare      = "compare"
)

// ============================================================
// DATABASE CONNECTION
// ============================================================

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite-specific optimizations for concurrency
	conn.SetMaxOpenConns(1) // Single writer, best for SQLite to avoid locking
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Enable WAL (Write-Ahead Logging) mode
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Set busy timeout to 5 seconds
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Set synchronous to NORMAL for better performance with WAL
	if _, err := conn.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the schema on a fresh database.
func (db *DB) createTables() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER REFERENCES users(id),
			kind TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC)`,
	}
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// ============================================================
// USER METHODS
// ============================================================

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(username string) (*User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`
	row := db.conn.QueryRow(query, username)

	var user User
	var createdAtStr string

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAtStr)

	return &user, nil
}

// CreateUser creates a new user
func (db *DB) CreateUser(user *User) (int64, error) {
	query := `INSERT INTO users (username, password_hash) VALUES (?, ?)`
	result, err := db.conn.Exec(query, user.Username, user.PasswordHash)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return result.LastInsertId()
}

// ============================================================
// ANALYSIS HISTORY METHODS
// ============================================================

// RecordAnalysis inserts one analysis record. Summaries longer than 512
// runes are truncated; the history is a log, not a transcript store.
func (db *DB) RecordAnalysis(userID *int64, kind, summary string) (int64, error) {
	if runes := []rune(summary); len(runes) > 512 {
		summary = string(runes[:512])
	}
	query := `INSERT INTO analyses (user_id, kind, summary) VALUES (?, ?, ?)`
	result, err := db.conn.Exec(query, userID, kind, summary)
	if err != nil {
		return 0, fmt.Errorf("failed to record analysis: %w", err)
	}
	return result.LastInsertId()
}

// RecentAnalyses returns the most recent analysis records, newest first.
func (db *DB) RecentAnalyses(limit int) ([]Analysis, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, user_id, kind, summary, created_at FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []Analysis
	for rows.Next() {
		var a Analysis
		var userID sql.NullInt64
		var createdAtStr string
		if err := rows.Scan(&a.ID, &userID, &a.Kind, &a.Summary, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if userID.Valid {
			a.UserID = &userID.Int64
		}
		a.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAtStr)
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}
