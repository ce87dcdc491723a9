package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no transcript matches a job ID.
var ErrNotFound = errors.New("transcript not found")

// TranscriptRecord is one row of the transcripts table.
type TranscriptRecord struct {
	JobID       string    `json:"job_id"`
	RequestName string    `json:"request_name"`
	SourceType  string    `json:"source_type"`
	SourceExt   string    `json:"source_ext"`
	SampleRate  int       `json:"sample_rate"`
	Duration    float64   `json:"duration"`
	WordCount   int       `json:"word_count"`
	LocalPath   string    `json:"local_path"`
	GDriveURL   string    `json:"gdrive_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL UNIQUE,
	request_name TEXT NOT NULL,
	source_type TEXT NOT NULL,
	source_ext TEXT NOT NULL,
	sample_rate INTEGER NOT NULL,
	duration REAL,
	word_count INTEGER,
	local_path TEXT NOT NULL,
	gdrive_url TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
`

// NewMetadataDB opens (or creates) the SQLite database at dbPath.
func NewMetadataDB(ctx context.Context, dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript inserts a record. CreatedAt defaults to now.
func (mdb *MetadataDB) SaveTranscript(ctx context.Context, rec TranscriptRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO transcripts (job_id, request_name, source_type, source_ext, sample_rate, duration, word_count, local_path, gdrive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.ExecContext(ctx, query,
		rec.JobID, rec.RequestName, rec.SourceType, rec.SourceExt, rec.SampleRate,
		rec.Duration, rec.WordCount, rec.LocalPath, nullString(rec.GDriveURL), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}

	return nil
}

const selectColumns = `SELECT job_id, request_name, source_type, source_ext, sample_rate, duration, word_count, local_path, gdrive_url, created_at FROM transcripts`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (TranscriptRecord, error) {
	var (
		rec      TranscriptRecord
		duration sql.NullFloat64
		words    sql.NullInt64
		gdrive   sql.NullString
	)
	err := s.Scan(&rec.JobID, &rec.RequestName, &rec.SourceType, &rec.SourceExt, &rec.SampleRate,
		&duration, &words, &rec.LocalPath, &gdrive, &rec.CreatedAt)
	if err != nil {
		return TranscriptRecord{}, err
	}
	rec.Duration = duration.Float64
	rec.WordCount = int(words.Int64)
	rec.GDriveURL = gdrive.String
	return rec, nil
}

// GetTranscript retrieves transcript metadata by job ID
func (mdb *MetadataDB) GetTranscript(ctx context.Context, jobID string) (TranscriptRecord, error) {
	row := mdb.db.QueryRowContext(ctx, selectColumns+` WHERE job_id = ?`, jobID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TranscriptRecord{}, ErrNotFound
	}
	if err != nil {
		return TranscriptRecord{}, fmt.Errorf("failed to get transcript: %w", err)
	}
	return rec, nil
}

// ListTranscripts returns the most recent transcripts, newest first.
func (mdb *MetadataDB) ListTranscripts(ctx context.Context, limit int) ([]TranscriptRecord, error) {
	rows, err := mdb.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := make([]TranscriptRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	return transcripts, nil
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
