package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipforge/internal/config"
)

// Store manages render job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database under the log
// directory and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "queue.db"))
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NewJob enqueues a pending render job and returns the stored row. Each job
// receives a unique key used for its temp directory and lock file.
func (s *Store) NewJob(ctx context.Context, title string, audioFiles []string) (*Job, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	filesJSON, err := json.Marshal(audioFiles)
	if err != nil {
		return nil, fmt.Errorf("marshal audio files: %w", err)
	}

	jobKey := uuid.NewString()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO render_jobs (
            job_key, title, audio_files_json, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		jobKey,
		strings.TrimSpace(title),
		string(filesJSON),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

const jobColumns = `id, job_key, title, audio_files_json, status, output_file,
    subtitle_file, duration_seconds, error_message, progress_stage,
    progress_percent, progress_message, created_at, updated_at`

// GetByID fetches a job by its numeric identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM render_jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// NextPending claims the oldest pending job by flipping it to the given
// processing status. Returns nil when the queue is empty. The UPDATE guard
// on status makes the claim safe across concurrent workers.
func (s *Store) NextPending(ctx context.Context, claim Status) (*Job, error) {
	if _, ok := processingStatuses[claim]; !ok {
		return nil, fmt.Errorf("claim status %q is not a processing status", claim)
	}
	for {
		row := s.db.QueryRowContext(ctx,
			"SELECT id FROM render_jobs WHERE status = ? ORDER BY created_at, id LIMIT 1",
			StatusPending)
		var id int64
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select pending job: %w", err)
		}

		res, err := s.db.ExecContext(ctx,
			"UPDATE render_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			claim, time.Now().UTC().Format(time.RFC3339Nano), id, StatusPending)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 1 {
			return s.GetByID(ctx, id)
		}
		// Lost the race to another worker; try the next pending job.
	}
}

// Update persists the mutable fields of a job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	if _, ok := statusSet[job.Status]; !ok {
		return fmt.Errorf("unknown status %q", job.Status)
	}
	filesJSON, err := json.Marshal(job.AudioFiles)
	if err != nil {
		return fmt.Errorf("marshal audio files: %w", err)
	}
	job.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE render_jobs SET
            title = ?, audio_files_json = ?, status = ?, output_file = ?,
            subtitle_file = ?, duration_seconds = ?, error_message = ?,
            progress_stage = ?, progress_percent = ?, progress_message = ?,
            updated_at = ?
        WHERE id = ?`,
		job.Title,
		string(filesJSON),
		job.Status,
		job.OutputFile,
		job.SubtitleFile,
		job.DurationSeconds,
		job.ErrorMessage,
		job.ProgressStage,
		job.ProgressPercent,
		job.ProgressMessage,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs ordered oldest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM render_jobs"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ResetStuck returns in-flight jobs to pending, for recovery after a crash.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE render_jobs SET status = ?, updated_at = ? WHERE status IN (?, ?, ?)",
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusNormalizing, StatusTranscribing, StatusRendering,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes completed and failed jobs, returning the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM render_jobs WHERE status IN (?, ?)",
		StatusCompleted, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Health aggregates job counts by lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM render_jobs GROUP BY status")
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch {
		case status == StatusPending:
			summary.Pending += count
		case status == StatusCompleted:
			summary.Completed += count
		case status == StatusFailed:
			summary.Failed += count
		default:
			summary.Processing += count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var filesJSON, createdAt, updatedAt string
	var status string
	err := row.Scan(
		&job.ID,
		&job.JobKey,
		&job.Title,
		&filesJSON,
		&status,
		&job.OutputFile,
		&job.SubtitleFile,
		&job.DurationSeconds,
		&job.ErrorMessage,
		&job.ProgressStage,
		&job.ProgressPercent,
		&job.ProgressMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = Status(status)
	if err := json.Unmarshal([]byte(filesJSON), &job.AudioFiles); err != nil {
		return nil, fmt.Errorf("decode audio files: %w", err)
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}
