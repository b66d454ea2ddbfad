// Package history records what each run dispatched. It is write-only from
// the dispatcher's point of view: matching never reads it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Service provides history management functionality.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new history service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Create creates a new history entry.
func (s *Service) Create(ctx context.Context, input *CreateInput) (*Entry, error) {
	entry := &Entry{
		RunID:       input.RunID,
		EventType:   input.EventType,
		Title:       input.Title,
		Name:        input.Name,
		SeriesID:    input.SeriesID,
		Quality:     input.Quality,
		Destination: input.Destination,
		JobID:       input.JobID,
		Error:       input.Error,
		CreatedAt:   time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history (run_id, event_type, title, name, series_id, quality, destination, job_id, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		string(entry.EventType),
		entry.Title,
		entry.Name,
		entry.SeriesID,
		entry.Quality,
		nullString(entry.Destination),
		nullString(entry.JobID),
		nullString(entry.Error),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history entry: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read history entry id: %w", err)
	}

	s.logger.Debug().
		Int64("id", entry.ID).
		Str("event", string(entry.EventType)).
		Str("name", entry.Name).
		Str("series", entry.SeriesID).
		Msg("history entry recorded")

	return entry, nil
}

// List returns the most recent entries first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	limit := opts.Limit
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var (
		where []string
		args  []any
	)
	if opts.Name != "" {
		where = append(where, "name = ?")
		args = append(args, opts.Name)
	}
	if opts.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(opts.EventType))
	}

	query := `SELECT id, run_id, event_type, title, name, series_id, quality,
		destination, job_id, error, created_at FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			entry                          Entry
			eventType, createdAt           string
			destination, jobID, errMessage sql.NullString
		)
		if err := rows.Scan(
			&entry.ID, &entry.RunID, &eventType, &entry.Title, &entry.Name, &entry.SeriesID,
			&entry.Quality, &destination, &jobID, &errMessage, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entry.EventType = EventType(eventType)
		entry.Destination = destination.String
		entry.JobID = jobID.String
		entry.Error = errMessage.String
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = t
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// DeleteAll deletes all history entries.
func (s *Service) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
