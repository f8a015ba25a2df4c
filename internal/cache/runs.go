package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

// RunStatus constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID          string
	State       string
	Year        int
	Geography   string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
}

// CreateRun records the start of a pipeline run and returns it.
func (s *Store) CreateRun(state string, year int, geography string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		State:     state,
		Year:      year,
		Geography: geography,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, state, year, geography, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.State, run.Year, run.Geography, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run finished with the given status. errMsg is empty
// for a successful run.
func (s *Store) CompleteRun(id string, status RunStatus, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, state, year, geography, status, started_at, completed_at, error
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Run
	for rows.Next() {
		run := &Run{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.State, &run.Year, &run.Geography, &run.Status,
			&run.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = completedAt.Time
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(`
		SELECT id, state, year, geography, status, started_at, completed_at, error
		FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.State, &run.Year, &run.Geography, &run.Status,
		&run.StartedAt, &completedAt, &errMsg)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}
