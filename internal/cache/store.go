// Package cache persists raw dataset snapshots so a run can complete when
// the API is unavailable. Snapshot payloads are CSV files named
// deterministically by (year, state, geography, dataset); a sqlite index
// tracks snapshot metadata and run history.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/geostat-labs/svindex/internal/frame"
)

// indexFileName is the sqlite index inside the cache directory.
const indexFileName = "svindex.db"

// MissError reports that no snapshot exists for a dataset scope. It is the
// terminal error when a live fetch has already failed.
type MissError struct {
	Dataset   string
	State     string
	Year      int
	Geography string
}

func (e *MissError) Error() string {
	return fmt.Sprintf("no cached snapshot for dataset %s (state %s, year %d, geography %s)",
		e.Dataset, e.State, e.Year, e.Geography)
}

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	Dataset   string
	State     string
	Year      int
	Geography string
	Filename  string
	RowCount  int
	ColCount  int
	StoredAt  time.Time
}

// Store is the snapshot cache. It is the pipeline's only persistent shared
// resource; writes are last-write-wins because the pipeline is
// single-writer.
type Store struct {
	dir    string
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the cache directory if needed, opens the sqlite index and
// runs any pending migrations.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache index: %w", err)
	}

	s := &Store{dir: dir, db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the sqlite index.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// snapshotFilename builds the deterministic payload filename. Dataset slugs
// are path fragments (e.g. dec/dpgu), so slashes are flattened.
func snapshotFilename(dataset, state string, year int, geography string) string {
	flat := func(s string) string {
		s = strings.ReplaceAll(s, "/", "-")
		return strings.ReplaceAll(s, " ", "_")
	}
	return fmt.Sprintf("%d_%s_%s_%s.csv", year, flat(state), flat(geography), flat(dataset))
}

// Write persists a snapshot, overwriting any prior one for the same
// (dataset, state, year, geography). Called write-through after every
// successful live fetch.
func (s *Store) Write(dataset, state string, year int, geography string, table *frame.Table) error {
	filename := snapshotFilename(dataset, state, year, geography)
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", filename, err)
	}
	if err := table.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write snapshot %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", filename, err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO snapshots
		(dataset, state, year, geography, filename, row_count, col_count, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		dataset, state, year, geography, filename, table.Rows(), len(table.Columns()), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("index snapshot %s: %w", filename, err)
	}

	s.logger.Debug("snapshot stored", "dataset", dataset, "rows", table.Rows(), "file", filename)
	return nil
}

// Read loads the stored snapshot for a dataset scope. The table comes back
// numeric except for the key columns and NAME, matching a live fetch.
func (s *Store) Read(dataset, state string, year int, geography string, keys []string) (*frame.Table, error) {
	filename := snapshotFilename(dataset, state, year, geography)
	path := filepath.Join(s.dir, filename)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &MissError{Dataset: dataset, State: state, Year: year, Geography: geography}
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()

	table, err := frame.ReadCSV(f, keys)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", filename, err)
	}
	table.CoerceNumeric("NAME")
	return table, nil
}

// Touch re-stamps the snapshot index row for a scope. Used when
// cache.refresh_on_fallback is enabled and a run served from a snapshot.
func (s *Store) Touch(dataset, state string, year int, geography string) error {
	_, err := s.db.Exec(`
		UPDATE snapshots SET stored_at = ?
		WHERE dataset = ? AND state = ? AND year = ? AND geography = ?`,
		time.Now().UTC(), dataset, state, year, geography,
	)
	if err != nil {
		return fmt.Errorf("touch snapshot: %w", err)
	}
	return nil
}

// List returns all indexed snapshots, newest first.
func (s *Store) List() ([]SnapshotInfo, error) {
	rows, err := s.db.Query(`
		SELECT dataset, state, year, geography, filename, row_count, col_count, stored_at
		FROM snapshots ORDER BY stored_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Dataset, &info.State, &info.Year, &info.Geography,
			&info.Filename, &info.RowCount, &info.ColCount, &info.StoredAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// Clear removes every snapshot matching the scope. Empty state and zero
// year match everything. Returns the number of snapshots removed.
func (s *Store) Clear(state string, year int, geography string) (int, error) {
	query := `SELECT dataset, state, year, geography, filename FROM snapshots WHERE 1=1`
	var args []any
	if state != "" {
		query += ` AND state = ?`
		args = append(args, state)
	}
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	if geography != "" {
		query += ` AND geography = ?`
		args = append(args, geography)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return 0, fmt.Errorf("select snapshots to clear: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type key struct {
		dataset, state, geography string
		year                      int
		filename                  string
	}
	var victims []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.dataset, &k.state, &k.year, &k.geography, &k.filename); err != nil {
			return 0, fmt.Errorf("scan snapshot: %w", err)
		}
		victims = append(victims, k)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate snapshots: %w", err)
	}

	for _, k := range victims {
		if err := os.Remove(filepath.Join(s.dir, k.filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("remove snapshot %s: %w", k.filename, err)
		}
		if _, err := s.db.Exec(`
			DELETE FROM snapshots
			WHERE dataset = ? AND state = ? AND year = ? AND geography = ?`,
			k.dataset, k.state, k.year, k.geography); err != nil {
			return 0, fmt.Errorf("deindex snapshot %s: %w", k.filename, err)
		}
	}
	return len(victims), nil
}
