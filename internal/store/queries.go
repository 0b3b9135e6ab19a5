package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotInitialized is returned when the schema has not been created.
	ErrNotInitialized = errors.New("database not initialized: run 'apptracker watch' first")

	// ErrNotFound is returned when a package has no launch record.
	ErrNotFound = errors.New("package not found")
)

// writeMu serializes counter mutations across every Store handle in the
// process. Handles are short-lived, so the guard cannot live on the Store.
var writeMu sync.Mutex

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// now is replaced in tests.
var now = time.Now

// wrapQueryErr maps "no such table" failures to ErrNotInitialized.
func wrapQueryErr(op string, err error) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%s: %w", op, ErrNotInitialized)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IncrementAndUpdate adds one launch for packageName and records
// processName as its most recent process.
func (s *Store) IncrementAndUpdate(packageName, processName string) error {
	if packageName == "" {
		return fmt.Errorf("package name cannot be empty")
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	ts := now().UTC().Format(timeFormat)
	query := `
		INSERT INTO app_history (package_name, process_name, count, first_launched, last_launched)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(package_name) DO UPDATE SET
			count = count + 1,
			process_name = excluded.process_name,
			last_launched = excluded.last_launched
	`

	if _, err := s.db.Exec(query, packageName, processName, ts, ts); err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to increment %s", packageName), err)
	}

	return nil
}

// GetApp retrieves the launch record for a package.
func (s *Store) GetApp(packageName string) (*AppRecord, error) {
	query := `
		SELECT package_name, process_name, count, first_launched, last_launched
		FROM app_history
		WHERE package_name = ?
	`

	rec, err := scanApp(s.db.QueryRow(query, packageName))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", packageName, ErrNotFound)
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to get %s", packageName), err)
	}

	return rec, nil
}

// ListApps returns launch records ordered by count, most launched first.
// A limit <= 0 returns every record.
func (s *Store) ListApps(limit int) ([]*AppRecord, error) {
	query := `
		SELECT package_name, process_name, count, first_launched, last_launched
		FROM app_history
		ORDER BY count DESC, last_launched DESC, package_name
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("failed to list apps", err)
	}
	defer rows.Close()

	var apps []*AppRecord
	for rows.Next() {
		rec, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan app row: %w", err)
		}
		apps = append(apps, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apps: %w", err)
	}

	return apps, nil
}

// TotalLaunches returns the sum of all launch counters.
func (s *Store) TotalLaunches() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(count), 0) FROM app_history`).Scan(&total)
	if err != nil {
		return 0, wrapQueryErr("failed to count launches", err)
	}
	return total, nil
}

// DeleteApp removes the launch record for a package.
func (s *Store) DeleteApp(packageName string) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	result, err := s.db.Exec(`DELETE FROM app_history WHERE package_name = ?`, packageName)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to delete %s", packageName), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", packageName, ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApp(row rowScanner) (*AppRecord, error) {
	var rec AppRecord
	var first, last string

	if err := row.Scan(&rec.PackageName, &rec.ProcessName, &rec.Count, &first, &last); err != nil {
		return nil, err
	}

	var err error
	if rec.FirstLaunched, err = time.Parse(timeFormat, first); err != nil {
		return nil, fmt.Errorf("failed to parse first_launched for %s: %w", rec.PackageName, err)
	}
	if rec.LastLaunched, err = time.Parse(timeFormat, last); err != nil {
		return nil, fmt.Errorf("failed to parse last_launched for %s: %w", rec.PackageName, err)
	}

	return &rec, nil
}
