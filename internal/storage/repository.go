package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tempo/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const (
	timeFormat = time.RFC3339
	dateFormat = "2006-01-02"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database, waits for it to become
// reachable and runs pending migrations. The connection check retries with
// exponential backoff capped at 30 seconds.
func NewSQLiteRepository(dbPath string, connectAttempts int) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := pingWithBackoff(db, connectAttempts); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func pingWithBackoff(db *sql.DB, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := 500 * time.Millisecond
	const maxBackoff = 30 * time.Second

	var err error
	for i := 0; i < attempts; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		slog.Warn("Database not reachable, retrying",
			"attempt", i+1, "backoff", backoff.String(), "error", err)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return err
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports database reachability for the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// isUniqueViolation matches the sqlite unique constraint error without
// depending on driver error codes.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Areas ---

func (r *SQLiteRepository) CreateArea(ctx context.Context, a core.Area) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO areas (name, position) VALUES (?, ?)`, a.Name, a.Position)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("area %q: %w", a.Name, core.ErrConflict)
		}
		return 0, fmt.Errorf("create area: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) ListAreas(ctx context.Context) ([]core.Area, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, position FROM areas ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var areas []core.Area
	for rows.Next() {
		var a core.Area
		if err := rows.Scan(&a.ID, &a.Name, &a.Position); err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (r *SQLiteRepository) UpdateArea(ctx context.Context, a core.Area) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE areas SET name = ?, position = ? WHERE id = ?`, a.Name, a.Position, a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("area %q: %w", a.Name, core.ErrConflict)
		}
		return fmt.Errorf("update area: %w", err)
	}
	return requireRow(res, "area", a.ID)
}

func (r *SQLiteRepository) DeleteArea(ctx context.Context, id int64) error {
	var children int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE area_id = ?`, id).Scan(&children); err != nil {
		return fmt.Errorf("count categories for area: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("area %d has %d categories: %w", id, children, core.ErrConflict)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM areas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete area: %w", err)
	}
	return requireRow(res, "area", id)
}

// --- Categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (area_id, name) VALUES (?, ?)`, c.AreaID, c.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
		}
		return 0, fmt.Errorf("create category: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, area_id, name FROM categories ORDER BY area_id, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.AreaID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET area_id = ?, name = ? WHERE id = ?`, c.AreaID, c.Name, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
		}
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res, "category", c.ID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	var children int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM goals WHERE category_id = ?`, id).Scan(&children); err != nil {
		return fmt.Errorf("count goals for category: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("category %d has %d goals: %w", id, children, core.ErrConflict)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, "category", id)
}

// --- Goals ---

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	tags, err := json.Marshal(g.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	now := time.Now().UTC().Format(timeFormat)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (category_id, name, target_hours, target_period, min_daily_hours, tags, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.CategoryID, g.Name, g.TargetHours.String(), string(g.TargetPeriod),
		nullDecimal(g.MinDailyHours), string(tags), g.Active, now, now)
	if err != nil {
		return 0, fmt.Errorf("create goal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("goal insert id: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved",
		"id", id, "name", g.Name, "target_hours", g.TargetHours.String(), "period", g.TargetPeriod)
	return id, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, name, target_hours, target_period, min_daily_hours, tags, active, created_at, updated_at
		FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, activeOnly bool) ([]core.Goal, error) {
	query := `
		SELECT id, category_id, name, target_hours, target_period, min_daily_hours, tags, active, created_at, updated_at
		FROM goals`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY category_id, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	tags, err := json.Marshal(g.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET category_id = ?, name = ?, target_hours = ?, target_period = ?, min_daily_hours = ?, tags = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		g.CategoryID, g.Name, g.TargetHours.String(), string(g.TargetPeriod),
		nullDecimal(g.MinDailyHours), string(tags), g.Active,
		time.Now().UTC().Format(timeFormat), g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res, "goal", g.ID)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res, "goal", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g         core.Goal
		target    string
		period    string
		minDaily  sql.NullString
		tags      string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&g.ID, &g.CategoryID, &g.Name, &target, &period, &minDaily, &tags, &g.Active, &createdAt, &updatedAt); err != nil {
		return core.Goal{}, err
	}

	var err error
	if g.TargetHours, err = decimal.NewFromString(target); err != nil {
		return core.Goal{}, fmt.Errorf("parse target hours %q: %w", target, err)
	}
	g.TargetPeriod = core.TargetPeriod(period)
	if minDaily.Valid {
		d, err := decimal.NewFromString(minDaily.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("parse min daily hours %q: %w", minDaily.String, err)
		}
		g.MinDailyHours = &d
	}
	if err := json.Unmarshal([]byte(tags), &g.Tags); err != nil {
		return core.Goal{}, fmt.Errorf("parse tags %q: %w", tags, err)
	}
	if g.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return core.Goal{}, fmt.Errorf("parse created_at: %w", err)
	}
	if g.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return core.Goal{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return g, nil
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// --- Tracks ---

// UpsertTrack inserts a track or refreshes an already-synced one by external
// ID. It reports whether the row was newly inserted.
func (r *SQLiteRepository) UpsertTrack(ctx context.Context, t core.Track) (bool, error) {
	var existing int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM tracks WHERE external_id = ?`, t.ExternalID).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("lookup track: %w", err)
	}
	inserted := errors.Is(err, sql.ErrNoRows)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tracks (external_id, start_time, duration_seconds, description, project_name, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			start_time = excluded.start_time,
			duration_seconds = excluded.duration_seconds,
			description = excluded.description,
			project_name = excluded.project_name,
			synced_at = excluded.synced_at`,
		t.ExternalID, t.Start.UTC().Format(timeFormat), t.DurationSeconds,
		t.Description, t.ProjectName, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return false, fmt.Errorf("upsert track: %w", err)
	}
	return inserted, nil
}

func (r *SQLiteRepository) ListTracks(ctx context.Context, from, to time.Time) ([]core.Track, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, external_id, start_time, duration_seconds, description, project_name, synced_at
		FROM tracks
		WHERE start_time >= ? AND start_time <= ?
		ORDER BY start_time`,
		from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []core.Track
	for rows.Next() {
		var (
			t        core.Track
			start    string
			syncedAt string
		)
		if err := rows.Scan(&t.ID, &t.ExternalID, &start, &t.DurationSeconds, &t.Description, &t.ProjectName, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		if t.Start, err = time.Parse(timeFormat, start); err != nil {
			return nil, fmt.Errorf("parse track start: %w", err)
		}
		if t.SyncedAt, err = time.Parse(timeFormat, syncedAt); err != nil {
			return nil, fmt.Errorf("parse track synced_at: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// LatestTrackStart returns the start of the most recent synced track, or the
// zero time when no tracks exist. The sync worker uses it as the incremental
// fetch cursor.
func (r *SQLiteRepository) LatestTrackStart(ctx context.Context) (time.Time, error) {
	var start sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(start_time) FROM tracks`).Scan(&start)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest track start: %w", err)
	}
	if !start.Valid {
		return time.Time{}, nil
	}
	ts, err := time.Parse(timeFormat, start.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse latest track start: %w", err)
	}
	return ts, nil
}

// --- Audits ---

func (r *SQLiteRepository) CreateAudit(ctx context.Context, a core.Audit) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO audits (start_date, end_date, status, created_at)
		VALUES (?, ?, ?, ?)`,
		a.StartDate.Format(dateFormat), a.EndDate.Format(dateFormat),
		string(core.AuditActive), time.Now().UTC().Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("an active audit already exists: %w", core.ErrConflict)
		}
		return 0, fmt.Errorf("create audit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("audit insert id: %w", err)
	}

	slog.InfoContext(ctx, "Audit created",
		"id", id, "start", a.StartDate.Format(dateFormat), "end", a.EndDate.Format(dateFormat))
	return id, nil
}

func (r *SQLiteRepository) GetAudit(ctx context.Context, id int64) (core.Audit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, start_date, end_date, status, created_at FROM audits WHERE id = ?`, id)
	a, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Audit{}, fmt.Errorf("audit %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Audit{}, fmt.Errorf("get audit: %w", err)
	}
	return a, nil
}

// GetActiveAudit returns the single active audit, or ErrNotFound when none is
// active.
func (r *SQLiteRepository) GetActiveAudit(ctx context.Context) (core.Audit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, start_date, end_date, status, created_at FROM audits WHERE status = ?`,
		string(core.AuditActive))
	a, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Audit{}, fmt.Errorf("active audit: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Audit{}, fmt.Errorf("get active audit: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAudits(ctx context.Context) ([]core.Audit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, start_date, end_date, status, created_at FROM audits ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var audits []core.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

func (r *SQLiteRepository) UpdateAuditStatus(ctx context.Context, id int64, status core.AuditStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE audits SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update audit status: %w", err)
	}
	return requireRow(res, "audit", id)
}

func scanAudit(row rowScanner) (core.Audit, error) {
	var (
		a         core.Audit
		start     string
		end       string
		status    string
		createdAt string
	)
	if err := row.Scan(&a.ID, &start, &end, &status, &createdAt); err != nil {
		return core.Audit{}, err
	}

	var err error
	if a.StartDate, err = time.ParseInLocation(dateFormat, start, time.UTC); err != nil {
		return core.Audit{}, fmt.Errorf("parse start date: %w", err)
	}
	if a.EndDate, err = time.ParseInLocation(dateFormat, end, time.UTC); err != nil {
		return core.Audit{}, fmt.Errorf("parse end date: %w", err)
	}
	a.Status = core.AuditStatus(status)
	if a.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return core.Audit{}, fmt.Errorf("parse created_at: %w", err)
	}
	return a, nil
}

// --- Time entries ---

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.TimeEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO time_entries (audit_id, entry_date, hour, activity, important, urgent)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.AuditID, e.Date.Format(dateFormat), e.Hour, e.Activity, e.Important, e.Urgent)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("slot %s hour %d already logged: %w", e.Date.Format(dateFormat), e.Hour, core.ErrConflict)
		}
		return 0, fmt.Errorf("create entry: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.TimeEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, audit_id, entry_date, hour, activity, important, urgent
		FROM time_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TimeEntry{}, fmt.Errorf("entry %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, auditID int64) ([]core.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, audit_id, entry_date, hour, activity, important, urgent
		FROM time_entries WHERE audit_id = ? ORDER BY entry_date, hour`, auditID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.TimeEntry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE time_entries SET activity = ?, important = ?, urgent = ? WHERE id = ?`,
		e.Activity, e.Important, e.Urgent, e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireRow(res, "entry", e.ID)
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res, "entry", id)
}

func (r *SQLiteRepository) CountEntries(ctx context.Context, auditID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM time_entries WHERE audit_id = ?`, auditID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

func scanEntry(row rowScanner) (core.TimeEntry, error) {
	var (
		e    core.TimeEntry
		date string
	)
	if err := row.Scan(&e.ID, &e.AuditID, &date, &e.Hour, &e.Activity, &e.Important, &e.Urgent); err != nil {
		return core.TimeEntry{}, err
	}
	var err error
	if e.Date, err = time.ParseInLocation(dateFormat, date, time.UTC); err != nil {
		return core.TimeEntry{}, fmt.Errorf("parse entry date: %w", err)
	}
	return e, nil
}

func requireRow(res sql.Result, kind string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", kind, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
