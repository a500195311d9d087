// Package sqlite persists committed reports.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"updatestracker/internal/domain"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// One writer avoids SQLITE_BUSY under concurrent commits.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL,
		report_date        DATETIME NOT NULL,
		accomplishments    TEXT NOT NULL,
		in_progress_raw    TEXT DEFAULT '',
		blockers           TEXT DEFAULT '',
		notes              TEXT DEFAULT '',
		completed          TEXT NOT NULL DEFAULT '["None"]',
		in_progress        TEXT NOT NULL DEFAULT '["None"]',
		support            TEXT NOT NULL DEFAULT 'None',
		method             TEXT NOT NULL,
		model              TEXT DEFAULT '',
		raw_generated_text TEXT DEFAULT '',
		fallback_reason    TEXT DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'completed',
		created_at         DATETIME NOT NULL,
		updated_at         DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_report_date ON reports(report_date);
	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertReport assigns the id, timestamps and defaults, stores the report
// and returns the stored copy.
func (s *Store) InsertReport(ctx context.Context, r domain.Report) (domain.Report, error) {
	now := s.now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.ReportDate.IsZero() {
		r.ReportDate = now
	}
	r.ReportDate = r.ReportDate.UTC()
	if r.Title == "" {
		r.Title = domain.DefaultReportTitle(r.ReportDate)
	}
	if r.Status == "" {
		r.Status = domain.StatusCompleted
	}
	r.Sections = domain.NewParsedSections(r.Sections.Completed, r.Sections.InProgress, r.Sections.Support)

	completed, inProgress, err := encodeSections(r.Sections)
	if err != nil {
		return domain.Report{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, title, report_date, accomplishments, in_progress_raw, blockers, notes,
			completed, in_progress, support, method, model, raw_generated_text, fallback_reason, status,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.ReportDate, r.RawInputs.Accomplishments, r.RawInputs.InProgress,
		r.RawInputs.Blockers, r.RawInputs.Notes, completed, inProgress, r.Sections.Support,
		string(r.Method), r.Model, r.RawGeneratedText, r.FallbackReason, string(r.Status),
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return domain.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return r, nil
}

const reportColumns = `id, title, report_date, accomplishments, in_progress_raw, blockers, notes,
	completed, in_progress, support, method, model, raw_generated_text, fallback_reason, status,
	created_at, updated_at`

func (s *Store) GetReport(ctx context.Context, id string) (domain.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, fmt.Errorf("%w: %s", domain.ErrReportNotFound, id)
	}
	return r, err
}

// ListReports returns the newest reports first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.query(ctx,
		`SELECT `+reportColumns+` FROM reports ORDER BY report_date DESC, created_at DESC LIMIT ?`, limit)
}

// ListReportsByDateRange returns reports dated in [from, to), oldest first.
func (s *Store) ListReportsByDateRange(ctx context.Context, from, to time.Time) ([]domain.Report, error) {
	return s.query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE report_date >= ? AND report_date < ?
		 ORDER BY report_date, created_at`, from.UTC(), to.UTC())
}

// ReportUpdate carries the editable fields; nil fields are left unchanged.
type ReportUpdate struct {
	Title    *string
	Status   *domain.ReportStatus
	Sections *domain.ParsedSections
}

func (s *Store) UpdateReportSections(ctx context.Context, id string, u ReportUpdate) (domain.Report, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Report{}, err
	}
	defer tx.Rollback()

	r, err := scanReport(tx.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, fmt.Errorf("%w: %s", domain.ErrReportNotFound, id)
	}
	if err != nil {
		return domain.Report{}, err
	}

	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Sections != nil {
		r.Sections = domain.NewParsedSections(u.Sections.Completed, u.Sections.InProgress, u.Sections.Support)
	}
	r.UpdatedAt = s.now().UTC()

	completed, inProgress, err := encodeSections(r.Sections)
	if err != nil {
		return domain.Report{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE reports SET title = ?, status = ?, completed = ?, in_progress = ?, support = ?, updated_at = ?
		 WHERE id = ?`,
		r.Title, string(r.Status), completed, inProgress, r.Sections.Support, r.UpdatedAt, id,
	)
	if err != nil {
		return domain.Report{}, fmt.Errorf("update report: %w", err)
	}
	return r, tx.Commit()
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrReportNotFound, id)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (domain.Report, error) {
	var (
		r                     domain.Report
		completed, inProgress string
		method, status        string
	)
	err := row.Scan(
		&r.ID, &r.Title, &r.ReportDate, &r.RawInputs.Accomplishments, &r.RawInputs.InProgress,
		&r.RawInputs.Blockers, &r.RawInputs.Notes, &completed, &inProgress, &r.Sections.Support,
		&method, &r.Model, &r.RawGeneratedText, &r.FallbackReason, &status,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return domain.Report{}, err
	}
	r.Method = domain.Method(method)
	r.Status = domain.ReportStatus(status)
	if err := json.Unmarshal([]byte(completed), &r.Sections.Completed); err != nil {
		return domain.Report{}, fmt.Errorf("decode completed for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(inProgress), &r.Sections.InProgress); err != nil {
		return domain.Report{}, fmt.Errorf("decode in_progress for %s: %w", r.ID, err)
	}
	return r, nil
}

func encodeSections(p domain.ParsedSections) (string, string, error) {
	completed, err := json.Marshal(p.Completed)
	if err != nil {
		return "", "", fmt.Errorf("encode completed: %w", err)
	}
	inProgress, err := json.Marshal(p.InProgress)
	if err != nil {
		return "", "", fmt.Errorf("encode in_progress: %w", err)
	}
	return string(completed), string(inProgress), nil
}
