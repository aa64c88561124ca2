// Package coursestore persists fetched catalogs and their validation
// reports in sqlite. Each term's catalog is replaced atomically on
// upsert so readers never see a half-written term.
package coursestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"advisor-backend/lib/scrapers/fose"
	"advisor-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("coursestore")

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and applies the
// schema. ":memory:" gives an ephemeral store for tests.
func Open(path string) (Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return Store{}, err
	}
	return NewStore(database), nil
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Close() error {
	return s.db.Close()
}

// Upsert replaces the stored catalog for a term with the given
// courses. Courses no longer present are removed.
func (s Store) Upsert(ctx context.Context, termCode string, courses []fose.CourseData) error {
	ctx, span := tracer.Start(ctx, "coursestore:Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("term_code", termCode),
		attribute.Int("courses", len(courses)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`delete from courses where term_code = ?`, termCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to clear term")
		return err
	}

	now := timezone.Now().Unix()
	for _, course := range courses {
		data, err := json.Marshal(course)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to marshal course")
			return err
		}
		_, err = tx.ExecContext(ctx,
			`insert into courses
				(term_code, course_code, subject_code, course_number, title, data, updated_at)
			values (?, ?, ?, ?, ?, ?, ?)`,
			termCode, course.CourseCode, course.SubjectCode,
			course.CourseNumber, course.Title, string(data), now,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert course")
			return err
		}
	}

	return tx.Commit()
}

// Get returns one course of a term, or sql.ErrNoRows.
func (s Store) Get(ctx context.Context, termCode, courseCode string) (fose.CourseData, error) {
	ctx, span := tracer.Start(ctx, "coursestore:Get")
	defer span.End()

	var data string
	err := s.db.QueryRowContext(ctx,
		`select data from courses where term_code = ? and course_code = ?`,
		termCode, courseCode,
	).Scan(&data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query course")
		return fose.CourseData{}, err
	}

	var course fose.CourseData
	err = json.Unmarshal([]byte(data), &course)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal course")
		return fose.CourseData{}, err
	}
	return course, nil
}

type ListOptions struct {
	// empty matches every subject
	SubjectCode string
}

// List returns a term's courses ordered by course code.
func (s Store) List(ctx context.Context, termCode string, opts ListOptions) ([]fose.CourseData, error) {
	ctx, span := tracer.Start(ctx, "coursestore:List")
	defer span.End()
	span.SetAttributes(attribute.String("term_code", termCode))

	query := `select data from courses where term_code = ?`
	args := []any{termCode}
	if opts.SubjectCode != "" {
		query += ` and subject_code = ?`
		args = append(args, opts.SubjectCode)
	}
	query += ` order by course_code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query courses")
		return nil, err
	}
	defer rows.Close()

	var courses []fose.CourseData
	for rows.Next() {
		var data string
		err := rows.Scan(&data)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to scan course")
			return nil, err
		}
		var course fose.CourseData
		err = json.Unmarshal([]byte(data), &course)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to unmarshal course")
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

// DeleteTerm drops every course of a term.
func (s Store) DeleteTerm(ctx context.Context, termCode string) error {
	ctx, span := tracer.Start(ctx, "coursestore:DeleteTerm")
	defer span.End()
	span.SetAttributes(attribute.String("term_code", termCode))

	_, err := s.db.ExecContext(ctx,
		`delete from courses where term_code = ?`, termCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete term")
	}
	return err
}

// SaveReport archives a fetch run's validation report.
func (s Store) SaveReport(ctx context.Context, report *fose.Report) error {
	ctx, span := tracer.Start(ctx, "coursestore:SaveReport")
	defer span.End()

	data, err := json.Marshal(report.ToMap())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal report")
		return err
	}

	hasIssues := 0
	if report.HasIssues() {
		hasIssues = 1
	}
	_, err = s.db.ExecContext(ctx,
		`insert into fetch_reports (term_code, created_at, has_issues, data)
		values (?, ?, ?, ?)`,
		report.TermCode(), timezone.Now().Unix(), hasIssues, string(data),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert report")
	}
	return err
}

type StoredReport struct {
	Id        int64
	TermCode  string
	CreatedAt time.Time
	HasIssues bool
	Data      map[string]any
}

// LatestReport returns the most recent stored report for a term, or
// sql.ErrNoRows.
func (s Store) LatestReport(ctx context.Context, termCode string) (StoredReport, error) {
	ctx, span := tracer.Start(ctx, "coursestore:LatestReport")
	defer span.End()

	var report StoredReport
	var createdAt int64
	var hasIssues int
	var data string
	err := s.db.QueryRowContext(ctx,
		`select id, term_code, created_at, has_issues, data
		from fetch_reports where term_code = ?
		order by created_at desc, id desc limit 1`,
		termCode,
	).Scan(&report.Id, &report.TermCode, &createdAt, &hasIssues, &data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query report")
		return StoredReport{}, err
	}

	report.CreatedAt = time.Unix(createdAt, 0).In(timezone.Location)
	report.HasIssues = hasIssues != 0
	err = json.Unmarshal([]byte(data), &report.Data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal report")
		return StoredReport{}, err
	}
	return report, nil
}
