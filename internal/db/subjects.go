package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SubjectRecord is one enrolled subject. Demographic fields are opaque to
// the recognition core. Templates holds one or more equal-length float
// vectors from the same eye, chosen for diversity at enrollment;
// the list is append-only once stored.
type SubjectRecord struct {
	ID            string      `json:"id"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Age           int         `json:"age"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Notes         string      `json:"notes"`
	IrisImagePath string      `json:"iris_image_path"`
	Templates     [][]float64 `json:"iris_templates,omitempty"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
}

// ErrSubjectNotFound is returned when a lookup matches no record.
var ErrSubjectNotFound = errors.New("subject not found")

const subjectColumns = `id, first_name, last_name, age, email, phone, notes,
	iris_image_path, iris_template, iris_templates, created_at, updated_at`

func nowISO() string { return time.Now().UTC().Format(time.RFC3339) }

// Insert stores a new subject. Timestamps are filled if empty; templates
// are always written in the v2 JSON column.
func (db *DB) Insert(ctx context.Context, r *SubjectRecord) error {
	if r.ID == "" {
		return fmt.Errorf("insert subject: empty id")
	}
	if r.CreatedAt == "" {
		r.CreatedAt = nowISO()
	}
	r.UpdatedAt = nowISO()
	tpls, err := encodeTemplates(r.Templates)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO subjects (id, first_name, last_name, age, email, phone, notes,
			iris_image_path, iris_template, iris_templates, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
		r.ID, r.FirstName, r.LastName, r.Age, r.Email, r.Phone, r.Notes,
		r.IrisImagePath, tpls, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

// GetByID fetches one subject with templates.
func (db *DB) GetByID(ctx context.Context, id string) (*SubjectRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id)
	r, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return r, err
}

// ListAll returns every subject without template payloads, ordered by last
// then first name.
func (db *DB) ListAll(ctx context.Context) ([]*SubjectRecord, error) {
	return db.querySubjects(ctx, `SELECT `+subjectColumns+`
		FROM subjects ORDER BY last_name, first_name`, false)
}

// Search matches a case-insensitive substring against names, email, and
// phone.
func (db *DB) Search(ctx context.Context, q string) ([]*SubjectRecord, error) {
	like := "%" + strings.ToLower(q) + "%"
	return db.querySubjectsArgs(ctx, `SELECT `+subjectColumns+` FROM subjects
		WHERE lower(first_name) LIKE ? OR lower(last_name) LIKE ?
		   OR lower(email) LIKE ? OR phone LIKE ?
		ORDER BY last_name, first_name`, false, like, like, like, like)
}

// ListWithTemplates returns every subject including decoded templates.
// Legacy v1 single-template rows are migrated into a singleton list on
// read.
func (db *DB) ListWithTemplates(ctx context.Context) ([]*SubjectRecord, error) {
	return db.querySubjects(ctx, `SELECT `+subjectColumns+`
		FROM subjects ORDER BY last_name, first_name`, true)
}

// Update rewrites a subject row. Templates are persisted in the v2 column
// and any legacy v1 payload is cleared.
func (db *DB) Update(ctx context.Context, r *SubjectRecord) error {
	r.UpdatedAt = nowISO()
	tpls, err := encodeTemplates(r.Templates)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE subjects SET first_name = ?, last_name = ?, age = ?, email = ?,
			phone = ?, notes = ?, iris_image_path = ?,
			iris_template = NULL, iris_templates = ?, updated_at = ?
		WHERE id = ?`,
		r.FirstName, r.LastName, r.Age, r.Email, r.Phone, r.Notes,
		r.IrisImagePath, tpls, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSubjectNotFound, r.ID)
	}
	return nil
}

// Delete removes a subject row.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return nil
}

func (db *DB) querySubjects(ctx context.Context, query string, withTemplates bool) ([]*SubjectRecord, error) {
	return db.querySubjectsArgs(ctx, query, withTemplates)
}

func (db *DB) querySubjectsArgs(ctx context.Context, query string, withTemplates bool, args ...any) ([]*SubjectRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var out []*SubjectRecord
	for rows.Next() {
		r, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		if !withTemplates {
			r.Templates = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*SubjectRecord, error) {
	var r SubjectRecord
	var v1, v2 sql.NullString
	err := row.Scan(&r.ID, &r.FirstName, &r.LastName, &r.Age, &r.Email, &r.Phone,
		&r.Notes, &r.IrisImagePath, &v1, &v2, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Templates, err = decodeTemplates(v1, v2)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", r.ID, err)
	}
	return &r, nil
}

func encodeTemplates(tpls [][]float64) (string, error) {
	if len(tpls) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tpls)
	if err != nil {
		return "", fmt.Errorf("encode templates: %w", err)
	}
	return string(data), nil
}

// decodeTemplates prefers the v2 JSON column; a legacy v1 comma-separated
// template is accepted on read and surfaces as a singleton list.
func decodeTemplates(v1, v2 sql.NullString) ([][]float64, error) {
	if v2.Valid && v2.String != "" {
		var tpls [][]float64
		if err := json.Unmarshal([]byte(v2.String), &tpls); err != nil {
			return nil, fmt.Errorf("decode templates: %w", err)
		}
		return tpls, nil
	}
	if v1.Valid && v1.String != "" {
		parts := strings.Split(v1.String, ",")
		tpl := make([]float64, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("decode legacy template: %w", err)
			}
			tpl = append(tpl, v)
		}
		return [][]float64{tpl}, nil
	}
	return nil, nil
}
