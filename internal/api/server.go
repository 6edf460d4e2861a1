// Package api serves the operator HTTP surface: subject CRUD, search, and
// service health. Capture sessions run in-process; this API only manages
// the enrolled-subject records they produce.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veridio/iriscore/internal/db"
	"github.com/veridio/iriscore/internal/imgstore"
	"github.com/veridio/iriscore/internal/security"
	"github.com/veridio/iriscore/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	images *imgstore.Store
}

func NewServer(database *db.DB, opts ...Option) *Server {
	s := &Server{db: database}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithImageStore enables serving subjects' stored eye images.
func WithImageStore(store *imgstore.Store) Option {
	return func(s *Server) { s.images = store }
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/api/subjects", s.subjectsCollection)
	mux.HandleFunc("/api/subjects/", s.subjectByID)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(); err != nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, fmt.Sprintf("database unavailable: %v", err))
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// subjectAPI is the wire form of a subject record. Templates never leave
// the service; only their count does.
type subjectAPI struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Age           int    `json:"age,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Notes         string `json:"notes,omitempty"`
	IrisImagePath string `json:"iris_image_path,omitempty"`
	TemplateCount int    `json:"template_count"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func subjectToAPI(r *db.SubjectRecord) subjectAPI {
	return subjectAPI{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Age:           r.Age,
		Email:         r.Email,
		Phone:         r.Phone,
		Notes:         r.Notes,
		IrisImagePath: r.IrisImagePath,
		TemplateCount: len(r.Templates),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (s *Server) subjectsCollection(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.listSubjects(w, r)
	case http.MethodPost:
		s.createSubject(w, r)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) listSubjects(w http.ResponseWriter, r *http.Request) {
	var (
		records []*db.SubjectRecord
		err     error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		records, err = s.db.Search(r.Context(), q)
	} else {
		records, err = s.db.ListAll(r.Context())
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve subjects: %v", err))
		return
	}

	out := make([]subjectAPI, len(records))
	for i, rec := range records {
		out[i] = subjectToAPI(rec)
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write subjects")
	}
}

func (s *Server) createSubject(w http.ResponseWriter, r *http.Request) {
	var in subjectAPI
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid subject body: %v", err))
		return
	}
	if in.FirstName == "" && in.LastName == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Subject needs a first or last name")
		return
	}

	rec := &db.SubjectRecord{
		ID:        in.ID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Age:       in.Age,
		Email:     in.Email,
		Phone:     in.Phone,
		Notes:     in.Notes,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.db.Insert(r.Context(), rec); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to create subject: %v", err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(subjectToAPI(rec))
}

func (s *Server) subjectByID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := strings.TrimPrefix(r.URL.Path, "/api/subjects/")
	if rest, ok := strings.CutSuffix(id, "/image"); ok && rest != "" && !strings.Contains(rest, "/") {
		s.subjectImage(w, r, rest)
		return
	}
	if id == "" || strings.Contains(id, "/") {
		s.writeJSONError(w, http.StatusNotFound, "Subject not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getSubject(w, r, id)
	case http.MethodPut:
		s.updateSubject(w, r, id)
	case http.MethodDelete:
		s.deleteSubject(w, r, id)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) getSubject(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.db.GetByID(r.Context(), id)
	if errors.Is(err, db.ErrSubjectNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "Subject not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve subject: %v", err))
		return
	}
	json.NewEncoder(w).Encode(subjectToAPI(rec))
}

// updateSubject rewrites the subject's identity fields. Templates and the
// stored eye image are capture-session owned and are preserved as-is.
func (s *Server) updateSubject(w http.ResponseWriter, r *http.Request, id string) {
	var in subjectAPI
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid subject body: %v", err))
		return
	}

	rec, err := s.db.GetByID(r.Context(), id)
	if errors.Is(err, db.ErrSubjectNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "Subject not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve subject: %v", err))
		return
	}

	rec.FirstName = in.FirstName
	rec.LastName = in.LastName
	rec.Age = in.Age
	rec.Email = in.Email
	rec.Phone = in.Phone
	rec.Notes = in.Notes

	if err := s.db.Update(r.Context(), rec); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to update subject: %v", err))
		return
	}
	json.NewEncoder(w).Encode(subjectToAPI(rec))
}

// subjectImage serves the eye image stored during enrollment. The stored
// path comes from the database, so it is validated against the image
// directory before the read.
func (s *Server) subjectImage(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.images == nil {
		s.writeJSONError(w, http.StatusNotFound, "Image store not configured")
		return
	}

	rec, err := s.db.GetByID(r.Context(), id)
	if errors.Is(err, db.ErrSubjectNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "Subject not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve subject: %v", err))
		return
	}
	if rec.IrisImagePath == "" {
		s.writeJSONError(w, http.StatusNotFound, "Subject has no stored image")
		return
	}

	if err := security.ValidatePathWithinDirectory(rec.IrisImagePath, s.images.Dir()); err != nil {
		s.writeJSONError(w, http.StatusForbidden, fmt.Sprintf("Invalid image path: %v", err))
		return
	}
	data, err := s.images.Raw(rec.IrisImagePath)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "Stored image missing")
		return
	}

	contentType := "image/png"
	if strings.HasSuffix(rec.IrisImagePath, ".jpg") || strings.HasSuffix(rec.IrisImagePath, ".jpeg") {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) deleteSubject(w http.ResponseWriter, r *http.Request, id string) {
	err := s.db.Delete(r.Context(), id)
	if errors.Is(err, db.ErrSubjectNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "Subject not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to delete subject: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
