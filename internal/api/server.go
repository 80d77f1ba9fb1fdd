// Package api serves the engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"brightedge-go-etl/internal/app"
	"brightedge-go-etl/internal/fetch"
	"brightedge-go-etl/internal/models"
	"brightedge-go-etl/pkg/logger"
)

// Processor runs one input through the engine and persists its outputs.
type Processor interface {
	ProcessBytes(ctx context.Context, data []byte, contentType, filename string) (app.Outcome, error)
	ProcessURL(ctx context.Context, rawURL string) (app.Outcome, error)
}

type Server struct {
	proc      Processor
	router    *chi.Mux
	maxUpload int64
	log       *logger.Logger
}

func NewServer(proc Processor, maxUpload int64) *Server {
	s := &Server{
		proc:      proc,
		router:    chi.NewRouter(),
		maxUpload: maxUpload,
		log:       logger.New(),
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequest)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Post("/process", s.handleProcess)
	s.router.Post("/process/upload", s.handleUpload)
	s.router.Post("/process/url", s.handleURL)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

type processResponse struct {
	Success  bool               `json:"success"`
	Data     []*models.Row      `json:"data"`
	Types    *models.Schema     `json:"types"`
	Metadata models.RunMetadata `json:"metadata"`
	Paths    any                `json:"paths,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type urlReq struct {
	URL string `json:"url"`
}

// POST /process  raw text body; ?filename= names the run
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := r.URL.Query().Get("filename")
	if name == "" {
		name = "request.txt"
	}
	out, err := s.proc.ProcessBytes(r.Context(), body, r.Header.Get("Content-Type"), name)
	s.respond(w, r, out, err)
}

// POST /process/upload  multipart file=...
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, processResponse{Error: "multipart parse error"})
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, processResponse{Error: "file part 'file' required"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.proc.ProcessBytes(r.Context(), data, hdr.Header.Get("Content-Type"), hdr.Filename)
	s.respond(w, r, out, err)
}

// POST /process/url  { "url": "https://..." }
func (s *Server) handleURL(w http.ResponseWriter, r *http.Request) {
	var req urlReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, processResponse{Error: "invalid payload"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	out, err := s.proc.ProcessURL(ctx, req.URL)
	s.respond(w, r, out, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, out app.Outcome, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{
		Success:  true,
		Data:     out.Result.Table.Rows,
		Types:    out.Result.Schema,
		Metadata: out.Result.Metadata,
		Paths:    out.Paths,
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Errorf("%s %s [%s]: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	}
	writeJSON(w, code, processResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, models.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.As(err, &mbe), errors.Is(err, models.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fetch.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, fetch.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Infof("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
