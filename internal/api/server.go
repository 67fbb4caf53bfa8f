package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"cardgen/internal/cards"
	"cardgen/internal/models"
	"cardgen/internal/services"
)

const (
	maxMultipartMemory = 8 << 20 // 8 MB
	maxJSONBody        = 1 << 20
	sessionCookie      = "cardgen_session"

	categoryConflict = "conflict"
	categoryNotFound = "not_found"
)

// FlashcardGenerator produces a flashcard set for one request.
type FlashcardGenerator interface {
	GenerateFlashcards(ctx context.Context, req models.FlashcardRequest) (models.FlashcardSet, error)
}

// TextExtractor pulls study text out of an uploaded document.
type TextExtractor interface {
	ExtractText(r io.ReaderAt, size int64) (string, error)
}

// Options tunes the HTTP surface.
type Options struct {
	MaxUploadBytes int64
}

type Server struct {
	router    chi.Router
	generator FlashcardGenerator
	documents TextExtractor
	sessions  *SessionManager
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewServer(
	generator FlashcardGenerator,
	documents TextExtractor,
	sessions *SessionManager,
	logger *zap.Logger,
	opts Options,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = maxMultipartMemory
	}
	s := &Server{
		router:    chi.NewRouter(),
		generator: generator,
		documents: documents,
		sessions:  sessions,
		logger:    logger.Named("api"),
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/flashcards", s.handleGenerate)
		r.Get("/flashcards", s.handleGetFlashcards)
		r.Delete("/flashcards", s.handleClear)
		r.Post("/settings", s.handleSettings)

		r.Get("/export/json", s.handleExportJSON)
		r.Get("/export/csv", s.handleExportCSV)

		r.Post("/documents/text", s.handleExtractText)

		r.Get("/study/next", s.handleStudyNext)
		r.Post("/study/{number}/review", s.handleStudyReview)

		r.Delete("/session", s.handleEndSession)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Text         string `json:"text"`
	CardCount    int    `json:"cardCount"`
	AnswerLength string `json:"answerLength"`
}

func (p generateRequest) toModel() (models.FlashcardRequest, error) {
	req := models.FlashcardRequest{
		RawText:      p.Text,
		CardCount:    p.CardCount,
		AnswerLength: models.DefaultAnswerLength,
	}
	if req.CardCount == 0 {
		req.CardCount = models.DefaultCardCount
	}
	if strings.TrimSpace(p.AnswerLength) != "" {
		band, err := models.ParseAnswerLength(p.AnswerLength)
		if err != nil {
			return req, err
		}
		req.AnswerLength = band
	}
	return req, req.Validate()
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)

	var payload generateRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, models.CategoryValidation, "invalid payload")
		return
	}
	req, err := payload.toModel()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if !session.TryBeginGeneration() {
		writeError(w, http.StatusConflict, categoryConflict, "a generation is already in progress")
		return
	}
	defer session.EndGeneration()

	set, err := s.generator.GenerateFlashcards(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	session.Load(set, s.now())
	s.writeFlashcards(w, http.StatusCreated, set, models.DisplaySettings{})
}

func (s *Server) handleGetFlashcards(w http.ResponseWriter, r *http.Request) {
	session, ok := s.existingSession(r)
	if !ok {
		s.writeServiceError(w, r, ErrNoFlashcards)
		return
	}
	set, settings, ok := session.Snapshot()
	if !ok {
		s.writeServiceError(w, r, ErrNoFlashcards)
		return
	}
	s.writeFlashcards(w, http.StatusOK, set, settings)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if session, ok := s.existingSession(r); ok {
		session.Clear(s.now())
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsRequest struct {
	Action string `json:"action"`
	Value  bool   `json:"value"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)

	var payload settingsRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, models.CategoryValidation, "invalid payload")
		return
	}
	kind, err := models.ParseActionKind(payload.Action)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	session.Apply(models.Action{Kind: kind, Value: payload.Value}, s.now())
	set, settings, _ := session.Snapshot()
	s.writeFlashcards(w, http.StatusOK, set, settings)
}

func (s *Server) writeFlashcards(w http.ResponseWriter, status int, set models.FlashcardSet, settings models.DisplaySettings) {
	writeJSON(w, status, map[string]any{
		"flashcards": cards.Project(set, settings),
		"settings":   settings,
		"count":      len(set),
	})
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	set, ok := s.loadedSet(r)
	if !ok {
		s.writeServiceError(w, r, ErrNoFlashcards)
		return
	}
	data, err := cards.ExportJSON(set)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, "application/json; charset=utf-8", "flashcards.json", data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	set, ok := s.loadedSet(r)
	if !ok {
		s.writeServiceError(w, r, ErrNoFlashcards)
		return
	}
	data, err := cards.ExportCSV(set)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", "flashcards.csv", data)
}

func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, models.CategoryValidation, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, models.CategoryValidation, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, models.CategoryValidation, "no file uploaded")
		return
	}
	defer file.Close()

	text, err := s.documents.ExtractText(file, header.Size)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info("extracted document text",
		zap.String("name", header.Filename),
		zap.Int64("size", header.Size),
		zap.Int("characters", len(text)))
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       header.Filename,
		"text":       text,
		"characters": len(text),
	})
}

func (s *Server) handleStudyNext(w http.ResponseWriter, r *http.Request) {
	session, ok := s.existingSession(r)
	if !ok {
		s.writeServiceError(w, r, ErrNoFlashcards)
		return
	}
	item, card, err := session.NextStudy(s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"card":     card,
		"schedule": item,
	})
}

type reviewRequest struct {
	Rating string `json:"rating"`
}

func (s *Server) handleStudyReview(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, models.CategoryValidation, "invalid card number")
		return
	}
	var payload reviewRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, models.CategoryValidation, "invalid payload")
		return
	}

	session, ok := s.existingSession(r)
	if !ok {
		s.writeServiceError(w, r, ErrNoFlashcards)
		return
	}
	item, err := session.Review(number, payload.Rating, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": item})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Remove(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// existingSession resolves the caller's session without starting one.
func (s *Server) existingSession(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.sessions.Get(cookie.Value)
}

func (s *Server) loadedSet(r *http.Request) (models.FlashcardSet, bool) {
	session, ok := s.existingSession(r)
	if !ok {
		return nil, false
	}
	set, _, ok := session.Snapshot()
	return set, ok
}

// session resolves the caller's session from its cookie, starting a new one
// when the cookie is missing or stale. Only routes that change state use it.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	if session, ok := s.existingSession(r); ok {
		return session
	}
	session := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Debug("session started", zap.String("session", session.ID))
	return session
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNoFlashcards) {
		writeError(w, http.StatusNotFound, categoryNotFound, err.Error())
		return
	}

	category := models.CategoryOf(err)
	status := http.StatusInternalServerError
	message := err.Error()
	switch category {
	case models.CategoryValidation:
		status = http.StatusBadRequest
	case models.CategoryTransport:
		status = http.StatusBadGateway
		if services.UpstreamStatus(err) == http.StatusTooManyRequests {
			status = http.StatusTooManyRequests
		}
	case models.CategoryMalformedResponse:
		status = http.StatusBadGateway
	case models.CategoryInternal:
		message = "internal error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("category", category),
			zap.Error(err))
	}
	writeError(w, status, category, message)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, map[string]string{"error": message, "category": category})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
