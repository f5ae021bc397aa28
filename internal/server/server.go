// Package server provides the genrelay HTTP API server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/genrelay/genrelay/internal/config"
	"github.com/genrelay/genrelay/internal/fetch"
	"github.com/genrelay/genrelay/internal/logging"
	"github.com/genrelay/genrelay/internal/store"
	genrelaytelegram "github.com/genrelay/genrelay/internal/telegram"
	"github.com/genrelay/genrelay/llm"
	"github.com/genrelay/genrelay/llm/gemini"
)

// imageInstruction is the fixed prompt sent alongside every described image.
const imageInstruction = "What is in this photo?"

// ImageFetcher retrieves and validates a remote image.
type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) (llm.Image, error)
}

// Server is the genrelay HTTP API server.
type Server struct {
	config  *config.Config
	model   llm.Client
	fetcher ImageFetcher
	store   *store.Store
	router  chi.Router
	log     *logrus.Logger

	telegramBot *genrelaytelegram.Bot // nil if Telegram is not configured
}

// New creates a new Server with all dependencies.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	s := newServer(
		cfg,
		gemini.New(cfg.GenerativeAIKey, cfg.Model),
		fetch.New(cfg.FetchTimeout, cfg.MaxImageBytes),
		st,
	)

	// Initialize the Telegram bot if configured.
	if cfg.TelegramEnabled() {
		bot, err := genrelaytelegram.NewBot(cfg.TelegramBotToken, s.model, s.fetcher)
		if err != nil {
			s.log.Warnf("Failed to initialize Telegram bot: %v", err)
		} else {
			s.telegramBot = bot
			s.log.Info("Telegram bot enabled (long polling)")
		}
	}

	return s, nil
}

// newServer wires a Server from explicit dependencies. Tests use it to
// substitute stub model clients and fetchers.
func newServer(cfg *config.Config, model llm.Client, fetcher ImageFetcher, st *store.Store) *Server {
	s := &Server{
		config:  cfg,
		model:   model,
		fetcher: fetcher,
		store:   st,
		log:     logging.GetLogger(),
	}
	s.router = s.buildRouter()
	return s
}

// Start starts the HTTP server and (optionally) the Telegram bot. Blocks
// until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s.telegramBot != nil {
		go func() {
			if err := s.telegramBot.Run(ctx); err != nil {
				s.log.Errorf("Telegram bot error: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    s.config.ServerAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Infof("genrelay server listening on %s", s.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return s.store.Close()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))

	r.Post("/generate_text", s.handleGenerateText)
	r.Post("/image_to_text", s.handleImageToText)

	r.Get("/generations", s.handleListGenerations)
	r.Get("/generations/{id}", s.handleGetGeneration)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// requestLogger logs one line per completed request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Infof("%s -- %s %s -- %d (%s)",
			r.RemoteAddr, r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// --- Request/Response types ---

type textRequest struct {
	Prompt string `json:"prompt"`
}

type imageRequest struct {
	URL string `json:"url"`
}

type generatedResponse struct {
	GeneratedText string `json:"generated_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	text, err := s.model.GenerateText(r.Context(), prompt)
	if err != nil {
		s.log.Errorf("Text generation failed: %v", err)
		s.record(store.KindText, prompt, "", err)
		writeError(w, http.StatusBadGateway, "model call failed")
		return
	}

	s.record(store.KindText, prompt, text, nil)
	writeJSON(w, http.StatusOK, generatedResponse{GeneratedText: text})
}

func (s *Server) handleImageToText(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	img, err := s.fetcher.FetchImage(r.Context(), req.URL)
	if err != nil {
		s.log.Errorf("Image fetch failed for %s: %v", req.URL, err)
		s.record(store.KindImage, req.URL, "", err)
		writeError(w, fetchErrorStatus(err), "fetching image: "+err.Error())
		return
	}

	text, err := s.model.GenerateFromImage(r.Context(), imageInstruction, img)
	if err != nil {
		s.log.Errorf("Image description failed: %v", err)
		s.record(store.KindImage, req.URL, "", err)
		writeError(w, http.StatusBadGateway, "model call failed")
		return
	}

	s.record(store.KindImage, req.URL, text, nil)
	writeJSON(w, http.StatusOK, generatedResponse{GeneratedText: text})
}

// fetchErrorStatus maps a fetch failure to an HTTP status: bad input from the
// caller is a 4xx, an unreachable or misbehaving remote is a 502.
func fetchErrorStatus(err error) int {
	var remoteErr *fetch.RemoteError
	switch {
	case errors.Is(err, fetch.ErrScheme):
		return http.StatusBadRequest
	case errors.Is(err, fetch.ErrNotImage), errors.Is(err, fetch.ErrTooLarge):
		return http.StatusUnprocessableEntity
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	generations, err := s.store.List(s.config.HistoryLimit)
	if err != nil {
		s.log.Errorf("Error listing generations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list generations")
		return
	}
	if generations == nil {
		generations = []*store.Generation{}
	}
	writeJSON(w, http.StatusOK, generations)
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "generation not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// record persists one request outcome to the history store. History is an
// audit trail; failures to write it never fail the request.
func (s *Server) record(kind store.Kind, input, output string, genErr error) {
	g := &store.Generation{
		ID:        uuid.New().String()[:8],
		Kind:      kind,
		Input:     input,
		Output:    output,
		Status:    store.StatusOK,
		CreatedAt: time.Now().UTC(),
	}
	if genErr != nil {
		g.Status = store.StatusError
		g.Error = genErr.Error()
	}
	if err := s.store.Add(g); err != nil {
		s.log.Errorf("Error recording generation: %v", err)
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
