package stubagent

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SessionCookie is the cookie the session endpoint hands out.
const SessionCookie = "AGENTCHAT_SESSION"

// Mode decides how the stub answers chat requests.
type Mode string

const (
	ModeEcho  Mode = "echo"
	ModeEmpty Mode = "empty"
	ModeFail  Mode = "fail"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeEcho, ModeEmpty, ModeFail:
		return m, nil
	case "":
		return ModeEcho, nil
	default:
		return "", errors.Errorf("unknown stub mode %q (expected echo, empty or fail)", s)
	}
}

type Options struct {
	Addr           string
	BasePath       string
	Mode           Mode
	Delay          time.Duration
	DefaultModel   agent.Model
	AllowedOrigins []string
}

// Server is a stand-in for the GDP agent: it speaks the same session and
// chat protocol without any model behind it.
type Server struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]time.Time
	chats    int
}

func NewServer(opts Options) (*Server, error) {
	if opts.Mode == "" {
		opts.Mode = ModeEcho
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = agent.DefaultModel
	}
	if !opts.DefaultModel.Valid() {
		return nil, errors.Errorf("unknown default model %q", opts.DefaultModel)
	}
	if opts.Delay < 0 {
		return nil, errors.New("delay cannot be negative")
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	opts.BasePath = "/" + strings.Trim(opts.BasePath, "/")

	return &Server{
		opts:     opts,
		sessions: map[string]time.Time{},
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", agent.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route(s.opts.BasePath, func(r chi.Router) {
		r.Get("/session/start", s.handleSessionStart)
		r.Post("/chat", s.handleChat)
	})
	return r
}

func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) ChatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	id := ""
	if ck, err := r.Cookie(SessionCookie); err == nil && s.knownSession(ck.Value) {
		id = ck.Value
	} else {
		id = uuid.NewString()
		s.mu.Lock()
		s.sessions[id] = time.Now()
		s.mu.Unlock()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": "started"})
}

func (s *Server) knownSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req agent.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "prompt is required"})
		return
	}
	model := s.opts.DefaultModel
	if req.Model != "" {
		m, err := agent.ParseModel(string(req.Model))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
			return
		}
		model = m
	}

	s.mu.Lock()
	s.chats++
	s.mu.Unlock()

	session := ""
	if ck, err := r.Cookie(SessionCookie); err == nil {
		session = ck.Value
	}
	log.Debug().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("session", session).
		Str("model", string(model)).
		Msg("stub chat request")

	if s.opts.Delay > 0 {
		t := time.NewTimer(s.opts.Delay)
		select {
		case <-t.C:
		case <-r.Context().Done():
			t.Stop()
			return
		}
	}

	switch s.opts.Mode {
	case ModeFail:
		http.Error(w, "agent failure", http.StatusInternalServerError)
	case ModeEmpty:
		w.WriteHeader(http.StatusOK)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "[%s] %s", model, req.Prompt)
	}
}

// Run serves on opts.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.opts.Addr)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down stub agent...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Msg("stub agent shutdown complete")
		return nil
	})
	eg.Go(func() error {
		log.Info().
			Str("addr", ln.Addr().String()).
			Str("base_path", s.opts.BasePath).
			Str("mode", string(s.opts.Mode)).
			Msg("starting stub agent")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})
	return eg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}
