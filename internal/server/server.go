package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/gethired/job-board/internal/config"
	"github.com/gethired/job-board/internal/middleware"
	"github.com/getsentry/raven-go"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// Response is the body of every JSON answer.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Server struct {
	cfg          config.Config
	Conn         *sql.DB
	router       *mux.Router
	SessionStore *sessions.CookieStore
	bigCache     *bigcache.BigCache
	log          zerolog.Logger
	httpServer   *http.Server
}

func NewServer(
	cfg config.Config,
	conn *sql.DB,
	r *mux.Router,
	sessionStore *sessions.CookieStore,
	log zerolog.Logger,
) Server {
	raven.SetDSN(cfg.SentryDSN)

	bigCache, err := bigcache.NewBigCache(bigcache.DefaultConfig(12 * time.Hour))
	svr := Server{
		cfg:          cfg,
		Conn:         conn,
		router:       r,
		SessionStore: sessionStore,
		bigCache:     bigCache,
		log:          log,
	}
	if err != nil {
		svr.Log(err, "unable to initialise big cache")
	}
	svr.httpServer = &http.Server{
		Addr: svr.addr(),
		Handler: middleware.HTTPSMiddleware(
			middleware.LoggingMiddleware(log, middleware.HeadersMiddleware(r, cfg.Env)),
			cfg.Env,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return svr
}

func (s Server) RegisterRoute(path string, handler func(w http.ResponseWriter, r *http.Request), methods []string) {
	s.router.HandleFunc(path, handler).Methods(methods...)
}

func (s Server) GetConfig() config.Config {
	return s.cfg
}

func (s Server) Logger() zerolog.Logger {
	return s.log
}

func (s Server) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (s Server) Success(w http.ResponseWriter, status int, msg string) {
	s.JSON(w, status, Response{Success: true, Message: msg})
}

func (s Server) Fail(w http.ResponseWriter, status int, msg string) {
	s.JSON(w, status, Response{Success: false, Error: msg})
}

func (s Server) Log(err error, msg string) {
	raven.CaptureErrorAndWait(err, map[string]string{"ctx": msg})
	s.log.Error().Err(err).Msg(msg)
}

func (s Server) addr() string {
	if s.cfg.Env == "dev" {
		return fmt.Sprintf("localhost:%s", s.cfg.Port)
	}
	return fmt.Sprintf(":%s", s.cfg.Port)
}

// Run blocks until the server stops. A stop caused by Shutdown is not an error.
func (s Server) Run() error {
	if s.cfg.Env == "dev" {
		s.log.Info().Msgf("local env http://localhost:%s", s.cfg.Port)
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s Server) GetJWTSigningKey() []byte {
	return s.cfg.JwtSigningKey
}

func (s Server) CacheGet(key string) ([]byte, bool) {
	if s.bigCache == nil {
		return nil, false
	}
	out, err := s.bigCache.Get(key)
	if err != nil {
		return []byte{}, false
	}
	return out, true
}

func (s Server) CacheSet(key string, val []byte) error {
	if s.bigCache == nil {
		return nil
	}
	return s.bigCache.Set(key, val)
}
