package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-chathub/internal/config"
	"github.com/npezzotti/go-chathub/internal/database"
	"github.com/npezzotti/go-chathub/internal/hub"
)

type ChatHubApp struct {
	log            *log.Logger
	db             database.ChatHubRepository
	hub            *hub.Hub
	srv            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewChatHubApp(mux *http.ServeMux, logger *log.Logger, h *hub.Hub, db database.ChatHubRepository, cfg *config.Config) *ChatHubApp {
	s := &ChatHubApp{
		log:            logger,
		db:             db,
		hub:            h,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/users", s.authMiddleware(s.listUsers))
	mux.HandleFunc("PUT /api/account/status", s.authMiddleware(s.updateStatus))
	mux.HandleFunc("GET /api/channels", s.authMiddleware(s.listChannels))
	mux.HandleFunc("POST /api/channels", s.authMiddleware(s.createChannel))
	mux.HandleFunc("GET /api/dms", s.authMiddleware(s.listDmThreads))
	mux.HandleFunc("POST /api/dms", s.authMiddleware(s.createDmThread))
	mux.HandleFunc("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	handler := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	handler = s.errorHandler(handler)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: handler,
	}

	return s
}

func (s *ChatHubApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ChatHubApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
