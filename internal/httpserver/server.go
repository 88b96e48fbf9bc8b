package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/ai"
	"github.com/fdg312/run-coach/internal/auth"
	"github.com/fdg312/run-coach/internal/blob"
	"github.com/fdg312/run-coach/internal/coachsvc"
	"github.com/fdg312/run-coach/internal/config"
	"github.com/fdg312/run-coach/internal/export"
	"github.com/fdg312/run-coach/internal/storage"
	"github.com/fdg312/run-coach/internal/storage/memory"
	"github.com/fdg312/run-coach/internal/storage/postgres"
)

const defaultOwnerUserID = "default"

// Server представляет HTTP сервер коуча
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config) *Server {
	return NewWithProvider(cfg, ai.NewProvider(cfg))
}

// NewWithProvider builds the server around an explicit AI provider.
func NewWithProvider(cfg *config.Config, provider ai.Provider) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.routes(provider)
	return s
}

// initStorage инициализирует storage (Memory или Postgres)
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		log.Println("Используется in-memory storage")
		s.storage = memory.New()
		return
	}

	log.Println("Подключение к PostgreSQL...")
	pgStorage, err := postgres.New(context.Background(), s.config.DatabaseURL)
	if err != nil {
		log.Printf("Ошибка подключения к PostgreSQL: %v", err)
		log.Println("Fallback на in-memory storage")
		s.storage = memory.New()
		return
	}
	log.Println("PostgreSQL подключен успешно")
	s.storage = pgStorage
}

// routes регистрирует маршруты
func (s *Server) routes(provider ai.Provider) {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	// POST /v1/auth/dev - local dev token
	s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)

	// Coach API
	owner := strings.TrimSpace(s.config.Coach.OwnerUserID)
	if owner == "" {
		owner = defaultOwnerUserID
	}
	coachService := coachsvc.NewService(s.storage, provider, owner, s.config.ExchangesListLimit)
	if exporter := s.initExporter(); exporter != nil {
		coachService.WithExporter(exporter)
	}
	coachHandler := coachsvc.NewHandler(coachService)

	// POST /chat - one coaching turn
	s.mux.HandleFunc("POST /chat", coachHandler.HandleChat)

	// GET /v1/exchanges - exchange log of the caller
	s.mux.HandleFunc("GET /v1/exchanges", coachHandler.HandleListExchanges)

	// POST /v1/exchanges/export - store the log as pdf|csv
	s.mux.HandleFunc("POST /v1/exchanges/export", coachHandler.HandleExport)

	// GET /v1/exports/{key} - download a stored export
	s.mux.HandleFunc("GET /v1/exports/{key...}", coachHandler.HandleDownloadExport)
}

// initExporter builds the export blob store; exports are disabled if it cannot start.
func (s *Server) initExporter() *export.Exporter {
	log.Printf("INFO blob: initializing export store (BLOB_MODE=%s)", s.config.Blob.Mode)
	store, mode, err := blob.NewBlobStore(context.Background(), s.config.Blob, log.Default())
	if err != nil {
		log.Printf("WARN blob: export store unavailable, exports disabled: %v", err)
		return nil
	}
	log.Printf("INFO blob: export blob mode: %s", mode)
	return export.NewExporter(store).WithPresignTTL(s.config.Blob.S3.PresignTTLSeconds)
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Handler returns the router wrapped in the middleware chain (outermost first): CORS → Rate Limit → Auth → Router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.authMiddleware != nil && s.config.AuthMode != config.AuthModeNone {
		handler = s.authMiddleware.RequireAuth(handler)
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Сервер запущен на http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Coach API: http://localhost%s/chat\n", addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown останавливает приём запросов и закрывает storage
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.Close()
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
