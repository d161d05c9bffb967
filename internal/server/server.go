package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/swiftcart/apiserver/config"
	"github.com/swiftcart/apiserver/internal/db"
	"github.com/swiftcart/apiserver/internal/events"
	"github.com/swiftcart/apiserver/internal/handlers"
	"github.com/swiftcart/apiserver/internal/logging"
	"github.com/swiftcart/apiserver/internal/services"
	"github.com/swiftcart/apiserver/internal/storage"
	"github.com/swiftcart/apiserver/internal/store"
)

// Server wraps the HTTP server, router and shared backends.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *events.Bus
	log        logging.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logging.NewDefault()

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	bus, err := newEventBus(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	exportStorage, err := newExportStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		if bus != nil {
			_ = bus.Close()
		}
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	orderRepo := store.NewOrderRepository(dbConn)

	userService := services.NewUserService(userRepo)
	orderService := services.NewOrderService(orderRepo, bus, log)

	var exportService *services.ExportService
	if exportStorage != nil {
		if err := exportStorage.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			if bus != nil {
				_ = bus.Close()
			}
			return nil, fmt.Errorf("prepare export bucket: %w", err)
		}
		exportService = services.NewExportService(orderRepo, exportStorage)
	}

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/", handlers.Hello)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
	})
	router.Route("/orders", func(r chi.Router) {
		handlers.OrderRouter(r, orderService, userService, exportService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info(ctx, "server configured",
		"port", port,
		"storage_backend", cfg.StorageBackend,
		"events_backend", cfg.EventsBackend,
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	return s.httpServer.Close()
}

func newEventBus(ctx context.Context, cfg config.Config) (*events.Bus, error) {
	switch cfg.EventsBackend {
	case "":
		return nil, nil
	case config.EventsBackendRabbitMQ:
		backend, err := events.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return events.NewBus(backend), nil
	case config.EventsBackendPubSub:
		backend, err := events.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return events.NewBus(backend), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}

func newExportStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.StorageBackend {
	case "":
		return nil, nil
	case config.StorageBackendMinio:
		backend, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		return storage.NewStorage(backend), nil
	case config.StorageBackendGCS:
		backend, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		return storage.NewStorage(backend), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
