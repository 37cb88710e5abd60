package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/gymbook/internal/admin"
	"github.com/2beens/gymbook/internal/auth"
	"github.com/2beens/gymbook/internal/catalog"
	"github.com/2beens/gymbook/internal/config"
	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/db"
	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/history"
	"github.com/2beens/gymbook/internal/identity"
	"github.com/2beens/gymbook/internal/middleware"
	"github.com/2beens/gymbook/internal/notify"
	"github.com/2beens/gymbook/internal/telemetry/metrics"
	"github.com/2beens/gymbook/internal/telemetry/tracing"
	"github.com/2beens/gymbook/pkg"
)

const (
	sessionsCleanInterval = time.Hour * 8
	devUserDisplayName    = "Dev User"
	devUserRole           = "admin"
	maxRequestDrainBytes  = 1 << 20
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config   *config.Config
	dbPool   *pgxpool.Pool
	accessor datasvc.Accessor
	identity identity.Provider

	redisClient *redis.Client
	authService *auth.Service
	toastQueue  *notify.RedisQueue

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	DataApiKey              string
	RedisPassword           string
	PostgresPassword        string
	DevUserEmail            string
	DevUserPasswordHash     string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "gymbook-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.HttpClientTimeout.Duration,
	}

	s := &Server{
		config:       cfg,
		versionInfo:  params.VersionInfo,
		redisClient:  rdb,
		otelShutdown: otelShutdown,
	}

	var pgxpoolCollector prometheus.Collector
	if cfg.DataBackend == config.DataBackendPostgres {
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		s.dbPool = dbPool
		pgxpoolCollector = pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		)
	}

	s.promRegistry = metrics.SetupPrometheus(pgxpoolCollector)
	s.metricsManager = metrics.NewManager("gymbook", "backend", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	var backend datasvc.Accessor
	switch cfg.DataBackend {
	case config.DataBackendPostgres:
		backend = datasvc.NewPostgresStore(s.dbPool, s.metricsManager)
	default:
		backend = datasvc.NewRESTClient(cfg.DataApiURL, params.DataApiKey, tracedHttpClient, s.metricsManager)
	}
	// body parts and categories change rarely and are read on every catalog/admin view;
	// exercises carry base64 thumbnails and outgrow any sane cache entry
	s.accessor = datasvc.NewCachedAccessor(
		backend,
		cfg.ReferenceCacheTTL.Duration,
		cfg.ReferenceCacheSizeMB*1024*1024,
		s.metricsManager,
		entity.ResourceBodyPart, entity.ResourceCategory,
	)

	switch cfg.IdentityBackend {
	case config.IdentityBackendStatic:
		if params.DevUserEmail == "" || params.DevUserPasswordHash == "" {
			return nil, errors.New("static identity backend needs a dev user email and password hash")
		}
		log.Warnf("using static identity provider with dev user [%s]", params.DevUserEmail)
		s.identity = identity.NewStaticProvider(params.DevUserEmail, params.DevUserPasswordHash, devUserDisplayName, devUserRole)
	default:
		s.identity = identity.NewGoTrueProvider(cfg.IdentityURL, params.DataApiKey, tracedHttpClient)
	}

	s.authService = auth.NewAuthService(cfg.SessionTTL.Duration, rdb)
	go func() {
		ticker := time.NewTicker(sessionsCleanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.authService.ScanAndClean(ctx)
			}
		}
	}()

	s.toastQueue = notify.NewRedisQueue(rdb, notify.DefaultQueueTTL)

	return s, nil
}

type rootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("gymbook-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSON(w, rootResponse{Name: "gymbook", Version: s.versionInfo}, http.StatusOK)
	}).Methods("GET", "OPTIONS").Name("root")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	identityHandler := identity.NewHandler(
		identity.NewFlow(s.identity, s.authService, s.metricsManager),
	)
	identityHandler.SetupRoutes(r, reqRateLimiter, s.config.LoginRateLimitAllowedPerMin, s.metricsManager)

	catalog.NewHandler(s.accessor).SetupRoutes(r)
	admin.NewHandler(s.accessor, s.toastQueue, s.metricsManager).SetupRoutes(r, s.config.AdminRoles)
	history.NewHandler(s.accessor, s.toastQueue, s.metricsManager).SetupRoutes(r)

	notifyHandler := notify.NewHandler(s.toastQueue)
	r.HandleFunc("/notifications", notifyHandler.HandleDrain).Methods("GET", "OPTIONS").Name("notifications")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest(maxRequestDrainBytes))

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var errs error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shutdown metrics server: %w", err))
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close redis client: %w", err))
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	return errs
}
