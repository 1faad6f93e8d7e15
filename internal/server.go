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

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/dashboard"
	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/meals"
	"github.com/2beens/fittrack/internal/measurements"
	"github.com/2beens/fittrack/internal/middleware"
	"github.com/2beens/fittrack/internal/misc"
	"github.com/2beens/fittrack/internal/nutrition"
	"github.com/2beens/fittrack/internal/photos"
	"github.com/2beens/fittrack/internal/progress"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/training"
	"github.com/2beens/fittrack/internal/users"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string
	schemaVersion     int64

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client

	authService  *auth.Service
	loginChecker *auth.LoginChecker
	resetTokens  *auth.ResetTokens
	hub          *auth.Hub
	coordinator  *dashboard.Coordinator[*dashboard.Snapshot]
	photoStorage photos.Storage
	mealParser   *meals.GeminiParser

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	PostgresPassword        string
	RedisPassword           string
	ResetTokenSecret        string
	S3AccessKey             string
	S3SecretKey             string
	GoogleCredentialsFile   string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	poolParams := db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, poolParams.ConnString()); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}
	}

	dbPool, err := db.NewDBPool(ctx, poolParams)
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	schemaVersion, err := db.Version(ctx, poolParams.ConnString())
	if err != nil {
		log.Warnf("failed to get schema version: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("fittrack", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

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
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fittrack-backend", rdb)
	if err != nil {
		return nil, err
	}

	resetTokens, err := auth.NewResetTokens(params.ResetTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("new reset tokens: %w", err)
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	photoStorage, err := newPhotoStorage(ctx, cfg, params, tracedHttpClient)
	if err != nil {
		return nil, fmt.Errorf("new photo storage: %w", err)
	}

	s := &Server{
		config:        cfg,
		dbPool:        dbPool,
		redisClient:   rdb,
		versionInfo:   params.VersionInfo,
		schemaVersion: schemaVersion,

		authService:  auth.NewAuthService(cfg.SessionTTL, rdb),
		loginChecker: auth.NewLoginChecker(cfg.SessionTTL, rdb),
		resetTokens:  resetTokens,
		hub:          auth.NewHub(metricsManager.GaugeSubscriptions),
		coordinator:  dashboard.NewCoordinator[*dashboard.Snapshot](cfg.DashboardSnapshotTTL, metricsManager.CounterStaleLoadsDiscarded),
		photoStorage: photoStorage,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if cfg.AIEnabled() {
		s.mealParser, err = meals.NewGeminiParser(ctx, meals.GeminiParams{
			ProjectID:       cfg.VertexProjectID,
			Location:        cfg.VertexLocation,
			Model:           cfg.VertexModel,
			CredentialsFile: params.GoogleCredentialsFile,
		})
		if err != nil {
			// meal photos stay unavailable, everything else works
			log.Errorf("failed to create gemini meal parser: %s", err)
		}
	} else {
		log.Debugln("vertex project not set, ai meal parsing disabled")
	}

	return s, nil
}

func newPhotoStorage(
	ctx context.Context,
	cfg *config.Config,
	params NewServerParams,
	httpClient *http.Client,
) (photos.Storage, error) {
	switch cfg.PhotoBackend {
	case config.PhotoBackendS3:
		return photos.NewS3Storage(ctx, photos.S3Params{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: params.S3AccessKey,
			SecretKey: params.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
	case config.PhotoBackendImageApi:
		return photos.NewImageApi(cfg.ImageApiURL, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown photo backend: %s", cfg.PhotoBackend)
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	usersRepo := users.NewRepo(s.dbPool)
	nutritionRepo := nutrition.NewRepo(s.dbPool)
	trainingRepo := training.NewRepo(s.dbPool)
	measurementsRepo := measurements.NewRepo(s.dbPool)

	misc.NewHandler(s.versionInfo, func() int64 { return s.schemaVersion }).SetupRoutes(r)

	// auth
	authHandler := auth.NewHandler(
		auth.NewAccountRepo(s.dbPool),
		s.authService,
		s.loginChecker,
		usersRepo,
		s.resetTokens,
		s.hub,
		s.metricsManager,
		s.config.AllowedOrigins...,
	)
	// rate limit the credential endpoints to prevent abuse
	limited := middleware.RateLimit(
		redis_rate.NewLimiter(s.redisClient),
		"auth",
		s.config.AuthRateLimitPerMin,
		s.metricsManager,
	)
	r.Handle("/a/register", limited(http.HandlerFunc(authHandler.HandleRegister))).Methods("POST", "OPTIONS").Name("register")
	r.Handle("/a/login", limited(http.HandlerFunc(authHandler.HandleLogin))).Methods("POST", "OPTIONS").Name("login")
	r.Handle("/a/password/forgot", limited(http.HandlerFunc(authHandler.HandleForgotPassword))).Methods("POST", "OPTIONS").Name("password-forgot")
	r.Handle("/a/password/reset", limited(http.HandlerFunc(authHandler.HandleResetPassword))).Methods("POST", "OPTIONS").Name("password-reset")
	r.HandleFunc("/a/logout", authHandler.HandleLogout).Methods("GET", "OPTIONS").Name("logout")
	r.HandleFunc("/a/session/subscribe", authHandler.HandleSubscribe).Methods("GET").Name("session-subscribe")

	// successful writes hide the user's dashboard snapshot until the next load
	refresh := func(h http.HandlerFunc) http.Handler {
		return middleware.InvalidateOnWrite(s.coordinator.Invalidate)(h)
	}

	// profile
	usersHandler := users.NewHandler(
		usersRepo,
		s.metricsManager,
		users.CollectionWiper{Collection: "nutrition", Wiper: nutritionRepo},
		users.CollectionWiper{Collection: "training", Wiper: trainingRepo},
		users.CollectionWiper{Collection: "progress", Wiper: measurementsRepo},
	)
	r.HandleFunc("/profile", usersHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-profile")
	r.Handle("/profile", refresh(usersHandler.HandleUpdate)).Methods("PUT", "OPTIONS").Name("update-profile")
	r.Handle("/profile/data", refresh(usersHandler.HandleResetData)).Methods("DELETE", "OPTIONS").Name("reset-profile-data")

	// read side
	progressService := progress.NewService(
		progress.NewSeriesBuilder(nutritionRepo, trainingRepo, measurementsRepo, s.metricsManager),
		usersRepo,
		progress.NewResolver(time.Now, s.config.Location()),
	)
	progressHandler := progress.NewHandler(progressService)
	r.HandleFunc("/nutrition/today", progressHandler.HandleNutritionToday).Methods("GET", "OPTIONS").Name("nutrition-today")
	r.HandleFunc("/nutrition/feed", progressHandler.HandleNutritionFeed).Methods("GET", "OPTIONS").Name("nutrition-feed")
	r.HandleFunc("/nutrition/history", progressHandler.HandleNutritionHistory).Methods("GET", "OPTIONS").Name("nutrition-history")
	r.HandleFunc("/nutrition/monthly/{year}/{month}", progressHandler.HandleNutritionMonth).Methods("GET", "OPTIONS").Name("nutrition-month")
	r.HandleFunc("/training/list", progressHandler.HandleTrainingList).Methods("GET", "OPTIONS").Name("training-list")
	r.HandleFunc("/measurements/list", progressHandler.HandleMeasurementsList).Methods("GET", "OPTIONS").Name("measurements-list")
	r.HandleFunc("/progress/overview", progressHandler.HandleOverview).Methods("GET", "OPTIONS").Name("progress-overview")

	// write side
	var mealParser meals.Parser
	if s.mealParser != nil {
		mealParser = s.mealParser
	}
	mealsHandler := meals.NewHandler(mealParser, usersRepo)
	r.HandleFunc("/nutrition/ai", mealsHandler.HandleParse).Methods("POST", "OPTIONS").Name("nutrition-ai")

	nutritionHandler := nutrition.NewHandler(nutritionRepo, s.metricsManager)
	r.Handle("/nutrition", refresh(nutritionHandler.HandleAdd)).Methods("POST", "OPTIONS").Name("new-nutrition")
	r.HandleFunc("/nutrition/entry/{id}", nutritionHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-nutrition")
	r.Handle("/nutrition/{id}", refresh(nutritionHandler.HandleUpdate)).Methods("PUT", "OPTIONS").Name("update-nutrition")
	r.Handle("/nutrition/{id}", refresh(nutritionHandler.HandleDelete)).Methods("DELETE", "OPTIONS").Name("delete-nutrition")

	trainingHandler := training.NewHandler(trainingRepo, s.metricsManager)
	r.Handle("/training", refresh(trainingHandler.HandleAdd)).Methods("POST", "OPTIONS").Name("new-training")
	r.Handle("/training/{id}", refresh(trainingHandler.HandleUpdate)).Methods("PUT", "OPTIONS").Name("update-training")
	r.Handle("/training/{id}", refresh(trainingHandler.HandleDelete)).Methods("DELETE", "OPTIONS").Name("delete-training")

	measurementsHandler := measurements.NewHandler(measurementsRepo, s.metricsManager)
	r.Handle("/measurements", refresh(measurementsHandler.HandleAdd)).Methods("POST", "OPTIONS").Name("new-measurement")
	r.Handle("/measurements/{id}", refresh(measurementsHandler.HandleUpdate)).Methods("PUT", "OPTIONS").Name("update-measurement")
	r.Handle("/measurements/{id}", refresh(measurementsHandler.HandleDelete)).Methods("DELETE", "OPTIONS").Name("delete-measurement")

	// dashboard
	dashboardHandler := dashboard.NewHandler(
		dashboard.NewStateStore(s.redisClient),
		dashboard.NewSnapshotLoader(progressService),
		s.coordinator,
	)
	r.HandleFunc("/dashboard", dashboardHandler.HandleGetSnapshot).Methods("GET", "OPTIONS").Name("dashboard")
	r.HandleFunc("/dashboard/state", dashboardHandler.HandleGetState).Methods("GET", "OPTIONS").Name("get-dashboard-state")
	r.HandleFunc("/dashboard/state", dashboardHandler.HandleUpdateState).Methods("PUT", "OPTIONS").Name("update-dashboard-state")

	// photos
	photosHandler := photos.NewHandler(s.photoStorage)
	r.HandleFunc("/photos", photosHandler.HandleList).Methods("GET", "OPTIONS").Name("list-photos")
	r.HandleFunc("/photos/init", photosHandler.HandleInit).Methods("POST", "OPTIONS").Name("init-photos")
	r.HandleFunc("/photos", photosHandler.HandleUpload).Methods("POST", "OPTIONS").Name("upload-photo")
	r.HandleFunc("/photos/{name}", photosHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-photo")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
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
	metricsAddr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.MetricsPort))
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

	go s.cleanSessions(ctx)

	s.metricsManager.GaugeLifeSignal.Set(1)
}

// cleanSessions drops expired sessions until ctx is done, and ends the identity streams on them
func (s *Server) cleanSessions(ctx context.Context) {
	ticker := time.NewTicker(s.config.SessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.authService.ScanAndClean(ctx)
			for _, token := range removed {
				s.hub.End(token)
			}
			if len(removed) > 0 {
				log.Debugf("session cleanup removed %d sessions", len(removed))
			}
		}
	}
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.coordinator.Close()
	s.hub.Close()

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		err = multierr.Append(err, s.httpServer.Shutdown(ctx))
	}
	if s.metricsHttpServer != nil {
		err = multierr.Append(err, s.metricsHttpServer.Shutdown(ctx))
	}
	if s.mealParser != nil {
		err = multierr.Append(err, s.mealParser.Close())
	}
	if s.redisClient != nil {
		err = multierr.Append(err, s.redisClient.Close())
	}
	if err != nil {
		log.Errorf(" >>> graceful shutdown: %s", err)
	}
	log.Warnln("servers shut down")

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}
