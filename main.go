package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	alertapp "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/application"
	alertrepo "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/infrastructure/postgres"
	alerthttp "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/interfaces/http"
	analyticsapp "github.com/tritonminingco/deepsea-data-ingestion-api/internal/analytics/application"
	analyticshttp "github.com/tritonminingco/deepsea-data-ingestion-api/internal/analytics/interfaces/http"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/audit"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/distribution"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/distribution/ws"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/ingestbridge"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/observability/metrics"
	telemetryapp "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/application"
	telemetrypostgres "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/infrastructure/postgres"
	telemetryhttp "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()
	metrics.InitDB(db, logger)

	vehicleRepo := telemetrypostgres.NewVehicleStateRepository(db)
	environmentalRepo := telemetrypostgres.NewEnvironmentalRepository(db)

	broker := distribution.NewBroker(logger, distribution.WithDropObserver(func(topic distribution.Topic) {
		metrics.IncEventDropped(string(topic.Kind))
	}))

	ingestionService, err := telemetryapp.NewIngestionService(vehicleRepo, environmentalRepo, broker, logger)
	if err != nil {
		logger.Fatalf("ingestion service error: %v", err)
	}
	statusService, err := telemetryapp.NewStatusService(vehicleRepo, environmentalRepo, systemClock{})
	if err != nil {
		logger.Fatalf("status service error: %v", err)
	}
	telemetryHandler, err := telemetryhttp.NewHandler(ingestionService, statusService, vehicleRepo, environmentalRepo, logger)
	if err != nil {
		logger.Fatalf("telemetry handler error: %v", err)
	}
	exportHandler, err := telemetryhttp.NewExportHandler(statusService, vehicleRepo, logger)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}

	streamHandler := ws.NewStreamHandler(broker, logger, sessionMetrics{})

	aggregationService, err := analyticsapp.NewService(vehicleRepo, environmentalRepo)
	if err != nil {
		logger.Fatalf("aggregation service error: %v", err)
	}
	aggregationHandler, err := analyticshttp.NewHandler(aggregationService, logger)
	if err != nil {
		logger.Fatalf("aggregation handler error: %v", err)
	}

	auditRepo := audit.NewRepository(db)
	alertBroker := alerthttp.NewSSEBroker()
	alertService, err := alertapp.NewService(
		alertrepo.NewRepository(db),
		logger,
		alertapp.WithNotifier(alertBroker),
		alertapp.WithAuditLogger(auditRepo),
	)
	if err != nil {
		logger.Fatalf("alert service error: %v", err)
	}
	alertHandler, err := alerthttp.NewHandler(alertService, logger)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}

	bridgeCfg, err := ingestbridge.LoadConfig()
	if err != nil {
		logger.Fatalf("ingest bridge config error: %v", err)
	}
	if bridgeCfg.Enabled() {
		bridge, err := ingestbridge.NewBridge(bridgeCfg, ingestionService, logger)
		if err != nil {
			logger.Fatalf("ingest bridge error: %v", err)
		}
		if err := bridge.Start(context.Background()); err != nil {
			logger.Fatalf("ingest bridge start error: %v", err)
		}
		defer bridge.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/telemetry/ws/", streamHandler)
	mux.Handle("/api/v1/telemetry/aggregation/", aggregationHandler)
	mux.Handle("/api/v1/telemetry/exports/", exportHandler)
	mux.Handle("/api/v1/telemetry/", telemetryHandler)
	mux.Handle("/api/v1/reports/", exportHandler)
	mux.Handle("/api/v1/alerts/stream", alerthttp.NewStreamHandler(alertBroker))
	mux.Handle("/api/v1/alerts", alertHandler)
	mux.Handle("/api/v1/alerts/", alertHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ---- Adapters ----

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// sessionMetrics reports live session counts to the metrics registry.
type sessionMetrics struct{}

func (sessionMetrics) SessionStarted() { metrics.SessionStarted() }
func (sessionMetrics) SessionEnded()   { metrics.SessionEnded() }
