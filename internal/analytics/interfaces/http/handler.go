package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/analytics/application"
	analytics "github.com/tritonminingco/deepsea-data-ingestion-api/internal/analytics/domain"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/observability/metrics"
	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// Handler serves POST /api/v1/telemetry/aggregation/{auv-data,environmental}.
type Handler struct {
	service *application.Service
	logger  *log.Logger
}

// NewHandler constructs an aggregation handler.
func NewHandler(service *application.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("aggregation handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

type aggregationRequest struct {
	AUVID     string    `json:"auv_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Interval  string    `json:"interval"`
	Metrics   []string  `json:"metrics"`
}

// ServeHTTP dispatches by point kind suffix.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body aggregationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req := application.Request{
		AUVID:    body.AUVID,
		Start:    body.StartTime,
		End:      body.EndTime,
		Interval: analytics.ParseInterval(body.Interval),
		Metrics:  body.Metrics,
	}

	started := time.Now()
	var buckets []analytics.Bucket
	var err error
	switch r.URL.Path {
	case "/api/v1/telemetry/aggregation/auv-data":
		buckets, err = h.service.AggregateVehicleState(r.Context(), req)
	case "/api/v1/telemetry/aggregation/environmental":
		buckets, err = h.service.AggregateEnvironmental(r.Context(), req)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		if telemetry.IsValidation(err) {
			metrics.ObserveAggregation("error", time.Since(started))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Printf("aggregation: %v", err)
		metrics.ObserveAggregation("error", time.Since(started))
		http.Error(w, "aggregation error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveAggregation("success", time.Since(started))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(buckets)
}
