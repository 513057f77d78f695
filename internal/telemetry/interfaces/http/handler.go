package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/application"
	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

const timeLayout = time.RFC3339

// Handler serves the telemetry ingest, historical and per-AUV endpoints.
type Handler struct {
	ingestion *application.IngestionService
	status    *application.StatusService
	vehicles  telemetry.VehicleStateRepository
	env       telemetry.EnvironmentalRepository
	logger    *log.Logger
}

// NewHandler constructs a Handler.
func NewHandler(
	ingestion *application.IngestionService,
	status *application.StatusService,
	vehicles telemetry.VehicleStateRepository,
	env telemetry.EnvironmentalRepository,
	logger *log.Logger,
) (*Handler, error) {
	if ingestion == nil || status == nil {
		return nil, errors.New("telemetry handler: nil service")
	}
	if vehicles == nil || env == nil {
		return nil, errors.New("telemetry handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{ingestion: ingestion, status: status, vehicles: vehicles, env: env, logger: logger}, nil
}

// ServeHTTP routes telemetry requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/v1/telemetry/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/telemetry/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 2 && parts[0] == "realtime" && parts[1] == "auv-data" && r.Method == http.MethodPost:
		h.handleIngestVehicle(w, r)
	case len(parts) == 2 && parts[0] == "realtime" && parts[1] == "environmental" && r.Method == http.MethodPost:
		h.handleIngestEnvironmental(w, r)
	case len(parts) == 2 && parts[0] == "historical" && parts[1] == "auv-data" && r.Method == http.MethodGet:
		h.handleHistoricalVehicle(w, r)
	case len(parts) == 2 && parts[0] == "historical" && parts[1] == "environmental" && r.Method == http.MethodGet:
		h.handleHistoricalEnvironmental(w, r)
	case len(parts) == 3 && parts[0] == "auv" && parts[1] != "" && parts[2] == "status" && r.Method == http.MethodGet:
		h.handleStatus(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "auv" && parts[1] != "" && parts[2] == "latest" && r.Method == http.MethodGet:
		h.handleLatest(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "quality" && parts[1] == "auv" && parts[2] != "" && r.Method == http.MethodGet:
		h.handleQuality(w, r, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleIngestVehicle(w http.ResponseWriter, r *http.Request) {
	var point telemetry.VehicleStatePoint
	if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	stored, err := h.ingestion.IngestVehicleState(r.Context(), point)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleIngestEnvironmental(w http.ResponseWriter, r *http.Request) {
	var point telemetry.EnvironmentalPoint
	if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	stored, err := h.ingestion.IngestEnvironmental(r.Context(), point)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

func (h *Handler) respondIngestError(w http.ResponseWriter, err error) {
	if telemetry.IsValidation(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Printf("telemetry ingest: %v", err)
	http.Error(w, "ingest failed", http.StatusInternalServerError)
}

func (h *Handler) handleHistoricalVehicle(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQueryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	points, err := h.vehicles.Query(r.Context(), filter)
	if err != nil {
		h.logger.Printf("historical auv-data: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

func (h *Handler) handleHistoricalEnvironmental(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQueryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	points, err := h.env.Query(r.Context(), filter)
	if err != nil {
		h.logger.Printf("historical environmental: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request, auvID string) {
	report, err := h.status.Status(r.Context(), auvID)
	if errors.Is(err, telemetry.ErrNotFound) {
		http.Error(w, "AUV data not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Printf("auv status: %v", err)
		http.Error(w, "status failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request, auvID string) {
	report, err := h.status.Latest(r.Context(), auvID)
	if err != nil {
		h.logger.Printf("auv latest: %v", err)
		http.Error(w, "latest failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleQuality(w http.ResponseWriter, r *http.Request, auvID string) {
	report, err := h.status.Quality(r.Context(), auvID)
	if err != nil {
		h.logger.Printf("auv quality: %v", err)
		http.Error(w, "quality failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func parseQueryFilter(r *http.Request) (telemetry.QueryFilter, error) {
	q := r.URL.Query()
	filter := telemetry.QueryFilter{AUVID: q.Get("auv_id")}

	var err error
	if filter.Start, err = parseOptionalTime(q.Get("start_time"), "start_time"); err != nil {
		return telemetry.QueryFilter{}, err
	}
	if filter.End, err = parseOptionalTime(q.Get("end_time"), "end_time"); err != nil {
		return telemetry.QueryFilter{}, err
	}
	if filter.Limit, err = parseOptionalInt(q.Get("limit"), "limit"); err != nil {
		return telemetry.QueryFilter{}, err
	}
	if filter.Offset, err = parseOptionalInt(q.Get("offset"), "offset"); err != nil {
		return telemetry.QueryFilter{}, err
	}
	if filter.Offset < 0 {
		return telemetry.QueryFilter{}, errors.New("offset must be >= 0")
	}
	return filter, nil
}

func parseOptionalTime(value, key string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func parseOptionalInt(value, key string) (int, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return parsed, nil
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
