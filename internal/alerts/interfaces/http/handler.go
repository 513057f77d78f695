package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/application"
	alerts "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/domain"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/audit"
)

const timeLayout = time.RFC3339

// Handler serves the alert endpoints.
type Handler struct {
	service *application.Service
	logger  *log.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *application.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

// ServeHTTP routes alert requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/v1/alerts") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/alerts"), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "" && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case path == "" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case path == "feed" && r.Method == http.MethodGet:
		h.handleFeed(w, r)
	case path == "summary" && r.Method == http.MethodGet:
		h.handleSummary(w, r)
	case len(parts) == 1 && isID(parts[0]):
		h.handleByID(w, r, parts[0])
	case len(parts) == 2 && isID(parts[0]) && parts[1] == "acknowledge" && r.Method == http.MethodPost:
		h.handleAcknowledge(w, r, parts[0])
	case len(parts) == 2 && isID(parts[0]) && parts[1] == "resolve" && r.Method == http.MethodPost:
		h.handleResolve(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request, rawID string) {
	id, _ := strconv.ParseInt(rawID, 10, 64)
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, id)
	case http.MethodPut:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type createRequest struct {
	AUVID       string         `json:"auv_id"`
	Type        string         `json:"alert_type"`
	Severity    string         `json:"severity"`
	Status      string         `json:"status"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Message     string         `json:"message"`
	Source      string         `json:"source"`
	Location    string         `json:"location"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"alert_data"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), alerts.Alert{
		AUVID:       req.AUVID,
		Type:        alerts.Type(req.Type),
		Severity:    alerts.Severity(req.Severity),
		Status:      alerts.LifecycleStatus(req.Status),
		Title:       req.Title,
		Description: req.Description,
		Message:     req.Message,
		Source:      req.Source,
		Location:    req.Location,
		Timestamp:   req.Timestamp,
		Data:        req.Data,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id int64) {
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type updateRequest struct {
	Severity        *string `json:"severity"`
	Status          *string `json:"status"`
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Message         *string `json:"message"`
	ResolutionNotes *string `json:"resolution_notes"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	update := application.Update{
		Title:           req.Title,
		Description:     req.Description,
		Message:         req.Message,
		ResolutionNotes: req.ResolutionNotes,
	}
	if req.Severity != nil {
		severity := alerts.Severity(*req.Severity)
		update.Severity = &severity
	}
	if req.Status != nil {
		status := alerts.LifecycleStatus(*req.Status)
		update.Status = &status
	}

	updated, err := h.service.Apply(r.Context(), id, update)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Alert deleted successfully"})
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request, rawID string) {
	id, _ := strconv.ParseInt(rawID, 10, 64)
	updated, err := h.service.Acknowledge(r.Context(), id, requestActor(r, r.URL.Query().Get("acknowledged_by")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request, rawID string) {
	id, _ := strconv.ParseInt(rawID, 10, 64)
	q := r.URL.Query()
	updated, err := h.service.Resolve(r.Context(), id, requestActor(r, q.Get("resolved_by")), q.Get("resolution_notes"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func requestActor(r *http.Request, name string) application.Actor {
	return application.Actor{
		Name:      name,
		IP:        audit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	feed, err := h.service.FeedPage(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, feed)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	summary, err := h.service.Summary(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alerts.ErrNotFound):
		http.Error(w, "Alert not found", http.StatusNotFound)
	case errors.Is(err, alerts.ErrAlreadyAcknowledged),
		errors.Is(err, alerts.ErrAlreadyResolved),
		alerts.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Printf("alerts: %v", err)
		http.Error(w, "alert operation failed", http.StatusInternalServerError)
	}
}

func parseFilter(r *http.Request) (alerts.Filter, error) {
	q := r.URL.Query()
	filter := alerts.Filter{
		AUVID:    q.Get("auv_id"),
		Type:     alerts.Type(q.Get("alert_type")),
		Severity: alerts.Severity(q.Get("severity")),
		Status:   alerts.LifecycleStatus(q.Get("status")),
		Search:   q.Get("search"),
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return alerts.Filter{}, errors.New("unknown alert_type")
	}
	if filter.Severity != "" && !filter.Severity.IsValid() {
		return alerts.Filter{}, errors.New("unknown severity")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return alerts.Filter{}, errors.New("unknown status")
	}

	var err error
	if filter.Start, err = parseOptionalTime(q.Get("start_time"), "start_time"); err != nil {
		return alerts.Filter{}, err
	}
	if filter.End, err = parseOptionalTime(q.Get("end_time"), "end_time"); err != nil {
		return alerts.Filter{}, err
	}
	if filter.Limit, err = parseOptionalInt(q.Get("limit"), "limit"); err != nil {
		return alerts.Filter{}, err
	}
	if filter.Offset, err = parseOptionalInt(q.Get("skip"), "skip"); err != nil {
		return alerts.Filter{}, err
	}
	if filter.Offset < 0 {
		return alerts.Filter{}, errors.New("skip must be >= 0")
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

func isID(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
