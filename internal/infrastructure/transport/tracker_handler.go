package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobtracker/app/usecase"
	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/timeline"
)

const (
	RequestIDHeader = "X-Request-ID"

	// axis label on every 4th day
	labelEvery = 4
)

type TrackerHandler struct {
	jobService usecase.JobUsecase
	hub        *Hub
	clock      usecase.Clock
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	gatherer   prometheus.Gatherer

	// метрики
	reqDuration *prometheus.HistogramVec
	reqCount    *prometheus.CounterVec
	errCount    *prometheus.CounterVec
}

// NewTrackerHandler registers its HTTP collectors on reg. A nil reg means the
// default registry.
func NewTrackerHandler(
	jobService usecase.JobUsecase,
	hub *Hub,
	clock usecase.Clock,
	reg prometheus.Registerer,
	logger *slog.Logger,
) *TrackerHandler {
	if clock == nil {
		clock = &usecase.DefaultClock{}
	}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	reqDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	reqCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)

	errCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	reg.MustRegister(reqDuration, reqCount, errCount)

	return &TrackerHandler{
		jobService: jobService,
		hub:        hub,
		clock:      clock,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		gatherer:    gatherer,
		reqDuration: reqDuration,
		reqCount:    reqCount,
		errCount:    errCount,
	}
}

// Middleware для метрик
func (h *TrackerHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		method := r.Method
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		statusStr := strconv.Itoa(rw.status)

		h.reqCount.WithLabelValues(method, path).Inc()
		h.reqDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())

		if rw.status >= 400 {
			h.errCount.WithLabelValues(method, path, statusStr).Inc()
		}

		h.logger.Info("http request",
			"request_id", w.Header().Get(RequestIDHeader),
			"method", method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", duration,
		)
	}
}

// withRequestID reuses the caller's X-Request-ID or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *TrackerHandler) RegisterRoutes(r *mux.Router) {
	r.Use(withRequestID)
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)
	api.HandleFunc("/jobs", h.withMetrics(h.handleCreateJob)).Methods(http.MethodPost)
	api.HandleFunc("/jobs", h.withMetrics(h.handleListJobs)).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id:[0-9]+}", h.withMetrics(h.handleGetJob)).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id:[0-9]+}", h.withMetrics(h.handleUpdateJob)).Methods(http.MethodPatch)
	api.HandleFunc("/jobs/{id:[0-9]+}", h.withMetrics(h.handleDeleteJob)).Methods(http.MethodDelete)
	api.HandleFunc("/summary", h.withMetrics(h.handleSummary)).Methods(http.MethodGet)
	api.HandleFunc("/timeline", h.withMetrics(h.handleTimeline)).Methods(http.MethodGet)
	api.HandleFunc("/timeline/resolve", h.withMetrics(h.handleResolve)).Methods(http.MethodGet)
	api.HandleFunc("/reload", h.withMetrics(h.handleReload)).Methods(http.MethodPost)
	api.HandleFunc("/ws", h.withMetrics(h.handleWebsocket)).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func parseID(r *http.Request) (uint32, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	return uint32(id), nil
}

type createJobReq struct {
	Company  string `json:"company"`
	Role     string `json:"role"`
	Location string `json:"location"`
	Source   string `json:"source"`
}

type updateJobReq struct {
	Status    *string `json:"status"`
	Source    *string `json:"source"`
	Company   *string `json:"company"`
	Timestamp *string `json:"timestamp"`
}

// POST /api/v1/jobs
func (h *TrackerHandler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	req.Company = strings.TrimSpace(req.Company)
	req.Role = strings.TrimSpace(req.Role)
	if req.Company == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, errors.New("company and role are required"))
		return
	}

	jobs, err := h.jobService.Add(r.Context(), req.Company, req.Role, strings.TrimSpace(req.Location), req.Source)
	if err != nil {
		h.logger.Error("create job failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, jobs)
}

// GET /api/v1/jobs?q=
func (h *TrackerHandler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := entity.FilterJobs(h.jobService.List(r.Context()), r.URL.Query().Get("q"))
	if jobs == nil {
		jobs = []entity.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GET /api/v1/jobs/{id}
func (h *TrackerHandler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	job, ok := h.jobService.Get(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// PATCH /api/v1/jobs/{id}
func (h *TrackerHandler) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	if _, ok := h.jobService.Get(ctx, id); !ok {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}

	// Validate everything before the first mutation.
	var updates []func(context.Context) ([]entity.Job, error)
	if req.Status != nil {
		status, err := entity.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updates = append(updates, func(ctx context.Context) ([]entity.Job, error) {
			return h.jobService.UpdateStatus(ctx, id, status)
		})
	}
	if req.Source != nil {
		source := entity.ParseSource(*req.Source)
		updates = append(updates, func(ctx context.Context) ([]entity.Job, error) {
			return h.jobService.UpdateSource(ctx, id, source)
		})
	}
	if req.Company != nil {
		company := strings.TrimSpace(*req.Company)
		if company == "" {
			writeError(w, http.StatusBadRequest, errors.New("company must not be empty"))
			return
		}
		updates = append(updates, func(ctx context.Context) ([]entity.Job, error) {
			return h.jobService.UpdateCompany(ctx, id, company)
		})
	}
	if req.Timestamp != nil {
		at, err := entity.ParseTimestamp(*req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updates = append(updates, func(ctx context.Context) ([]entity.Job, error) {
			return h.jobService.UpdateTimestamp(ctx, id, at)
		})
	}

	for _, update := range updates {
		if _, err := update(ctx); err != nil {
			h.logger.Error("update job failed", "job_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	job, _ := h.jobService.Get(ctx, id)
	writeJSON(w, http.StatusOK, job)
}

// DELETE /api/v1/jobs/{id}
func (h *TrackerHandler) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	jobs, err := h.jobService.DeleteByID(r.Context(), id)
	if err != nil {
		h.logger.Error("delete job failed", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

type summaryResp struct {
	entity.SummaryCounts
	RejectionRate float64 `json:"rejection_rate"`
	InterviewRate float64 `json:"interview_rate"`
	Text          string  `json:"text"`
}

// GET /api/v1/summary
func (h *TrackerHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	counts := entity.Summarize(h.jobService.List(r.Context()))
	writeJSON(w, http.StatusOK, summaryResp{
		SummaryCounts: counts,
		RejectionRate: counts.RejectionRate(),
		InterviewRate: counts.InterviewRate(),
		Text:          counts.String(),
	})
}

type timelineDayResp struct {
	Date   string   `json:"date"`
	Label  string   `json:"label"`
	JobIDs []uint32 `json:"job_ids"`
}

type placementResp struct {
	Day     int              `json:"day"`
	Stack   int              `json:"stack"`
	JobID   uint32           `json:"job_id"`
	Company string           `json:"company"`
	Status  entity.JobStatus `json:"status"`
	Color   string           `json:"color"`
}

type timelineResp struct {
	Days       []timelineDayResp `json:"days"`
	Placements []placementResp   `json:"placements"`
	Labels     map[int]string    `json:"labels"`
}

// GET /api/v1/timeline
func (h *TrackerHandler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	tl := timeline.Build(h.jobService.List(r.Context()), h.clock.Now())

	resp := timelineResp{
		Days:       make([]timelineDayResp, 0, len(tl.Days)),
		Placements: []placementResp{},
		Labels:     tl.Labels(labelEvery),
	}
	for _, d := range tl.Days {
		ids := make([]uint32, 0, len(d.Jobs))
		for _, j := range d.Jobs {
			ids = append(ids, j.ID)
		}
		resp.Days = append(resp.Days, timelineDayResp{
			Date:   d.Date.Format(time.DateOnly),
			Label:  d.Label(),
			JobIDs: ids,
		})
	}
	for _, p := range tl.Placements() {
		resp.Placements = append(resp.Placements, placementResp{
			Day:     p.DayIndex,
			Stack:   p.StackIndex,
			JobID:   p.Job.ID,
			Company: p.Job.Company,
			Status:  p.Job.Status,
			Color:   entity.StatusColor(p.Job.Status).Hex(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type resolveResp struct {
	Job   entity.Job `json:"job"`
	Query string     `json:"query"`
}

// GET /api/v1/timeline/resolve?x=&y=
func (h *TrackerHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if err := errors.Join(errX, errY); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("x and y must be numbers: %w", err))
		return
	}

	tl := timeline.Build(h.jobService.List(r.Context()), h.clock.Now())
	job, ok := tl.Resolve(x, y)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no job at point"))
		return
	}
	writeJSON(w, http.StatusOK, resolveResp{Job: job, Query: job.Company})
}

// POST /api/v1/reload
func (h *TrackerHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.Reload(r.Context())
	if err != nil {
		h.logger.Error("reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GET /api/v1/ws
func (h *TrackerHandler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	h.hub.Serve(r.Context(), conn, h.jobService)
}

// GET /api/v1/health
func (h *TrackerHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok":           true,
		"ts":           time.Now().UTC(),
		"last_refresh": h.jobService.LastRefresh().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
}
