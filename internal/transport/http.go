package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
)

// ExperimentService defines registry operations needed by the REST API.
type ExperimentService interface {
	Create(ctx context.Context, tenantID string, req experiment.CreateRequest) (*experiment.Experiment, error)
	Get(ctx context.Context, tenantID, id string) (*experiment.Experiment, error)
	List(ctx context.Context, tenantID string) ([]experiment.Summary, error)
	GetDetail(ctx context.Context, tenantID, id string) (*experiment.Detail, error)
	UpdateStatus(ctx context.Context, tenantID, id string, to experiment.Status) (*experiment.Experiment, error)
}

// AssignmentService assigns participants to variants.
type AssignmentService interface {
	Assign(ctx context.Context, req participant.AssignRequest) (*participant.Assignment, error)
}

// ConversionService records participant conversions.
type ConversionService interface {
	Record(ctx context.Context, req participant.ConversionRequest) (*participant.Assignment, error)
}

// ActivityService lists experiment activity.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains the domain services behind the REST API.
type Services struct {
	Experiments ExperimentService
	Assignments AssignmentService
	Conversions ConversionService
	Activity    ActivityService
}

// Options configures the router.
type Options struct {
	// Auth resolves the tenant for /api routes. Required.
	Auth func(http.Handler) http.Handler
	// MCP, when set, is mounted at /mcp.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	services Services
	logger   *slog.Logger
}

// NewServer creates the HTTP router.
func NewServer(services Services, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{services: services, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	r.Route("/api/analytics/experiments", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		r.Get("/", srv.listExperiments)
		r.Post("/", srv.createExperiment)
		r.Route("/{experimentID}", func(r chi.Router) {
			r.Get("/", srv.getExperiment)
			r.Post("/participants", srv.assignParticipant)
			r.Post("/conversions", srv.recordConversion)
			r.Patch("/status", srv.updateStatus)
			r.Get("/activity", srv.listActivity)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type createExperimentBody struct {
	Name              string                     `json:"name"`
	Description       string                     `json:"description"`
	Hypothesis        string                     `json:"hypothesis"`
	Variants          []experiment.Variant       `json:"variants"`
	SuccessMetrics    []experiment.SuccessMetric `json:"success_metrics"`
	TrafficAllocation map[string]float64         `json:"traffic_allocation"`
	Status            experiment.Status          `json:"status"`
	StartDate         *time.Time                 `json:"start_date"`
	EndDate           *time.Time                 `json:"end_date"`
	CreatedBy         string                     `json:"created_by"`
	// accepted for compatibility; the authenticated tenant wins
	TenantID string `json:"tenant_id"`
}

type assignBody struct {
	UserID      string     `json:"user_id"`
	CustomerID  string     `json:"customer_id"`
	SessionID   string     `json:"session_id"`
	VariantName string     `json:"variant_name"`
	AssignedAt  *time.Time `json:"assigned_at"`
}

type conversionBody struct {
	ParticipantID   string     `json:"participant_id"`
	ConvertedAt     *time.Time `json:"converted_at"`
	ConversionValue *float64   `json:"conversion_value"`
}

type statusBody struct {
	Status experiment.Status `json:"status"`
}

func (s *Server) listExperiments(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Experiments.List(r.Context(), tenant(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createExperiment(w http.ResponseWriter, r *http.Request) {
	var body createExperimentBody
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	exp, err := s.services.Experiments.Create(r.Context(), tenant(r), experiment.CreateRequest{
		Name:              body.Name,
		Description:       body.Description,
		Hypothesis:        body.Hypothesis,
		Variants:          body.Variants,
		SuccessMetrics:    body.SuccessMetrics,
		TrafficAllocation: body.TrafficAllocation,
		Status:            body.Status,
		StartDate:         body.StartDate,
		EndDate:           body.EndDate,
		CreatedBy:         body.CreatedBy,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (s *Server) getExperiment(w http.ResponseWriter, r *http.Request) {
	detail, err := s.services.Experiments.GetDetail(r.Context(), tenant(r), chi.URLParam(r, "experimentID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) assignParticipant(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "experimentID")
	if !s.ownsExperiment(w, r, experimentID) {
		return
	}

	var body assignBody
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req := participant.AssignRequest{
		ExperimentID: experimentID,
		VariantName:  body.VariantName,
		Identity: participant.Identity{
			UserID:     body.UserID,
			CustomerID: body.CustomerID,
			SessionID:  body.SessionID,
		},
	}
	if body.AssignedAt != nil {
		req.AssignedAt = *body.AssignedAt
	}

	rec, err := s.services.Assignments.Assign(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) recordConversion(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "experimentID")
	if !s.ownsExperiment(w, r, experimentID) {
		return
	}

	var body conversionBody
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.services.Conversions.Record(r.Context(), participant.ConversionRequest{
		ParticipantID:   body.ParticipantID,
		ExperimentID:    experimentID,
		ConvertedAt:     body.ConvertedAt,
		ConversionValue: body.ConversionValue,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	exp, err := s.services.Experiments.UpdateStatus(r.Context(), tenant(r), chi.URLParam(r, "experimentID"), body.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "experimentID")
	if !s.ownsExperiment(w, r, experimentID) {
		return
	}

	opts := activity.ListActivityOptions{ExperimentID: experimentID}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "offset must be a non-negative integer")
			return
		}
		opts.Offset = n
	}
	if v := q.Get("type"); v != "" {
		typ := activity.ActivityType(v)
		opts.ActivityType = &typ
	}

	entries, err := s.services.Activity.GetRecentActivity(r.Context(), tenant(r), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ownsExperiment writes a 404 unless the experiment belongs to the caller's tenant.
func (s *Server) ownsExperiment(w http.ResponseWriter, r *http.Request, experimentID string) bool {
	if _, err := s.services.Experiments.Get(r.Context(), tenant(r), experimentID); err != nil {
		s.fail(w, r, err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, ok := statusFor(err)
	if !ok {
		s.logger.Error("http.request_failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func tenant(r *http.Request) string {
	tenantID, _ := TenantFromContext(r.Context())
	return tenantID
}
