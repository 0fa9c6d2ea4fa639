// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aibor/virtsup/internal/metrics"
	"github.com/aibor/virtsup/internal/qmp"
	"github.com/aibor/virtsup/internal/registry"
	"github.com/aibor/virtsup/internal/supervisor"
)

// Registry is the set of registry operations exposed by the API.
type Registry interface {
	Start(ctx context.Context, req supervisor.LaunchRequest) (*registry.Instance, error)
	Get(id uint64) (*registry.Instance, error)
	List() []*registry.Instance
	Prune() []uint64
	Suspend(id uint64) error
	Resume(id uint64) error
	Pause(ctx context.Context, id uint64) error
	Continue(ctx context.Context, id uint64) error
	Shutdown(ctx context.Context, id uint64) error
	Status(ctx context.Context, id uint64) (qmp.Status, error)
	Execute(ctx context.Context, id uint64, command string, arguments json.RawMessage) (json.RawMessage, error)
}

// Actions available at /vms/{id}/{action}.
const (
	ActionSuspend  = "suspend"
	ActionResume   = "resume"
	ActionPause    = "pause"
	ActionContinue = "continue"
	ActionShutdown = "shutdown"
)

// QMPRequest is the body of /vms/{id}/qmp.
type QMPRequest struct {
	Execute   string          `json:"execute"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// QMPResponse is the reply of /vms/{id}/qmp.
type QMPResponse struct {
	Return json.RawMessage `json:"return"`
}

// PruneResponse is the reply of /vms/prune.
type PruneResponse struct {
	Pruned []uint64 `json:"pruned"`
}

// Handler serves the control API.
type Handler struct {
	registry Registry
	metrics  *metrics.Metrics
}

// NewHandler creates a new [Handler]. Metrics are optional.
func NewHandler(reg Registry, m *metrics.Metrics) *Handler {
	return &Handler{
		registry: reg,
		metrics:  m,
	}
}

// NewRouter creates a router with all routes registered.
func NewRouter(reg Registry, m *metrics.Metrics) *mux.Router {
	router := mux.NewRouter()
	NewHandler(reg, m).RegisterRoutes(router)

	return router
}

// RegisterRoutes registers all routes on the given router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/vms", h.Start).Methods(http.MethodPost)
	r.HandleFunc("/vms", h.List).Methods(http.MethodGet)
	r.HandleFunc("/vms/prune", h.Prune).Methods(http.MethodPost)
	r.HandleFunc("/vms/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/vms/{id:[0-9]+}/status", h.Status).Methods(http.MethodGet)
	r.HandleFunc("/vms/{id:[0-9]+}/qmp", h.Execute).Methods(http.MethodPost)
	r.HandleFunc("/vms/{id:[0-9]+}/{action}", h.Action).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Start launches a new instance.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req supervisor.LaunchRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, fmt.Errorf("%w: decode body: %w", ErrBadRequest, err))
		return
	}

	// The instance must outlive the request.
	instance, err := h.registry.Start(context.WithoutCancel(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, instance.Info())
}

// List returns all instances.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	instances := h.registry.List()

	infos := make([]registry.Info, 0, len(instances))
	for _, instance := range instances {
		infos = append(infos, instance.Info())
	}

	writeJSON(w, http.StatusOK, infos)
}

// Get returns a single instance.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	instance, err := h.instance(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, instance.Info())
}

// Prune removes all exited instances.
func (h *Handler) Prune(w http.ResponseWriter, _ *http.Request) {
	pruned := h.registry.Prune()
	if pruned == nil {
		pruned = []uint64{}
	}

	writeJSON(w, http.StatusOK, PruneResponse{Pruned: pruned})
}

// Action runs a lifecycle action on an instance and returns the instance
// afterwards.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	instance, err := h.instance(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	id := instance.ID

	switch action := mux.Vars(r)["action"]; action {
	case ActionSuspend:
		err = h.registry.Suspend(id)
	case ActionResume:
		err = h.registry.Resume(id)
	case ActionPause:
		err = h.registry.Pause(ctx, id)
	case ActionContinue:
		err = h.registry.Continue(ctx, id)
	case ActionShutdown:
		err = h.registry.Shutdown(ctx, id)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown action: " + action})
		return
	}

	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, instance.Info())
}

// Status returns the guest run state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	instance, err := h.instance(r)
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := h.registry.Status(r.Context(), instance.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Execute runs an arbitrary QMP command.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	instance, err := h.instance(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req QMPRequest

	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, fmt.Errorf("%w: decode body: %w", ErrBadRequest, err))
		return
	}

	if req.Execute == "" {
		writeError(w, fmt.Errorf("%w: missing command", ErrBadRequest))
		return
	}

	ret, err := h.registry.Execute(r.Context(), instance.ID, req.Execute, req.Arguments)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QMPResponse{Return: ret})
}

// Health reports the server is up.
func (*Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) instance(r *http.Request) (*registry.Instance, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrBadRequest, err)
	}

	return h.registry.Get(id) //nolint:wrapcheck
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Debug("Write response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", slog.Any("error", err))
	}

	writeJSON(w, code, errorResponse{Error: err.Error()})
}
