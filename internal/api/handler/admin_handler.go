package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/ricirt/venturematch/internal/api/middleware"
	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/repository"
	"github.com/ricirt/venturematch/internal/worker"
)

const (
	defaultDeadLimit = 50
	maxDeadLimit     = 500
)

// AdminHandler exposes the dead-letter queue and a queue snapshot to operators.
type AdminHandler struct {
	tasks    repository.TaskRepository
	producer *queue.Producer
	monitor  *worker.Monitor
	logger   *zap.Logger
}

func NewAdminHandler(
	tasks repository.TaskRepository,
	producer *queue.Producer,
	monitor *worker.Monitor,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{tasks: tasks, producer: producer, monitor: monitor, logger: logger}
}

// DeadLettered handles GET /api/v1/admin/tasks/dead
//
// @Summary   List dead-lettered tasks
// @Tags      admin
// @Produce   json
// @Security  BearerAuth
// @Param     limit  query     int  false  "Max rows (default 50, max 500)"
// @Success   200    {object}  map[string]any
// @Router    /api/v1/admin/tasks/dead [get]
func (h *AdminHandler) DeadLettered(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeadLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxDeadLimit {
		limit = l
	}
	tasks, err := h.tasks.ListByStatus(r.Context(), domain.TaskDeadLettered, limit)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Error("list dead-lettered tasks failed", zap.Error(err))
		mapError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  tasks,
		"limit": limit,
	})
}

// Replay handles POST /api/v1/admin/tasks/{id}/replay
//
// @Summary   Re-enqueue a dead-lettered task with a fresh attempt budget
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path      string  true  "Task UUID"
// @Success   202  {object}  map[string]string
// @Failure   404  {object}  map[string]string
// @Failure   409  {object}  map[string]string
// @Router    /api/v1/admin/tasks/{id}/replay [post]
func (h *AdminHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		mapError(w, domain.ErrNotFound)
		return
	}
	if err := h.tasks.Replay(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	h.producer.Nudge()
	apimw.Logger(r.Context(), h.logger).Info("task replayed", zap.String("task_id", id))
	respondJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(domain.TaskEnqueued)})
}

// Queue handles GET /api/v1/admin/queue
//
// @Summary   Buffer depth per priority and task counts per status
// @Tags      admin
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  worker.Snapshot
// @Router    /api/v1/admin/queue [get]
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	snap, err := h.monitor.Snapshot(r.Context())
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Error("queue snapshot failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
