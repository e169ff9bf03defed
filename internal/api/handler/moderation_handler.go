package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/ricirt/venturematch/internal/api/middleware"
	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/service"
)

const notFoundPage = "Moderation link is invalid or the entity no longer exists."

// ModerationHandler serves the approve/decline links emailed to the
// moderation admin. Responses are plain-text pages, not JSON.
type ModerationHandler struct {
	dispatcher *service.Dispatcher
	logger     *zap.Logger
}

func NewModerationHandler(d *service.Dispatcher, logger *zap.Logger) *ModerationHandler {
	return &ModerationHandler{dispatcher: d, logger: logger}
}

// Approve handles GET /moderation/approve/{kind}/{id}
//
// @Summary  Approve a moderated entity
// @Tags     moderation
// @Produce  plain
// @Param    kind    path   string  true  "investor, project or startup"
// @Param    id      path   int     true  "Entity id"
// @Param    ticket  query  string  true  "Ticket from the moderation email"
// @Success  200     {string}  string
// @Failure  404     {string}  string
// @Router   /moderation/approve/{kind}/{id} [get]
func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.DecisionApprove)
}

// Decline handles GET /moderation/decline/{kind}/{id}
//
// @Summary  Decline a moderated entity
// @Tags     moderation
// @Produce  plain
// @Param    kind    path   string  true  "investor, project or startup"
// @Param    id      path   int     true  "Entity id"
// @Param    ticket  query  string  true  "Ticket from the moderation email"
// @Success  200     {string}  string
// @Failure  404     {string}  string
// @Router   /moderation/decline/{kind}/{id} [get]
func (h *ModerationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.DecisionDecline)
}

func (h *ModerationHandler) decide(w http.ResponseWriter, r *http.Request, decision domain.Decision) {
	log := apimw.Logger(r.Context(), h.logger)
	kind := domain.EntityKind(chi.URLParam(r, "kind"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 || !kind.IsValid() {
		respondText(w, http.StatusNotFound, notFoundPage)
		return
	}

	origin, ok := originOf(w, r, "")
	if !ok {
		return
	}
	receipt, err := h.dispatcher.ModerationDecided(r.Context(), origin, decision, kind, id, r.URL.Query().Get("ticket"))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTicket),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidEntityKind),
		errors.Is(err, domain.ErrInvalidID):
		log.Warn("moderation link rejected",
			zap.String("entity_kind", string(kind)), zap.Int64("entity_id", id), zap.Error(err))
		respondText(w, http.StatusNotFound, notFoundPage)
		return
	default:
		log.Error("moderation decision failed",
			zap.String("entity_kind", string(kind)), zap.Int64("entity_id", id), zap.Error(err))
		respondText(w, http.StatusInternalServerError, "Something went wrong, please retry.")
		return
	}

	page := service.DecisionPage(kind, id, receipt.Decision)
	if receipt.AlreadyRecorded {
		page += "\n(This decision had already been recorded.)"
	}
	respondText(w, http.StatusOK, page)
}
