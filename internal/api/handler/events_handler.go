package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	apimw "github.com/ricirt/venturematch/internal/api/middleware"
	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/service"
)

const headerPublicBaseURL = "X-Public-Base-URL"

type projectEventRequest struct {
	ProjectID int64  `json:"project_id" validate:"required,gt=0"`
	EventID   string `json:"event_id" validate:"omitempty,max=128"`
}

type subscriptionEventRequest struct {
	ProjectID    int64  `json:"project_id" validate:"required,gt=0"`
	SubscriberID int64  `json:"subscriber_id" validate:"required,gt=0"`
	EventID      string `json:"event_id" validate:"omitempty,max=128"`
}

type moderationEventRequest struct {
	EntityKind domain.EntityKind `json:"entity_kind" validate:"required,oneof=investor project startup"`
	EntityID   int64             `json:"entity_id" validate:"required,gt=0"`
	EventID    string            `json:"event_id" validate:"omitempty,max=128"`
}

type acceptedResponse struct {
	TaskIDs []string `json:"task_ids"`
}

// EventsHandler accepts domain events from the marketplace and hands them to
// the dispatcher. Responses are sent as soon as tasks are enqueued.
type EventsHandler struct {
	dispatcher *service.Dispatcher
	logger     *zap.Logger
}

func NewEventsHandler(d *service.Dispatcher, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{dispatcher: d, logger: logger}
}

// ProjectCreated handles POST /api/v1/events/project-created
//
// @Summary   A project was created; notify matching investors
// @Tags      events
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     X-Public-Base-URL  header    string               false  "Base URL for links in emails"
// @Param     body               body      projectEventRequest  true   "Event"
// @Success   202                {object}  acceptedResponse
// @Failure   404                {object}  map[string]string
// @Failure   422                {object}  map[string]string
// @Router    /api/v1/events/project-created [post]
func (h *EventsHandler) ProjectCreated(w http.ResponseWriter, r *http.Request) {
	var req projectEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	origin, ok := originOf(w, r, req.EventID)
	if !ok {
		return
	}
	ids, err := h.dispatcher.ProjectCreated(r.Context(), origin, req.ProjectID)
	h.accepted(w, r, "project_created", ids, err)
}

// ProjectUpdated handles POST /api/v1/events/project-updated
//
// @Summary   A project was updated; notify subscribers and matching investors
// @Tags      events
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     X-Public-Base-URL  header    string               false  "Base URL for links in emails"
// @Param     body               body      projectEventRequest  true   "Event"
// @Success   202                {object}  acceptedResponse
// @Failure   404                {object}  map[string]string
// @Failure   422                {object}  map[string]string
// @Router    /api/v1/events/project-updated [post]
func (h *EventsHandler) ProjectUpdated(w http.ResponseWriter, r *http.Request) {
	var req projectEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	origin, ok := originOf(w, r, req.EventID)
	if !ok {
		return
	}
	ids, err := h.dispatcher.ProjectUpdated(r.Context(), origin, req.ProjectID)
	h.accepted(w, r, "project_updated", ids, err)
}

// ProjectSubscribed handles POST /api/v1/events/project-subscribed
//
// @Summary   An investor subscribed to a project; notify the startup owner
// @Tags      events
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      subscriptionEventRequest  true  "Event"
// @Success   202   {object}  acceptedResponse
// @Failure   404   {object}  map[string]string
// @Failure   422   {object}  map[string]string
// @Router    /api/v1/events/project-subscribed [post]
func (h *EventsHandler) ProjectSubscribed(w http.ResponseWriter, r *http.Request) {
	var req subscriptionEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	origin, ok := originOf(w, r, req.EventID)
	if !ok {
		return
	}
	id, err := h.dispatcher.ProjectSubscribed(r.Context(), origin, req.ProjectID, req.SubscriberID)
	var ids []string
	if id != "" {
		ids = []string{id}
	}
	h.accepted(w, r, "project_subscribed", ids, err)
}

// Moderation handles POST /api/v1/events/moderation
//
// @Summary   An entity was submitted for review; email the moderation admin
// @Tags      events
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      moderationEventRequest  true  "Event"
// @Success   202   {object}  acceptedResponse
// @Failure   404   {object}  map[string]string
// @Failure   422   {object}  map[string]string
// @Router    /api/v1/events/moderation [post]
func (h *EventsHandler) Moderation(w http.ResponseWriter, r *http.Request) {
	var req moderationEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	origin, ok := originOf(w, r, req.EventID)
	if !ok {
		return
	}
	ticket, err := h.dispatcher.ModerationSubmitted(r.Context(), origin, req.EntityKind, req.EntityID)
	var ids []string
	if ticket != "" {
		ids = []string{ticket}
	}
	h.accepted(w, r, "moderation_submitted", ids, err)
}

func (h *EventsHandler) accepted(w http.ResponseWriter, r *http.Request, event string, ids []string, err error) {
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("event rejected",
			zap.String("event", event), zap.Error(err))
		mapError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusAccepted, acceptedResponse{TaskIDs: ids})
}

// originOf builds the event origin from the request. The event id defaults to
// the correlation id; the base URL comes from X-Public-Base-URL when set and
// otherwise falls back to the dispatcher's configured default.
func originOf(w http.ResponseWriter, r *http.Request, eventID string) (domain.Origin, bool) {
	base := strings.TrimSpace(r.Header.Get(headerPublicBaseURL))
	if err := validate.Var(base, "omitempty,http_url"); err != nil {
		respondError(w, http.StatusBadRequest, headerPublicBaseURL+" must be an http(s) URL")
		return domain.Origin{}, false
	}
	if eventID == "" {
		eventID = apimw.GetCorrelationID(r.Context())
	}
	return domain.Origin{EventID: eventID, BaseURL: base}, true
}
