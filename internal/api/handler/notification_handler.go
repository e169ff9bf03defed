package handler

import (
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/ricirt/venturematch/internal/api/middleware"
	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/service"
)

// NotificationHandler serves a user's notification feed.
type NotificationHandler struct {
	ledger *service.Ledger
	logger *zap.Logger
}

func NewNotificationHandler(ledger *service.Ledger, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{ledger: ledger, logger: logger}
}

// New handles GET /api/v1/notifications/new
//
// Returns the caller's unread notifications, newest first, and marks exactly
// those as read.
//
// @Summary   Unread notifications
// @Tags      notifications
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}   domain.Notification
// @Failure   401  {object}  map[string]string
// @Router    /api/v1/notifications/new [get]
func (h *NotificationHandler) New(w http.ResponseWriter, r *http.Request) {
	userID, ok := apimw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "token subject is not a user id")
		return
	}
	list, err := h.ledger.TakeUnread(r.Context(), userID)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Error("read unread notifications failed",
			zap.Int64("user_id", userID), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(list))
}

// All handles GET /api/v1/notifications/all
//
// @Summary   All notifications, read and unread
// @Tags      notifications
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}   domain.Notification
// @Failure   401  {object}  map[string]string
// @Router    /api/v1/notifications/all [get]
func (h *NotificationHandler) All(w http.ResponseWriter, r *http.Request) {
	userID, ok := apimw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "token subject is not a user id")
		return
	}
	list, err := h.ledger.AllFor(r.Context(), userID)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Error("list notifications failed",
			zap.Int64("user_id", userID), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(list))
}

func nonNil(list []*domain.Notification) []*domain.Notification {
	if list == nil {
		return []*domain.Notification{}
	}
	return list
}
