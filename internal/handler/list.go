package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/service"
)

// ListHandler serves items lists and invitations. Membership rules live in
// service.CollaborationService; this layer only parses and maps errors.
type ListHandler struct {
	collab *service.CollaborationService
	logger *slog.Logger
}

func NewListHandler(collab *service.CollaborationService, logger *slog.Logger) *ListHandler {
	return &ListHandler{collab: collab, logger: logger}
}

// HandleCreate creates a list owned by the caller.
//
// HTTP: POST /itemLists
// Body: name (form or JSON)
func (h *ListHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	params, err := readParams(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	list, err := h.collab.CreateList(r.Context(), caller, params.Get("name"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleList returns the active lists the caller collaborates on.
//
// HTTP: GET /itemLists
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	lists, err := h.collab.ListLists(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if lists == nil {
		lists = []model.ItemsList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleDelete soft-deletes a list.
//
// HTTP: DELETE /itemLists/{listId}
func (h *ListHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	list, err := h.collab.RemoveList(r.Context(), caller, chi.URLParam(r, "listId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleInvite adds a user to the collaborators of a list.
//
// HTTP: POST /invite/{listId}/{userId}
//
// Inviting an existing collaborator is answered with 400, not 409; clients
// rely on that status.
func (h *ListHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	list, err := h.collab.Invite(r.Context(), caller, chi.URLParam(r, "listId"), chi.URLParam(r, "userId"))
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			writeErrorStatus(w, r, h.logger, http.StatusBadRequest, err)
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
