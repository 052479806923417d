package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/service"
)

// ItemHandler serves the items of a list.
type ItemHandler struct {
	collab *service.CollaborationService
	logger *slog.Logger
}

func NewItemHandler(collab *service.CollaborationService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{collab: collab, logger: logger}
}

// HandleList returns the active items of a list.
//
// HTTP: GET /item?listId=xxx
func (h *ItemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	items, err := h.collab.ListItems(r.Context(), caller, r.URL.Query().Get("listId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleGet returns one item, including deleted ones.
//
// HTTP: GET /item/{itemId}
func (h *ItemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	item, err := h.collab.GetItem(r.Context(), caller, chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleCreate adds an item to a list.
//
// HTTP: POST /item
// Body: name, listId (form or JSON)
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	params, err := readParams(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	item, err := h.collab.CreateItem(r.Context(), caller, params.Get("listId"), params.Get("name"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleDelete soft-deletes an item.
//
// HTTP: DELETE /item/{itemId}
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	item, err := h.collab.RemoveItem(r.Context(), caller, chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
