package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/service"
)

// UserHandler serves user lookups and push subscriptions.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleSearch finds users to invite.
//
// HTTP: GET /users?name=ali
//
// Matches a name substring or an exact email, at most service.SearchLimit
// results.
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns one user.
//
// HTTP: GET /users/{userId}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// subscribeResponse wraps the updated caller: {"user": {...}}.
type subscribeResponse struct {
	User *model.User `json:"user"`
}

// HandleSubscribe stores the push device id of the caller.
//
// HTTP: POST /subscribe
// Body: deviceId (form or JSON)
func (h *UserHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	params, err := readParams(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Subscribe(r.Context(), caller, params.Get("deviceId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, subscribeResponse{User: user})
}
