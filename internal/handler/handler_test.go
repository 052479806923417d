package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rodionaltshuler/smart-reminder-server/internal/auth"
	"github.com/rodionaltshuler/smart-reminder-server/internal/handler"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	sqliteRepo "github.com/rodionaltshuler/smart-reminder-server/internal/repository/sqlite"
	"github.com/rodionaltshuler/smart-reminder-server/internal/service"
)

// testUserHeader names the user a request runs as. It stands in for the
// auth gate, which has its own tests.
const testUserHeader = "X-Test-User"

type testEnv struct {
	db     *sqliteRepo.DB
	router chi.Router
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires the list, item and user handlers on an in-memory
// database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := discardLogger()
	collab := service.NewCollaborationService(db, db, db, nil, logger, nil)
	lists := handler.NewListHandler(collab, logger)
	items := handler.NewItemHandler(collab, logger)
	users := handler.NewUserHandler(service.NewUserService(db, logger), logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(testUserHeader); id != "" {
				user, err := db.GetUserByID(r.Context(), id)
				require.NoError(t, err)
				r = r.WithContext(auth.WithPrincipal(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/users", users.HandleSearch)
	r.Get("/users/{userId}", users.HandleGet)
	r.Post("/subscribe", users.HandleSubscribe)
	r.Post("/invite/{listId}/{userId}", lists.HandleInvite)
	r.Get("/itemLists", lists.HandleList)
	r.Post("/itemLists", lists.HandleCreate)
	r.Delete("/itemLists/{listId}", lists.HandleDelete)
	r.Get("/item", items.HandleList)
	r.Post("/item", items.HandleCreate)
	r.Get("/item/{itemId}", items.HandleGet)
	r.Delete("/item/{itemId}", items.HandleDelete)

	return &testEnv{db: db, router: r}
}

func (e *testEnv) user(t *testing.T, name, email string) *model.User {
	t.Helper()
	u, err := e.db.UpsertFromProfile(context.Background(), &model.User{
		Name:  name,
		Email: email,
		OAuth: "fb-" + name,
	})
	require.NoError(t, err)
	return u
}

// do sends a request as user (nil for anonymous). A url.Values body is
// form encoded; any other non-nil body is sent as JSON.
func (e *testEnv) do(t *testing.T, user *model.User, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, target, nil)
	case url.Values:
		req = httptest.NewRequest(method, target, strings.NewReader(b.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set(testUserHeader, user.ID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error
}
