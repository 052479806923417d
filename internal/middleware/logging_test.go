package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodionaltshuler/smart-reminder-server/internal/middleware"
)

type observation struct {
	method string
	status int
}

type recorder struct {
	seen []observation
}

func (r *recorder) RecordHTTPRequest(method string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{method: method, status: status})
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantLevel  string
	}{
		{
			name:       "implicit 200",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) },
			wantStatus: http.StatusOK,
			wantLevel:  "level=INFO",
		},
		{
			name:       "explicit 403",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			wantStatus: http.StatusForbidden,
			wantLevel:  "level=INFO",
		},
		{
			name:       "500 is a warning",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantStatus: http.StatusInternalServerError,
			wantLevel:  "level=WARN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			rec := &recorder{}

			h := chimiddleware.RequestID(middleware.Logger(logger, rec)(tt.handler))
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/itemLists", nil))

			require.Len(t, rec.seen, 1)
			assert.Equal(t, observation{method: http.MethodPost, status: tt.wantStatus}, rec.seen[0])

			line := buf.String()
			assert.Contains(t, line, tt.wantLevel)
			assert.Contains(t, line, "path=/itemLists")
			assert.Contains(t, line, "requestID=")
			assert.NotContains(t, line, `requestID=""`)
		})
	}
}

func TestLogger_NilRecorder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := middleware.Logger(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
}
