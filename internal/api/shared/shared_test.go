package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	ctx := SetTraceID(context.Background())
	traceID := GetTraceID(ctx)

	assert.Len(t, traceID, TraceIDLength*2)
	assert.NotEqual(t, traceID, GetTraceID(SetTraceID(context.Background())))
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestOwnerIDFromContext(t *testing.T) {
	userID := uuid.New()

	ownerID, ok := OwnerIDFromContext(WithUserID(context.Background(), userID))
	require.True(t, ok)
	assert.Equal(t, userID.String(), ownerID)

	_, ok = OwnerIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OwnerIDFromContext(WithUserID(context.Background(), uuid.Nil))
	assert.False(t, ok)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"single object", `{"title":"Buy milk"}`, false},
		{"trailing whitespace", "{\"title\":\"x\"}\n", false},
		{"malformed", `{"title":`, true},
		{"trailing value", `{"title":"a"}{"title":"b"}`, true},
		{"empty body", ``, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), r, &p)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidJSON)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRespondWithValidationErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
	r = r.WithContext(SetTraceID(r.Context()))
	w := httptest.NewRecorder()

	RespondWithValidationErrors(w, r, []string{"title is required", "status must be one of 0 (New), 1 (InProgress), 2 (Done)"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Errors, 2)
	assert.Equal(t, GetTraceID(r.Context()), body.TraceID)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, nil, "ERROR"},
		{"rate limited", http.StatusTooManyRequests, nil, "WARN"},
		{"client error", http.StatusNotFound, nil, "DEBUG"},
		{"elevated client error", http.StatusUnauthorized, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

			r := httptest.NewRequest(http.MethodGet, "/api/tasks/1", nil)
			r = r.WithContext(logger.WithContext(r.Context(), log))
			w := httptest.NewRecorder()

			RespondWithErrorAndLog(w, r, tc.status, "Something failed",
				errors.New("dial postgres://app:s3cret@db:5432/tasks"), tc.opts...)

			assert.Equal(t, tc.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Something failed", body.Error)
			assert.NotContains(t, w.Body.String(), "postgres")

			assert.Contains(t, logs.String(), `"level":"`+tc.wantLevel+`"`)
			assert.NotContains(t, logs.String(), "s3cret")
		})
	}
}
