package ingress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sheet_notify/internal/edits"
	"sheet_notify/internal/processing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEditHandler struct {
	mu     sync.Mutex
	events []edits.RawEvent
}

func (f *fakeEditHandler) HandleEdit(ctx context.Context, raw edits.RawEvent) processing.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, raw)
	return processing.Result{
		EventID:   "evt-1",
		Status:    processing.StageResult{Outcome: processing.OutcomeNoMatch},
		NewRecord: processing.StageResult{Outcome: processing.OutcomeNotified},
	}
}

const payload = `{"spreadsheetId":"sheet-1","range":{"sheetName":"Заявки","row":3,"column":3,"numRows":1,"numCols":1},"value":"Петров"}`

func TestEditEndpointDispatches(t *testing.T) {
	fake := &fakeEditHandler{}
	h := NewHandler(fake, "s3cret")

	req := httptest.NewRequest(http.MethodPost, EditPath, strings.NewReader(payload))
	req.Header.Set(SecretHeader, "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.events, 1)
	ev := fake.events[0]
	assert.Equal(t, "sheet-1", ev.SpreadsheetID)
	require.NotNil(t, ev.Range)
	assert.Equal(t, "Заявки", ev.Range.SheetName)
	assert.Equal(t, 3, ev.Range.Column)
	assert.Equal(t, "Петров", ev.Value)

	var resp editResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, editResponse{
		EventID:       "evt-1",
		Status:        "no_match",
		NewRecord:     "notified",
		Notifications: 1,
	}, resp)
}

func TestEditEndpointRejects(t *testing.T) {
	tests := []struct {
		name   string
		method string
		secret string
		body   string
		code   int
	}{
		{"wrong method", http.MethodGet, "s3cret", "", http.StatusMethodNotAllowed},
		{"missing secret", http.MethodPost, "", payload, http.StatusUnauthorized},
		{"wrong secret", http.MethodPost, "nope", payload, http.StatusUnauthorized},
		{"bad json", http.MethodPost, "s3cret", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEditHandler{}
			req := httptest.NewRequest(tt.method, EditPath, strings.NewReader(tt.body))
			if tt.secret != "" {
				req.Header.Set(SecretHeader, tt.secret)
			}
			rec := httptest.NewRecorder()
			NewHandler(fake, "s3cret").ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Empty(t, fake.events)
		})
	}
}

func TestEditEndpointWithoutSecret(t *testing.T) {
	fake := &fakeEditHandler{}
	req := httptest.NewRequest(http.MethodPost, EditPath, strings.NewReader(payload))
	rec := httptest.NewRecorder()
	NewHandler(fake, "").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fake.events, 1)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&fakeEditHandler{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
