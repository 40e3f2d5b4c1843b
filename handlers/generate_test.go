package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateQueuesTask(t *testing.T) {
	f := newTestAPI(t)
	r := f.router()

	w := postJSON(t, r, "/api/generate", `{"topic":"AI developments this week","style":"technical"}`)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
		TaskID  string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "processing", resp.Status)
	assert.NotEmpty(t, resp.TaskID)

	// The handle is immediately pollable.
	req := httptest.NewRequest(http.MethodGet, "/api/task/"+resp.TaskID, nil)
	poll := httptest.NewRecorder()
	r.ServeHTTP(poll, req)

	require.Equal(t, http.StatusOK, poll.Code)
	assert.Contains(t, poll.Body.String(), `"state":"PENDING"`)
}

func TestGenerateDefaultsStyle(t *testing.T) {
	f := newTestAPI(t)

	w := postJSON(t, f.router(), "/api/generate", `{"topic":"quantum computing"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestGenerateRejectsShortTopic(t *testing.T) {
	f := newTestAPI(t)

	w := postJSON(t, f.router(), "/api/generate", `{"topic":"ab"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), "at least 3 characters")
}

func TestGenerateRejectsInjection(t *testing.T) {
	f := newTestAPI(t)

	w := postJSON(t, f.router(), "/api/generate", `{"topic":"news <script>alert(1)</script>"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "disallowed content")
}

func TestGenerateRejectsUnknownStyle(t *testing.T) {
	f := newTestAPI(t)

	w := postJSON(t, f.router(), "/api/generate", `{"topic":"valid topic","style":"sarcastic"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateRejectsMissingTopic(t *testing.T) {
	f := newTestAPI(t)

	w := postJSON(t, f.router(), "/api/generate", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskStatusUnknownID(t *testing.T) {
	f := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/task/does-not-exist", nil)
	w := httptest.NewRecorder()
	f.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "task not found")
}
