package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerd-dev/peerd/handles"
	"github.com/peerd-dev/peerd/journal"
	"github.com/peerd-dev/peerd/sysinfo"
)

func testAPI(t *testing.T, capacity int) (*API, *journal.Journal) {
	j, err := journal.NewJournal(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, j.Close())
	})
	a, err := NewAPI(handles.NewRegistry(capacity), j, "127.0.0.1:0")
	require.NoError(t, err)
	return a, j
}

func do(t testing.TB, a *API, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(w, r)
	return w
}

func decodeSnapshot(t testing.TB, w *httptest.ResponseRecorder) handles.Snapshot {
	t.Helper()
	var s handles.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	return s
}

func TestEmptyBind(t *testing.T) {
	j, err := journal.NewJournal(t.TempDir())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, j.Close())
	}()
	_, err = NewAPI(handles.NewRegistry(0), j, "")
	assert.Error(t, err)
}

func TestLifecycleOverAPI(t *testing.T) {
	a, _ := testAPI(t, 0)

	w := do(t, a, http.MethodPost, "/api/handles", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeSnapshot(t, w).ID
	require.Equal(t, uint64(1), id)

	w = do(t, a, http.MethodPost, fmt.Sprintf("/api/handles/%d/init", id),
		`{"endpoint":"ipc://x","panic_on_disconnect":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, a, http.MethodPost, fmt.Sprintf("/api/handles/%d/start", id), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, a, http.MethodPut, fmt.Sprintf("/api/handles/%d/counter", id), `{"value":42}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, a, http.MethodPost, fmt.Sprintf("/api/handles/%d/stop", id), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, a, http.MethodGet, fmt.Sprintf("/api/handles/%d/counter", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	var ci counterInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ci))
	assert.Equal(t, uint32(42), ci.Value)

	w = do(t, a, http.MethodGet, fmt.Sprintf("/api/handles/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	s := decodeSnapshot(t, w)
	assert.Equal(t, handles.Stopped, s.State)
	assert.Equal(t, "ipc://x", s.Endpoint)
	assert.True(t, s.PanicOnDisconnect)

	w = do(t, a, http.MethodDelete, fmt.Sprintf("/api/handles/%d", id), "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, a, http.MethodGet, fmt.Sprintf("/api/handles/%d", id), "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	a, _ := testAPI(t, 0)
	w := do(t, a, http.MethodPost, "/api/handles", "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, a, http.MethodPost, "/api/handles/1/start", "")
	require.Equal(t, http.StatusConflict, w.Code)
	var ei errorInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ei))
	assert.Equal(t, "InvalidState", ei.Error)

	w = do(t, a, http.MethodPost, "/api/handles/1/stop", "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ei))
	assert.Equal(t, "NotRunning", ei.Error)

	w = do(t, a, http.MethodPost, "/api/handles/1/init", `{"endpoint":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ei))
	assert.Equal(t, "InvalidArgument", ei.Error)

	w = do(t, a, http.MethodPost, "/api/handles/1/init", `{"endpoint":"ipc://x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, a, http.MethodPost, "/api/handles/1/init", `{"endpoint":"ipc://y"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ei))
	assert.Equal(t, "AlreadyInitialized", ei.Error)

	w = do(t, a, http.MethodGet, "/api/handles/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, a, http.MethodGet, "/api/handles/99", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCapacityExhaustionOverAPI(t *testing.T) {
	a, _ := testAPI(t, 1)
	w := do(t, a, http.MethodPost, "/api/handles", "")
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, a, http.MethodPost, "/api/handles", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var ei errorInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ei))
	assert.Equal(t, "AllocationFailure", ei.Error)
}

func TestCounterOutOfRange(t *testing.T) {
	a, _ := testAPI(t, 0)
	do(t, a, http.MethodPost, "/api/handles", "")
	do(t, a, http.MethodPost, "/api/handles/1/init", `{"endpoint":"ipc://x"}`)
	w := do(t, a, http.MethodPut, "/api/handles/1/counter", `{"value":4294967296}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var ei errorInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ei))
	assert.Equal(t, "InvalidArgument", ei.Error)
}

func TestStatus(t *testing.T) {
	a, _ := testAPI(t, 8)
	do(t, a, http.MethodPost, "/api/handles", "")
	do(t, a, http.MethodPost, "/api/handles", "")
	do(t, a, http.MethodPost, "/api/handles/1/init", `{"endpoint":"ipc://x"}`)
	w := do(t, a, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var s statusInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	assert.Equal(t, 8, s.Capacity)
	assert.Equal(t, 2, s.Counts.Total)
	assert.Equal(t, 1, s.Counts.Uninitialized)
	assert.Equal(t, 1, s.Counts.Initialized)
	assert.Positive(t, s.GoroutinesCount)
}

func TestSamples(t *testing.T) {
	a, j := testAPI(t, 0)
	for i := 1; i <= 3; i++ {
		require.NoError(t, j.Put(sysinfo.Sample{
			Timestamp: time.Unix(int64(i), 0),
			CPU:       sysinfo.CPU{Usage: float64(i)},
		}))
	}
	w := do(t, a, http.MethodGet, "/api/samples?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var samples []sysinfo.Sample
	require.NoError(t, json.NewDecoder(w.Body).Decode(&samples))
	require.Len(t, samples, 2)
	assert.Equal(t, 3.0, samples[0].CPU.Usage)
	assert.Equal(t, 2.0, samples[1].CPU.Usage)

	w = do(t, a, http.MethodGet, "/api/samples?limit=-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
