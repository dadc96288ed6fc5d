package synapse

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/synapsehq/synapse/internal/synapse/stats"
	"github.com/synapsehq/synapse/internal/synapse/storage"
)

func TestDebugRouter(t *testing.T) {
	st := stats.New()
	st.IncWrite()
	rt := &Runtime{Stats: st, DBType: storage.EngineDuckDB}
	r := debugRouter(rt)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duckdb")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "writes")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
