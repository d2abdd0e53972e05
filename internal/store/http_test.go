package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestHTTPDelete(t *testing.T) {
	status := atomic.NewInt32(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/timers/gone", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"message":"Timer not found"}`))
	}))
	defer srv.Close()

	repo, err := NewHTTP(HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	defer repo.Close()

	assert.NoError(t, repo.Delete(context.Background(), "gone"))

	status.Store(http.StatusInternalServerError)
	err = repo.Delete(context.Background(), "gone")
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "delete", perr.Op)
	assert.Equal(t, "gone", perr.ID)
	assert.NotErrorIs(t, err, ErrNotFound)
}
