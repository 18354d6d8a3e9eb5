package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func doRequest(srv *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	srv := NewServer(nil, ":0", &fakePinger{})

	rec := doRequest(srv, http.MethodGet, "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = doRequest(srv, http.MethodHead, "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz_OK(t *testing.T) {
	srv := NewServer(nil, ":0", &fakePinger{})

	rec := doRequest(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"up"`)
}

func TestHealthz_DegradedWhenDatabaseUnreachable(t *testing.T) {
	srv := NewServer(nil, ":0", &fakePinger{err: errors.New("connection refused")})

	rec := doRequest(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestHealthz_NoPingerStillOK(t *testing.T) {
	srv := NewServer(nil, ":0", nil)

	rec := doRequest(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
