package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"reppyroute/internal/idempotency"
)

type memGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (g *memGuard) Claim(_ context.Context, _ int64, key string, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] {
		return idempotency.ErrDuplicate
	}
	g.keys[key] = true
	return nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

func idemRouter(guard idempotency.Guard, status *int) *gin.Engine {
	router := gin.New()
	router.POST("/requests", func(c *gin.Context) {
		c.Set(ctxUserID, int64(5))
		c.Next()
	}, Idempotency(guard, time.Hour), func(c *gin.Context) {
		c.Status(*status)
	})
	return router
}

func post(router http.Handler, key string) int {
	req := httptest.NewRequest(http.MethodPost, "/requests", nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	status := http.StatusCreated
	router := idemRouter(&memGuard{keys: map[string]bool{}}, &status)

	assert.Equal(t, http.StatusCreated, post(router, "abc"))
	assert.Equal(t, http.StatusConflict, post(router, "abc"))
	assert.Equal(t, http.StatusCreated, post(router, "other"))
	assert.Equal(t, http.StatusCreated, post(router, ""))
	assert.Equal(t, http.StatusCreated, post(router, ""))
}

func TestIdempotencyReleasesOnServerError(t *testing.T) {
	status := http.StatusInternalServerError
	router := idemRouter(&memGuard{keys: map[string]bool{}}, &status)

	assert.Equal(t, http.StatusInternalServerError, post(router, "retry-me"))
	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, post(router, "retry-me"))
}

func TestIdempotencyScopesKeyToConcretePath(t *testing.T) {
	router := gin.New()
	router.POST("/requests/:id/quotes", func(c *gin.Context) {
		c.Set(ctxUserID, int64(5))
		c.Next()
	}, Idempotency(&memGuard{keys: map[string]bool{}}, time.Hour), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	quote := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(IdempotencyHeader, "same-key")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, quote("/requests/1/quotes"))
	assert.Equal(t, http.StatusOK, quote("/requests/2/quotes"))
	assert.Equal(t, http.StatusConflict, quote("/requests/1/quotes"))
}
