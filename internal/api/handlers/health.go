package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const rootBanner = "API do MevamScale rodando com sucesso!"

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Root answers the plain-text banner clients use as a liveness probe.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rootBanner))
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var (
		mu       sync.Mutex
		services = make(map[string]string)
	)
	report := func(name string, err error) error {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			services[name] = "unhealthy"
			return err
		}
		services[name] = "healthy"
		return nil
	}

	// Probes run concurrently; the group error only flags overall health
	var g errgroup.Group
	g.Go(func() error {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		return report("database", err)
	})
	if h.redis != nil {
		g.Go(func() error {
			return report("redis", h.redis.Ping(ctx).Err())
		})
	}

	status, statusCode := "healthy", http.StatusOK
	if err := g.Wait(); err != nil {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	// Simple readiness check
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
