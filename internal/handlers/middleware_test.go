package handlers

import (
	"net/http"
	"testing"

	"petsync/internal/logger"
	"petsync/internal/models"
	"petsync/internal/push"
	"petsync/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestRateLimit_ThrottlesPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Get(logger.ErrorLevel)
	m := &mockSync{snap: models.FeederSnapshot{}}
	h := NewHandler(&service.Service{Sync: m}, push.NewHub(log), log, NewIPRateLimiter(rate.Limit(1), 1))
	r := h.InitRoutes()

	first := doJSON(t, r, http.MethodGet, "/feederState", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", first.Code)
	}
	second := doJSON(t, r, http.MethodGet, "/feederState", "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be throttled, got %d", second.Code)
	}
}

func TestRateLimit_HealthExempt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Get(logger.ErrorLevel)
	m := &mockSync{}
	h := NewHandler(&service.Service{Sync: m}, push.NewHub(log), log, NewIPRateLimiter(rate.Limit(1), 1))
	r := h.InitRoutes()

	for i := 0; i < 3; i++ {
		if w := doJSON(t, r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Fatalf("health must not be rate limited, got %d", w.Code)
		}
	}
}
