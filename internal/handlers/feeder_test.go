package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"petsync/internal/feeder"
	"petsync/internal/logger"
	"petsync/internal/models"
	"petsync/internal/push"
	"petsync/internal/service"

	"github.com/gin-gonic/gin"
)

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.Get(logger.ErrorLevel)
	h := NewHandler(s, push.NewHub(log), log, nil)
	return h.InitRoutes()
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body == "" {
		buf = bytes.NewBuffer(nil)
	} else {
		buf = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return m
}

func TestGetFeederState(t *testing.T) {
	m := &mockSync{snap: models.FeederSnapshot{Grams: 100, Level: 50, AutoRefill: true}}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodGet, "/feederState", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["grams"] != float64(100) || body["level"] != float64(50) || body["autoRefill"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSetFeederState_RequiresLevelOrGrams(t *testing.T) {
	r := newTestRouter(&service.Service{Sync: &mockSync{}})
	w := doJSON(t, r, http.MethodPost, "/feederState", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decodeBody(t, w)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, service.ErrInvalidPayload.Error()) || !strings.Contains(msg, errLevelOrGrams) {
		t.Fatalf("expected invalid-payload error body, got %v", body)
	}
}

func TestSetFeederState_LevelPassedThroughUntyped(t *testing.T) {
	m := &mockSync{}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodPost, "/feederState", `{"level": "20 gramas"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if m.lastLevel != "20 gramas" {
		t.Fatalf("level not forwarded verbatim: %v", m.lastLevel)
	}
}

func TestSetFeederState_Grams(t *testing.T) {
	m := &mockSync{}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodPost, "/feederState", `{"grams": 150}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if m.lastGrams != 150 {
		t.Fatalf("expected grams=150, got %d", m.lastGrams)
	}
}

func TestSetFeederState_OutOfRangeIs400(t *testing.T) {
	m := &mockSync{err: feeder.ErrOutOfRange}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodPost, "/feederState", `{"grams": 999}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDispense_EmptyBodyUsesDefaultDose(t *testing.T) {
	m := &mockSync{}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodPost, "/feederState/dispense", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(m.dispenseAmounts) != 1 || m.dispenseAmounts[0] != nil {
		t.Fatalf("expected one dispense with nil amount, got %v", m.dispenseAmounts)
	}
}

func TestDispense_ExplicitAmount(t *testing.T) {
	m := &mockSync{}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodPost, "/feederState/dispense", `{"amount": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(m.dispenseAmounts) != 1 || m.dispenseAmounts[0] == nil || *m.dispenseAmounts[0] != 10 {
		t.Fatalf("expected dispense amount 10, got %v", m.dispenseAmounts)
	}
}

func TestFillBowl(t *testing.T) {
	m := &mockSync{snap: models.FeederSnapshot{Grams: 200, Level: 100}}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodPost, "/feederState/fill", "")
	if w.Code != http.StatusOK || m.fillCalls != 1 {
		t.Fatalf("expected 200 and one fill call, got %d / %d", w.Code, m.fillCalls)
	}
}

func TestSetAutoRefill_RequiresBoolean(t *testing.T) {
	r := newTestRouter(&service.Service{Sync: &mockSync{}})
	for _, body := range []string{`{}`, `{"enabled": "yes"}`, `{"enabled": 1}`} {
		w := doJSON(t, r, http.MethodPost, "/feederState/autoRefill", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
		resp := decodeBody(t, w)
		if msg, _ := resp["error"].(string); !strings.Contains(msg, service.ErrInvalidPayload.Error()) {
			t.Fatalf("body %s: expected invalid-payload error, got %v", body, resp)
		}
	}
}

func TestSetAutoRefill_Valid(t *testing.T) {
	m := &mockSync{}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodPost, "/feederState/autoRefill", `{"enabled": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !m.lastAutoRefill {
		t.Fatalf("autoRefill not forwarded")
	}
}

func TestHealth(t *testing.T) {
	m := &mockSync{snap: models.FeederSnapshot{Grams: 120, Level: 60}}
	r := newTestRouter(&service.Service{Sync: m})

	w := doJSON(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" || body["currentGrams"] != float64(120) {
		t.Fatalf("unexpected health body: %v", body)
	}
	if _, ok := body["uptimeSeconds"]; !ok {
		t.Fatalf("missing uptimeSeconds: %v", body)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	r := newTestRouter(&service.Service{Sync: &mockSync{}})
	w := doJSON(t, r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Route not found" {
		t.Fatalf("unexpected 404 body: %v", body)
	}
}
