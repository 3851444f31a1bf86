package share_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	shareHandler "github.com/lunarhue/promptii/backend/internal/handler/share"
	shareservice "github.com/lunarhue/promptii/backend/internal/service/share"
)

func newShareRouter(gateway shareservice.Gateway) http.Handler {
	r := chi.NewRouter()
	shareHandler.New(gateway, "/share").RegisterRoutes(r)
	return r
}

func TestPublishAndResolve(t *testing.T) {
	router := newShareRouter(shareservice.NewMemoryGateway())

	req := httptest.NewRequest(http.MethodPost, "/share",
		strings.NewReader(`{"text":"the finished prompt"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var published struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &published); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if published.ID == "" {
		t.Fatal("expected share id")
	}
	if published.URL != "/share/"+published.ID {
		t.Fatalf("unexpected share url: %q", published.URL)
	}

	req = httptest.NewRequest(http.MethodGet, "/share/"+published.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var resolved struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resolved.Text != "the finished prompt" {
		t.Fatalf("unexpected text: %q", resolved.Text)
	}
}

func TestPublishRejectsEmptyText(t *testing.T) {
	router := newShareRouter(shareservice.NewMemoryGateway())

	req := httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResolveUnknownID(t *testing.T) {
	router := newShareRouter(shareservice.NewMemoryGateway())

	req := httptest.NewRequest(http.MethodGet, "/share/no-such-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestShareDisabledAnswers503(t *testing.T) {
	router := newShareRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{"text":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/share/any", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
