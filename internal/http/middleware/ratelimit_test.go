package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterAllowPerKey(t *testing.T) {
	limiter := NewRateLimiter(1, 2)

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatal("burst inicial deveria ser aceito")
	}
	if limiter.Allow("a") {
		t.Fatal("terceira requisição imediata deveria estourar o burst")
	}
	if !limiter.Allow("b") {
		t.Fatal("chave diferente tem bucket próprio")
	}
}

func TestUserRateLimitReturns429(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	handler := UserRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/qualquer", nil)
		req = req.WithContext(context.WithValue(req.Context(), ContextKeySubject, "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("primeira requisição deveria passar, obteve %d", rec.Code)
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("esperava 429, obteve %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatal("resposta limitada deveria indicar Retry-After")
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("corpo inválido: %v", err)
	}
	if body.Error.Code != "RATE_LIMIT" {
		t.Fatalf("código inesperado: %s", body.Error.Code)
	}
}

func TestRateLimitSkipsAnonymous(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	handler := UserRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/qualquer", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("sem subject não há chave para limitar, obteve %d", rec.Code)
		}
	}
}
