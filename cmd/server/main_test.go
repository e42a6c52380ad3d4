package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pauljones0/offers-bot/internal/processor"
)

type fakeProcessor struct {
	wakes int
}

func (f *fakeProcessor) ProcessOffers(context.Context) (processor.Report, error) {
	return processor.Report{}, nil
}
func (f *fakeProcessor) Wake()                  { f.wakes++ }
func (f *fakeProcessor) State() processor.State { return processor.Delivering }

func TestHealthHandler(t *testing.T) {
	srv := &Server{processor: &fakeProcessor{}}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status":"ok"`) || !strings.Contains(body, `"state":"delivering"`) {
		t.Errorf("Unexpected health body: %s", body)
	}
}

func TestProcessOffersHandler_Wakes(t *testing.T) {
	fake := &fakeProcessor{}
	srv := &Server{processor: fake}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process-offers", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	if fake.wakes != 1 {
		t.Errorf("Expected 1 wake, got %d", fake.wakes)
	}
}

func TestProcessOffersHandler_RejectsGet(t *testing.T) {
	srv := &Server{processor: &fakeProcessor{}}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/process-offers", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
