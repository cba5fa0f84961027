package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-discount-backend/internal/repo"
)

// ---------- ListPendingOutbox ----------

func TestListPendingOutbox_DefaultAndCap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)

	for i := 0; i < 3; i++ {
		if _, err := repo.EnqueueOutboxEntry(context.Background(), db, "DiscountClaimed", "{}"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	h := newTestHandlers(db, stubDiscountSvc{}, stubRedemptionSvc{}, stubDrainer{})
	r := gin.New()
	r.GET("/outbox/pending", h.ListPendingOutbox)

	for _, q := range []string{"", "?limit=10", "?limit=0", "?limit=9999", "?limit=abc"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outbox/pending"+q, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("query %q -> %d", q, w.Code)
		}
		var out PendingOutboxResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if len(out.Items) != 3 {
			t.Fatalf("query %q: expected 3 items, got %d", q, len(out.Items))
		}
	}
}

func TestListPendingOutbox_EmptyIsArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)

	h := newTestHandlers(db, stubDiscountSvc{}, stubRedemptionSvc{}, stubDrainer{})
	r := gin.New()
	r.GET("/outbox/pending", h.ListPendingOutbox)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outbox/pending", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"items":[]`)) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

// ---------- ConsumeOutbox ----------

func TestConsumeOutbox_DefaultsAndLimits(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen []int
	drainer := stubDrainer{drain: func(ctx context.Context, limit int) ([]string, error) {
		seen = append(seen, limit)
		return []string{"a", "b"}, nil
	}}
	h := newTestHandlers(nil, stubDiscountSvc{}, stubRedemptionSvc{}, drainer)
	r := gin.New()
	r.POST("/internal/consume-outbox", h.ConsumeOutbox)

	cases := []struct {
		body string
		want int
	}{
		{"", 25},                // no body -> default
		{`{}`, 25},              // empty body -> default
		{`{"limit":-3}`, 25},    // non-positive -> default
		{`{"limit":10}`, 10},    // honored
		{`{"limit":5000}`, 100}, // capped
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal/consume-outbox", bytes.NewBufferString(tc.body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("body %q -> %d", tc.body, w.Code)
		}
	}
	for i, tc := range cases {
		if seen[i] != tc.want {
			t.Fatalf("body %q: drain limit %d, want %d", tc.body, seen[i], tc.want)
		}
	}
}

func TestConsumeOutbox_ReportsProcessed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	drainer := stubDrainer{drain: func(context.Context, int) ([]string, error) {
		return []string{"id-1", "id-2", "id-3"}, nil
	}}
	h := newTestHandlers(nil, stubDiscountSvc{}, stubRedemptionSvc{}, drainer)
	r := gin.New()
	r.POST("/internal/consume-outbox", h.ConsumeOutbox)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/consume-outbox", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("drain -> %d", w.Code)
	}

	var out ConsumeOutboxResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.ProcessedCount != 3 || len(out.Processed) != 3 || out.Processed[0] != "id-1" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestConsumeOutbox_EmptyBacklogAndError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Nothing pending -> processedCount 0, empty array
	{
		h := newTestHandlers(nil, stubDiscountSvc{}, stubRedemptionSvc{}, stubDrainer{})
		r := gin.New()
		r.POST("/internal/consume-outbox", h.ConsumeOutbox)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/consume-outbox", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("empty drain -> %d", w.Code)
		}
		var out ConsumeOutboxResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.ProcessedCount != 0 || out.Processed == nil {
			t.Fatalf("unexpected body: %+v", out)
		}
	}

	// Drain failure -> 500
	{
		drainer := stubDrainer{drain: func(context.Context, int) ([]string, error) {
			return nil, errors.New("db down")
		}}
		h := newTestHandlers(nil, stubDiscountSvc{}, stubRedemptionSvc{}, drainer)
		r := gin.New()
		r.POST("/internal/consume-outbox", h.ConsumeOutbox)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/consume-outbox", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("error -> %d", w.Code)
		}
	}
}
