package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/model"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, 2*time.Second, zerolog.Nop())
}

func TestOrdersByStatusQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("status") != "PLACED" || q.Get("businessId") != "77" ||
			q.Get("page") != "0" || q.Get("size") != "25" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"content":[{"id":1,"orderNumber":"A-1","orderStatus":"PLACED"}],"totalElements":1}}`))
	}))
	t.Cleanup(srv.Close)

	page, err := newTestClient(srv).OrdersByStatus(context.Background(), "77", model.StatusPlaced, 0, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Data.Content) != 1 || page.Data.Content[0].OrderNumber != "A-1" {
		t.Errorf("page = %+v", page)
	}
	if page.Data.TotalElements != 1 {
		t.Errorf("totalElements = %d", page.Data.TotalElements)
	}
}

func TestOrdersByStatusHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(srv).OrdersByStatus(context.Background(), "77", model.StatusPlaced, 0, 25)
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("expected status and body snippet, got %v", err)
	}
}

func TestUpdateOrderStatusForm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders/status/A-42" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("status") != "PREPARING" ||
			r.PostForm.Get("notes") != "15" ||
			r.PostForm.Get("updatedBy") != "pos-agent" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	err := newTestClient(srv).UpdateOrderStatus(context.Background(), "A-42", model.StatusPreparing, "15", "pos-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkItemsSentToKot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"accepted", `{"success":true}`, false},
		{"refused", `{"success":false}`, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/orders/99/mark-items-sent-to-kot" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			err := newTestClient(srv).MarkItemsSentToKot(context.Background(), 99)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
