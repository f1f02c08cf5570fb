package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/model"
)

// Client wraps the order endpoints of the platform backend. The backend is
// authoritative for all order state; this client only reads pages and posts
// status transitions.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// OrdersByStatus fetches one page of a business's orders in the given
// status, newest first.
func (c *Client) OrdersByStatus(ctx context.Context, businessID string, status model.OrderStatus, page, size int) (model.OrdersPage, error) {
	var out model.OrdersPage

	q := url.Values{}
	q.Set("status", string(status))
	q.Set("businessId", businessID)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	reqURL := fmt.Sprintf("%s/orders?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return out, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return out, apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode orders page: %w", err)
	}
	return out, nil
}

// UpdateOrderStatus posts a status transition keyed by the human-facing
// order number, which the backend treats as the idempotency key.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderNumber string, status model.OrderStatus, notes, updatedBy string) error {
	form := url.Values{}
	form.Set("status", string(status))
	form.Set("notes", notes)
	form.Set("updatedBy", updatedBy)

	reqURL := fmt.Sprintf("%s/orders/status/%s", c.baseURL, url.PathEscape(orderNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	return nil
}

// MarkItemsSentToKot tells the backend the order's items went out on a
// kitchen ticket. Called only after a physical print succeeded.
func (c *Client) MarkItemsSentToKot(ctx context.Context, orderID int) error {
	reqURL := fmt.Sprintf("%s/orders/%d/mark-items-sent-to-kot", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	var kot model.KotResponse
	if err := json.NewDecoder(resp.Body).Decode(&kot); err != nil {
		return fmt.Errorf("decode kot response: %w", err)
	}
	if !kot.Success {
		return fmt.Errorf("backend refused mark-items-sent-to-kot for order %d", orderID)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
