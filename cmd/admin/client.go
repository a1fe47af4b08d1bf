package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pizzaria/internal/model"

	"github.com/google/uuid"
)

// boardClient is the part of the admin API the board uses.
type boardClient interface {
	List(ctx context.Context) ([]model.Order, error)
	Advance(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

type adminClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	stream  *http.Client
}

func newAdminClient(baseURL, apiKey string) *adminClient {
	return &adminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Second},
		stream:  &http.Client{},
	}
}

// snapshot is one event of the order stream.
type snapshot struct {
	Orders []model.Order `json:"orders"`
	Error  string        `json:"error"`
}

// Stream reads the server-sent order board until ctx is done or the
// connection drops, calling fn for every snapshot.
func (c *adminClient) Stream(ctx context.Context, fn func([]model.Order)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/admin/orders/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var snap snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return fmt.Errorf("bad event: %w", err)
		}
		// A snapshot carrying an error still holds the last good list.
		fn(snap.Orders)
	}
	if err := scanner.Err(); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	return io.ErrUnexpectedEOF
}

func (c *adminClient) List(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/admin/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *adminClient) Advance(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/admin/orders/"+id.String()+"/advance", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *adminClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr model.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}
