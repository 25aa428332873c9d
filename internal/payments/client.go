package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ivanoskov/transfer_bot/internal/metrics"
)

const maxResponseSize = 1 << 20

var ErrInvalidResponse = errors.New("invalid response from payments api")

// APIError - ответ платежного сервиса с кодом вне диапазона 2xx
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payments api responded %d: %s", e.StatusCode, e.Body)
}

// HeaderSource выдает заголовки авторизации для пользователя
type HeaderSource interface {
	AuthHeaders(ctx context.Context, userID int64) (http.Header, error)
}

// Client - типизированный клиент платежного сервиса
type Client struct {
	baseURL string
	http    *http.Client
	headers HeaderSource
	timeout time.Duration
}

// NewClient создает клиент. timeout ограничивает каждый отдельный вызов.
func NewClient(baseURL string, headers HeaderSource, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		headers: headers,
		timeout: timeout,
	}
}

// invoke выполняет запрос от имени пользователя и возвращает тело успешного ответа
func (c *Client) invoke(ctx context.Context, userID int64, method, path, endpoint string, payload any) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	timer := prometheus.NewTimer(metrics.APILatency.WithLabelValues(endpoint))
	defer timer.ObserveDuration()

	headers, err := c.headers.AuthHeaders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth headers: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func decodeObject(endpoint string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, endpoint, err)
	}
	return nil
}

// decodeList принимает как голый массив, так и обертку {"data": [...]}
func decodeList[T any](endpoint string, data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, endpoint, err)
		}
		return items, nil
	}

	var envelope struct {
		Data *[]T `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, endpoint, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: %s: missing data field", ErrInvalidResponse, endpoint)
	}
	return *envelope.Data, nil
}
