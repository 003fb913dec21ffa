// Package predict talks to the question answering backend.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/liut/campus-assistant/pkg/models/chat"
)

const (
	dftTimeout   = time.Second * 60
	maxBodyBytes = 4 << 20
)

// errors of a predict call
var (
	ErrNetwork   = errors.New("network failure")
	ErrMalformed = errors.New("malformed response")
)

// StatusError is a non-2xx answer of the backend
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API请求失败: %d", e.Code)
}

type Request struct {
	Question string `json:"question"`
}

// Client posts questions to the predict endpoint
type Client struct {
	url string
	hc  *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = dftTimeout
	}
	return &Client{
		url: url,
		hc: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
	}
}

func (c *Client) URL() string { return c.url }

// Predict returns the decoded JSON object of the reply
func (c *Client) Predict(ctx context.Context, question string) (chat.Payload, error) {
	b, err := json.Marshal(&Request{Question: question})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		logger().Infow("predict fail", "url", c.url, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	logger().Debugw("predict done", "status", res.StatusCode, "size", len(body), "dur", time.Since(start))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Code: res.StatusCode, Body: string(body)}
	}

	var payload chat.Payload
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	return payload, nil
}

func logger() *zap.SugaredLogger {
	return zap.S()
}
