package croprec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	opPredict = "predict"
	opSave    = "save selection"
	opPing    = "ping"

	maxResponseBody = 1 << 20
)

// Recommender is the remote side of a Session.
type Recommender interface {
	Predict(ctx context.Context, form FormData) (*Prediction, error)
	SaveSelection(ctx context.Context, req SaveRequest) (*SaveResponse, error)
}

// Client talks JSON over HTTP to the prediction service. Each call is bounded
// by Config.Timeout.
type Client struct {
	http   *http.Client
	logger *zap.Logger

	mu  sync.RWMutex
	cfg Config
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for the endpoints in cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	cfg.ApplyDefaults()
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the active configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// UpdateConfig swaps the endpoints and timeout used by later calls. Calls
// already in flight keep the old values.
func (c *Client) UpdateConfig(cfg Config) Config {
	cfg.ApplyDefaults()
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return cfg
}

// Predict posts the form to the prediction endpoint.
func (c *Client) Predict(ctx context.Context, form FormData) (*Prediction, error) {
	var resp predictResponse
	if err := c.postJSON(ctx, opPredict, c.Config().Endpoints.PredictURL, form, &resp); err != nil {
		return nil, err
	}
	if resp.Top5Crops == nil {
		return nil, &RequestError{Op: opPredict, Kind: KindDecode, Err: errors.New("response has no top_5_crops")}
	}
	crops := resp.Top5Crops
	if len(crops) > MaxRecommendations {
		crops = crops[:MaxRecommendations]
	}
	return &Prediction{Crops: crops, DocumentID: resp.DocumentID}, nil
}

// SaveSelection posts the selected crops together with the document id.
func (c *Client) SaveSelection(ctx context.Context, req SaveRequest) (*SaveResponse, error) {
	if req.SelectedCrops == nil {
		req.SelectedCrops = []string{}
	}
	var resp SaveResponse
	if err := c.postJSON(ctx, opSave, c.Config().Endpoints.SaveURL, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping issues a GET against the base URL and returns the response text.
func (c *Client) Ping(ctx context.Context) (string, error) {
	cfg := c.Config()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoints.BaseURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("create ping request: %w", err)
	}
	requestID := decorate(req, cfg.UserAgent)
	body, status, err := c.do(req)
	if err != nil {
		return "", &RequestError{Op: opPing, Kind: KindNetwork, RequestID: requestID, Err: err}
	}
	if status < 200 || status > 299 {
		return "", &RequestError{Op: opPing, Kind: KindServer, StatusCode: status, RequestID: requestID}
	}
	return string(bytes.TrimSpace(body)), nil
}

func (c *Client) postJSON(ctx context.Context, op, url string, payload, out any) error {
	cfg := c.Config()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := decorate(req, cfg.UserAgent)

	c.logger.Debug("sending request",
		zap.String("op", op),
		zap.String("url", url),
		zap.String("request_id", requestID))

	body, status, err := c.do(req)
	if err != nil {
		return &RequestError{Op: op, Kind: KindNetwork, RequestID: requestID, Err: err}
	}
	if status < 200 || status > 299 {
		reqErr := &RequestError{Op: op, Kind: KindServer, StatusCode: status, RequestID: requestID}
		var msg SaveResponse
		if json.Unmarshal(body, &msg) == nil {
			reqErr.Message = msg.Message
		}
		return reqErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RequestError{Op: op, Kind: KindDecode, StatusCode: status, RequestID: requestID, Err: err}
	}
	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("request_id", requestID))
	return nil
}

func decorate(req *http.Request, userAgent string) string {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", userAgent)
	return requestID
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
