package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTP talks to a timerd gateway over its JSON API.
type HTTP struct {
	baseURL string
	client  *http.Client
}

type HTTPOptions struct {
	BaseURL string
	Timeout time.Duration
}

func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &HTTP{
		baseURL: strings.TrimRight(u.String(), "/"),
		client:  &http.Client{Timeout: opts.Timeout},
	}, nil
}

type httpEnvelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

type httpCreateRequest struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	DurationMS int64  `json:"duration_ms"`
}

type httpStateRequest struct {
	Running bool    `json:"running"`
	ValueMS int64   `json:"value_ms"`
	LapsMS  []int64 `json:"laps_ms"`
	Hidden  bool    `json:"hidden"`
}

// gatewayError is a non-2xx answer from the gateway.
type gatewayError struct {
	Status  int
	Message string
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

func (h *HTTP) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadyExists
	}

	var env httpEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &gatewayError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func timerPath(id string) string {
	return "/api/timers/" + url.PathEscape(id)
}

func (h *HTTP) List(ctx context.Context) ([]Record, error) {
	recs := []Record{}
	if err := h.do(ctx, http.MethodGet, "/api/timers", nil, &recs); err != nil {
		return nil, wrapErr("list", "", err)
	}
	return recs, nil
}

func (h *HTTP) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := h.do(ctx, http.MethodGet, timerPath(id), nil, &rec); err != nil {
		return nil, wrapErr("get", id, err)
	}
	return &rec, nil
}

// Create registers the timer and, when it is no longer in its initial
// state, pushes the current state right after.
func (h *HTTP) Create(ctx context.Context, rec Record) error {
	err := h.do(ctx, http.MethodPost, "/api/timers", httpCreateRequest{
		ID:         rec.ID,
		Type:       rec.Kind,
		DurationMS: rec.DurationMS,
	}, nil)
	if err != nil {
		return wrapErr("create", rec.ID, err)
	}

	if rec.Running || rec.Hidden || len(rec.LapsMS) > 0 || rec.ValueMS != initialValue(rec) {
		return h.Update(ctx, rec)
	}
	return nil
}

func initialValue(rec Record) int64 {
	if rec.Kind == "countdown" {
		return rec.DurationMS
	}
	return 0
}

func (h *HTTP) Update(ctx context.Context, rec Record) error {
	laps := rec.LapsMS
	if laps == nil {
		laps = []int64{}
	}
	err := h.do(ctx, http.MethodPut, timerPath(rec.ID), httpStateRequest{
		Running: rec.Running,
		ValueMS: rec.ValueMS,
		LapsMS:  laps,
		Hidden:  rec.Hidden,
	}, nil)
	return wrapErr("update", rec.ID, err)
}

func (h *HTTP) Delete(ctx context.Context, id string) error {
	err := h.do(ctx, http.MethodDelete, timerPath(id), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return wrapErr("delete", id, err)
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
