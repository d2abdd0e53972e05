package api

import (
	"context"
	"errors"
	"time"

	"multitimer/internal/pkg/goerror"
	"multitimer/internal/pkg/router"
	"multitimer/internal/pkg/uid"
	"multitimer/internal/pkg/validator"
	"multitimer/internal/store"
	"multitimer/internal/timer"
)

type HTTPEndpoint struct {
	repo      store.Repository
	validator validator.Validator
	uuid      uid.StringID
	now       func() time.Time
	driver    string
}

var errTimerNotFound = goerror.NewBusiness("Timer not found", goerror.CodeNotFound)

func (h *HTTPEndpoint) Health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.repo.List(ctx); err != nil {
		return nil, goerror.NewServer(err, "Store is unavailable")
	}
	return HealthResponse{Status: "ok", Store: h.driver}, nil
}

func (h *HTTPEndpoint) ListTimers(r *router.Request) (any, error) {
	recs, err := h.repo.List(r.Context())
	if err != nil {
		return nil, goerror.NewServer(err, "Failed to fetch timers")
	}
	return toTimerListResponse(recs), nil
}

func (h *HTTPEndpoint) GetTimer(r *router.Request) (any, error) {
	rec, err := h.find(r.Context(), r.GetParam("id"))
	if err != nil {
		return nil, err
	}
	return TimerDetailResponse{toTimerResponse(*rec)}, nil
}

// CreateTimer registers a paused timer. A countdown starts at its full
// duration.
func (h *HTTPEndpoint) CreateTimer(r *router.Request) (any, error) {
	var req CreateTimerRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if err := h.validator.Validate(req); err != nil {
		return nil, goerror.NewInvalidInput(validationFields(err))
	}

	kind, err := timer.ParseKind(req.Type)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, "type", "type must be stopwatch or countdown")
	}
	if kind == timer.Countdown && req.DurationMS <= 0 {
		return nil, goerror.NewInvalidInput(nil, "duration_ms", "duration_ms must be greater than 0 for a countdown")
	}

	rec := store.Record{
		ID:        req.ID,
		Kind:      kind.String(),
		LapsMS:    []int64{},
		CreatedAt: h.now().UTC(),
	}
	if rec.ID == "" {
		rec.ID = h.uuid.Generate()
	}
	if kind == timer.Countdown {
		rec.DurationMS = req.DurationMS
		rec.ValueMS = req.DurationMS
	}

	if err := h.repo.Create(r.Context(), rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, goerror.NewBusiness("Timer already exists", goerror.CodeConflict)
		}
		return nil, goerror.NewServer(err, "Failed to create timer")
	}

	created, err := h.find(r.Context(), rec.ID)
	if err != nil {
		return nil, err
	}
	return CreateTimerResponse{toTimerResponse(*created)}, nil
}

// UpdateTimer applies an action or a state write.
func (h *HTTPEndpoint) UpdateTimer(r *router.Request) (any, error) {
	var req UpdateTimerRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if err := h.validator.Validate(req); err != nil {
		return nil, goerror.NewInvalidInput(validationFields(err))
	}
	switch {
	case req.Action == "" && !req.isStateWrite():
		return nil, goerror.NewInvalidInput(nil, "action", "action or timer state is required")
	case req.Action != "" && req.isStateWrite():
		return nil, goerror.NewInvalidInput(nil, "action", "action cannot be combined with a state write")
	}

	rec, err := h.find(r.Context(), r.GetParam("id"))
	if err != nil {
		return nil, err
	}

	now := h.now().UTC()
	if req.Action != "" {
		applyAction(rec, req.Action, now)
	} else {
		applyState(rec, req, now)
	}
	if rec.Kind == "countdown" && rec.ValueMS > rec.DurationMS {
		return nil, goerror.NewInvalidInput(nil, "value_ms", "value_ms must not exceed duration_ms")
	}

	if err := h.repo.Update(r.Context(), *rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errTimerNotFound
		}
		return nil, goerror.NewServer(err, "Failed to update timer")
	}

	updated, err := h.find(r.Context(), rec.ID)
	if err != nil {
		return nil, err
	}
	return UpdateTimerResponse{toTimerResponse(*updated)}, nil
}

// DeleteTimer succeeds for unknown ids too.
func (h *HTTPEndpoint) DeleteTimer(r *router.Request) (any, error) {
	if err := h.repo.Delete(r.Context(), r.GetParam("id")); err != nil {
		return nil, goerror.NewServer(err, "Failed to delete timer")
	}
	return nil, nil
}

func (h *HTTPEndpoint) find(ctx context.Context, id string) (*store.Record, error) {
	rec, err := h.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errTimerNotFound
		}
		return nil, goerror.NewServer(err, "Failed to fetch timer")
	}
	return rec, nil
}

func validationFields(err error) map[string]string {
	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		return verr.Values()
	}
	return map[string]string{"body": err.Error()}
}
