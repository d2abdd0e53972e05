package api

import (
	"net/http"
	"time"

	"github.com/samber/lo"

	"multitimer/internal/store"
)

const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionReset = "reset"
)

type CreateTimerRequest struct {
	ID         string `json:"id" validate:"omitempty,max=128,printascii"`
	Type       string `json:"type" validate:"required,timerkind"`
	DurationMS int64  `json:"duration_ms" validate:"gte=0"`
}

// UpdateTimerRequest is either an action or a state write. Fields left out
// of a state write keep their stored value.
type UpdateTimerRequest struct {
	Action  string  `json:"action" validate:"omitempty,oneof=start stop reset"`
	Running *bool   `json:"running"`
	ValueMS *int64  `json:"value_ms" validate:"omitempty,gte=0"`
	LapsMS  []int64 `json:"laps_ms" validate:"omitempty,dive,gte=0"`
	Hidden  *bool   `json:"hidden"`
}

func (r UpdateTimerRequest) isStateWrite() bool {
	return r.Running != nil || r.ValueMS != nil || r.LapsMS != nil || r.Hidden != nil
}

type TimerResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	DurationMS int64      `json:"duration_ms"`
	ValueMS    int64      `json:"value_ms"`
	Running    bool       `json:"running"`
	LapsMS     []int64    `json:"laps_ms"`
	Hidden     bool       `json:"hidden"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toTimerResponse(rec store.Record) TimerResponse {
	laps := rec.LapsMS
	if laps == nil {
		laps = []int64{}
	}
	return TimerResponse{
		ID:         rec.ID,
		Type:       rec.Kind,
		DurationMS: rec.DurationMS,
		ValueMS:    rec.ValueMS,
		Running:    rec.Running,
		LapsMS:     laps,
		Hidden:     rec.Hidden,
		StartedAt:  rec.StartedAt,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

type TimerListResponse []TimerResponse

func (TimerListResponse) Message() string { return "Timers fetched" }

func toTimerListResponse(recs []store.Record) TimerListResponse {
	return lo.Map(recs, func(rec store.Record, _ int) TimerResponse { return toTimerResponse(rec) })
}

type TimerDetailResponse struct {
	TimerResponse
}

func (TimerDetailResponse) Message() string { return "Timer fetched" }

type CreateTimerResponse struct {
	TimerResponse
}

func (CreateTimerResponse) StatusCode() int { return http.StatusCreated }

func (CreateTimerResponse) Message() string { return "Timer created" }

type UpdateTimerResponse struct {
	TimerResponse
}

func (UpdateTimerResponse) Message() string { return "Timer updated" }

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (HealthResponse) Message() string { return "service is healthy" }
