package api

import (
	"time"

	"multitimer/internal/store"
)

func zeroValue(rec *store.Record) int64 {
	if rec.Kind == "countdown" {
		return rec.DurationMS
	}
	return 0
}

// applyAction updates rec for one of the start/stop/reset actions. While a
// stored timer runs, StartedAt marks when ValueMS was taken.
func applyAction(rec *store.Record, action string, now time.Time) {
	switch action {
	case ActionStart:
		if rec.Running {
			return
		}
		if rec.Kind == "countdown" && rec.ValueMS == 0 {
			rec.ValueMS = rec.DurationMS
		}
		rec.Running = true
		rec.StartedAt = &now
	case ActionStop:
		rec.ValueMS = rec.LiveValueMS(now)
		rec.Running = false
		rec.StartedAt = nil
	case ActionReset:
		rec.Running = false
		rec.StartedAt = nil
		rec.ValueMS = zeroValue(rec)
		rec.LapsMS = []int64{}
	}
}

// applyState copies the fields present in req onto rec.
func applyState(rec *store.Record, req UpdateTimerRequest, now time.Time) {
	if req.ValueMS != nil {
		rec.ValueMS = *req.ValueMS
	}
	if req.LapsMS != nil {
		rec.LapsMS = append([]int64{}, req.LapsMS...)
	}
	if req.Hidden != nil {
		rec.Hidden = *req.Hidden
	}
	if req.Running != nil {
		rec.Running = *req.Running
	}
	// a countdown at zero has run out
	if rec.Kind == "countdown" && rec.ValueMS == 0 {
		rec.Running = false
	}

	switch {
	case !rec.Running:
		rec.StartedAt = nil
	case req.Running != nil || req.ValueMS != nil || rec.StartedAt == nil:
		rec.StartedAt = &now
	}
}
