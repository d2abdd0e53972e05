// Package api serves timer records over a JSON HTTP API.
package api

import (
	"time"

	"multitimer/internal/pkg/router"
	"multitimer/internal/pkg/uid"
	"multitimer/internal/pkg/validator"
	"multitimer/internal/store"
)

type Deps struct {
	Repo      store.Repository
	Validator validator.Validator
	UUID      uid.StringID
	Now       func() time.Time
	// Driver names the backing store in health responses.
	Driver string
}

func RegisterHTTPEndpoint(r *router.Router, deps Deps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.UUID == nil {
		deps.UUID = uid.NewUUID()
	}
	end := &HTTPEndpoint{
		repo:      deps.Repo,
		validator: deps.Validator,
		uuid:      deps.UUID,
		now:       deps.Now,
		driver:    deps.Driver,
	}

	r.GET("/health", end.Health)

	r.GET("/api/timers", end.ListTimers)
	r.POST("/api/timers", end.CreateTimer)
	r.GET("/api/timers/:id", end.GetTimer)
	r.PUT("/api/timers/:id", end.UpdateTimer)
	r.DELETE("/api/timers/:id", end.DeleteTimer)
}
