package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

type componentCheck struct {
	name string
	ping func(ctx context.Context) error
}

func (h *HealthChecker) check(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	checks := []componentCheck{
		{name: "postgres", ping: h.infra.Postgres().Ping},
		{name: "redis", ping: h.infra.Redis().Ping},
	}

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(checks))
	for _, check := range checks {
		check := check
		go func() {
			results <- result{name: check.name, err: check.ping(ctx)}
		}()
	}

	statuses := make(map[string]string, len(checks))
	for range checks {
		r := <-results
		if r.err != nil {
			statuses[r.name] = r.err.Error()
		} else {
			statuses[r.name] = "pass"
		}
	}
	return statuses
}

func (h *HealthChecker) Handler(c *gin.Context) {
	statuses := h.check(c.Request.Context())

	status := "pass"
	code := http.StatusOK
	for _, s := range statuses {
		if s != "pass" {
			status = "fail"
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": statuses,
	})
}
