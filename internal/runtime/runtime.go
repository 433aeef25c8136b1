package runtime

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vinodismyname/salesdash/config"
)

// Limits captures the concurrency and payload guardrails configured for the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxConcurrentLoads    int

	// Payload and row bounds
	MaxPayloadBytes int
	PreviewRowLimit int
	PageSize        int

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits initializes Limits with sensible fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxConcurrentLoads int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxConcurrentLoads <= 0 {
		maxConcurrentLoads = config.DefaultMaxConcurrentLoads
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxConcurrentLoads:    maxConcurrentLoads,
		MaxPayloadBytes:       config.DefaultMaxPayloadBytes,
		PreviewRowLimit:       config.DefaultMaxPreviewRows,
		PageSize:              config.DefaultPageSize,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// FromConfig builds Limits from the loaded configuration.
func FromConfig(c config.Limits) Limits {
	l := NewLimits(c.MaxConcurrentRequests, c.MaxConcurrentLoads)
	if c.OperationTimeout > 0 {
		l.OperationTimeout = c.OperationTimeout
	}
	if c.AcquireTimeout > 0 {
		l.AcquireRequestTimeout = c.AcquireTimeout
	}
	if c.MaxPreviewRows > 0 {
		l.PreviewRowLimit = c.MaxPreviewRows
	}
	return l
}

// Controller coordinates runtime semaphores for request and source-load guardrails.
type Controller struct {
	limits           Limits
	requestSemaphore *semaphore.Weighted
	loadSemaphore    *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:           limits,
		requestSemaphore: semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		loadSemaphore:    semaphore.NewWeighted(int64(limits.MaxConcurrentLoads)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireLoad reserves a slot for fetching and decoding a source.
func (c *Controller) AcquireLoad(ctx context.Context) error {
	return c.loadSemaphore.Acquire(ctx, 1)
}

// ReleaseLoad frees a load slot.
func (c *Controller) ReleaseLoad() {
	c.loadSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
