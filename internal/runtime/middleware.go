package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vinodismyname/salesdash/pkg/mcperr"
)

// Middleware enforces runtime limits for tool calls and HTTP requests using the Controller.
// It bounds global concurrency and applies an operation timeout to each call.
type Middleware struct {
	ctrl *Controller
}

// NewMiddleware constructs a Middleware bound to the provided Controller.
func NewMiddleware(ctrl *Controller) *Middleware {
	return &Middleware{ctrl: ctrl}
}

// acquire waits up to AcquireRequestTimeout for a request slot.
func (m *Middleware) acquire(ctx context.Context) error {
	acquireCtx := ctx
	if m.ctrl.limits.AcquireRequestTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, m.ctrl.limits.AcquireRequestTimeout)
		defer cancel()
	}
	return m.ctrl.AcquireRequest(acquireCtx)
}

func (m *Middleware) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.ctrl.limits.OperationTimeout > 0 {
		return context.WithTimeout(ctx, m.ctrl.limits.OperationTimeout)
	}
	return ctx, func() {}
}

// ToolMiddleware implements mcp-go's tool handler middleware interface.
// It acquires a request slot, applies a timeout, and guarantees release.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := m.acquire(ctx); err != nil {
			// Return a tool-level error so the client can self-correct/retry.
			return mcperr.New(mcperr.BusyResource, fmt.Sprintf("concurrent request limit reached (max=%d). Please retry shortly.", m.ctrl.limits.MaxConcurrentRequests)), nil
		}
		defer m.ctrl.ReleaseRequest()

		callCtx, cancel := m.withTimeout(ctx)
		defer cancel()

		res, err := next(callCtx, req)

		// If the underlying handler surfaced a context deadline, prefer a tool-level timeout error.
		if errors.Is(err, context.DeadlineExceeded) || (callCtx.Err() == context.DeadlineExceeded && err == nil && res == nil) {
			return mcperr.New(mcperr.Timeout, ""), nil
		}
		return res, err
	}
}

// HTTPMiddleware applies the same guardrails to HTTP handlers. Saturation
// yields 503 and a handler that overruns the timeout without writing yields 504.
func (m *Middleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.acquire(r.Context()); err != nil {
			w.Header().Set("Retry-After", "1")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]any{
				"status":     http.StatusServiceUnavailable,
				"error_code": string(mcperr.BusyResource),
				"message":    fmt.Sprintf("concurrent request limit reached (max=%d)", m.ctrl.limits.MaxConcurrentRequests),
			})
			return
		}
		defer m.ctrl.ReleaseRequest()

		ctx, cancel := m.withTimeout(r.Context())
		defer cancel()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		if ctx.Err() == context.DeadlineExceeded && ww.Status() == 0 {
			render.Status(r, http.StatusGatewayTimeout)
			render.JSON(w, r, map[string]any{
				"status":     http.StatusGatewayTimeout,
				"error_code": string(mcperr.Timeout),
				"message":    "operation exceeded configured time limit",
			})
		}
	})
}
