// Package http serves the sales dashboard page, its JSON API and chart images.
package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/vinodismyname/salesdash/config"
	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/presenter"
	"github.com/vinodismyname/salesdash/pkg/mcperr"
	"github.com/vinodismyname/salesdash/pkg/version"
)

// Guard applies request concurrency and timeout limits (runtime.Middleware).
type Guard interface {
	HTTPMiddleware(next http.Handler) http.Handler
}

// Instrumenter records per-route request metrics (telemetry.Metrics).
type Instrumenter interface {
	Instrument(next http.Handler) http.Handler
	Handler() http.Handler
}

// Options configures the router.
type Options struct {
	Service     *dashboard.Service
	Logger      zerolog.Logger
	Guard       Guard
	Metrics     Instrumenter
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
	// MaxPreviewRows caps GET /api/preview?rows=N.
	MaxPreviewRows int
}

// Handler serves the dashboard routes.
type Handler struct {
	svc            *dashboard.Service
	maxPreviewRows int
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(opts Options) http.Handler {
	h := &Handler{svc: opts.Service, maxPreviewRows: opts.MaxPreviewRows}
	if h.maxPreviewRows <= 0 {
		h.maxPreviewRows = config.DefaultMaxPreviewRows
	}

	r := chi.NewRouter()
	for _, mw := range withLogger(opts.Logger) {
		r.Use(mw)
	}
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Instrument)
	}

	r.Get("/healthz", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(NewRateLimiter(opts.RateLimit, opts.RateBurst).Handler)
		if opts.Guard != nil {
			r.Use(opts.Guard.HTTPMiddleware)
		}
		r.Get("/", h.dashboard)
		r.Get("/charts/{panel}.{format}", h.chart)
		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/columns", h.columns)
			r.Get("/preview", h.preview)
			r.Get("/groups", h.groups)
			r.Get("/panels", h.panels)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, NewAPIError(http.StatusNotFound, mcperr.Validation, "route not found"))
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok", "version": version.Version()})
}

// dashboard renders the HTML page. A load failure renders the error banner
// and no panels with status 502.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	sel := selectionFrom(r.URL.Query())
	title, subtitle := h.svc.Heading()
	data := newPage(title, subtitle, sel)

	status := http.StatusOK
	view, err := h.svc.Build(r.Context(), "", sel)
	if err != nil {
		apiErr := errorFor(err)
		status = apiErr.StatusCode
		if status < http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		data.Error = apiErr.Message
		hlog.FromRequest(r).Error().Err(err).Msg("dashboard unavailable")
	} else {
		data.withView(view)
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render dashboard template")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	id, err := presenter.ParsePanel(chi.URLParam(r, "panel"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	format, err := presenter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	p, err := h.svc.Prepare(r.Context(), "")
	if err != nil {
		renderError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Chart(r.Context(), p, id, selectionFrom(r.URL.Query()), format, &buf); err != nil {
		renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

type columnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type columnsResponse struct {
	DatasetID string       `json:"dataset_id"`
	Columns   []columnInfo `json:"columns"`
	Numeric   []string     `json:"numeric"`
}

func (h *Handler) columns(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Prepare(r.Context(), "")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ds := p.Dataset()
	resp := columnsResponse{DatasetID: p.Entry.ID, Columns: make([]columnInfo, len(ds.Columns)), Numeric: ds.NumericColumns()}
	for i, c := range ds.Columns {
		resp.Columns[i] = columnInfo{Name: c.Name, Kind: c.Kind.String()}
	}
	render.JSON(w, r, resp)
}

type previewResponse struct {
	DatasetID string           `json:"dataset_id"`
	Total     int              `json:"total"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	n := h.svc.PreviewRows()
	if raw := r.URL.Query().Get("rows"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > h.maxPreviewRows {
			_ = render.Render(w, r, NewAPIError(http.StatusBadRequest, mcperr.Validation,
				"rows must be an integer between 1 and "+strconv.Itoa(h.maxPreviewRows)))
			return
		}
		n = v
	}
	p, err := h.svc.Prepare(r.Context(), "")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ds := p.Dataset()
	head := ds.Head(n)
	render.JSON(w, r, previewResponse{DatasetID: p.Entry.ID, Total: ds.Len(), Columns: ds.Names(), Rows: head.Records()})
}

func (h *Handler) groups(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Prepare(r.Context(), "")
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"dataset_id": p.Entry.ID, "groups": p.Result.Table})
}

func (h *Handler) panels(w http.ResponseWriter, r *http.Request) {
	sel := selectionFrom(r.URL.Query())
	p, err := h.svc.Prepare(r.Context(), "")
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"dataset_id": p.Entry.ID,
		"selection":  sel,
		"panels":     h.svc.Presenter().Panels(p.Dataset(), sel),
	})
}

// Serve runs srv until ctx is cancelled, then shuts it down within shutdownTimeout.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	logger := zerolog.Ctx(ctx)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logger.Info().Dur("timeout", shutdownTimeout).Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
